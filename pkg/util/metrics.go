package util

import "time"

// TimeOperation runs op and returns how long it took.
func TimeOperation(op func()) time.Duration {
	start := time.Now()
	op()
	return time.Since(start)
}

func TimeOperationMicroseconds(op func()) int64 {
	return TimeOperation(op).Microseconds()
}
