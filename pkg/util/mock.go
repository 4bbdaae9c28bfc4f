package util

import (
	"sync"

	"github.com/influxdata/influxdb-client-go/api/write"
)

// MockWriteAPI stands in for an InfluxDB write API. It keeps every point it
// is handed so tests can inspect them; production code uses it when no
// InfluxDB client is configured.
type MockWriteAPI struct {
	mu     sync.Mutex
	points []*write.Point
	lines  []string
	keep   bool
}

// NewRecordingWriteAPI returns a mock that retains written points and records.
func NewRecordingWriteAPI() *MockWriteAPI {
	return &MockWriteAPI{keep: true}
}

func (m *MockWriteAPI) WriteRecord(line string) {
	if !m.keep {
		return
	}
	m.mu.Lock()
	m.lines = append(m.lines, line)
	m.mu.Unlock()
}

func (m *MockWriteAPI) WritePoint(point *write.Point) {
	if !m.keep {
		return
	}
	m.mu.Lock()
	m.points = append(m.points, point)
	m.mu.Unlock()
}

// Points returns the points written so far.
func (m *MockWriteAPI) Points() []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*write.Point(nil), m.points...)
}

// Records returns the line protocol records written so far.
func (m *MockWriteAPI) Records() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

func (m *MockWriteAPI) Flush() {}

func (m *MockWriteAPI) Close() {}

func (m *MockWriteAPI) Errors() <-chan error { return nil }
