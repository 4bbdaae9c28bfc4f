package crc

// CRC8 computes an MSB-first (non-reflected) CRC-8 over data with the given
// polynomial and initial remainder. The x^8 term of poly is implicit.
func CRC8(data []byte, poly, init uint8) uint8 {
	remainder := init
	for _, b := range data {
		remainder ^= b
		for i := 0; i < 8; i++ {
			if remainder&0x80 != 0 {
				remainder = (remainder << 1) ^ poly
			} else {
				remainder <<= 1
			}
		}
	}
	return remainder
}
