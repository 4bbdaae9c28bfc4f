// Package fineoffset decodes Fine Offset Electronics WH2A temperature/humidity
// sensor frames.
//
// The sensor sends three identical 48-bit frames roughly every 48 seconds,
// pulse-width modulated with on-off keying. The frame is 12 nibbles:
//
//	[pre] [pre] [type] [id] [id] [temp] [temp] [temp] [humi] [humi] [crc] [crc]
//
// The id is random and regenerated whenever the sensor powers up. The
// temperature is a 12-bit sign-magnitude count of 1/20 °C and the humidity an
// 8-bit count of half percent.
package fineoffset

import (
	"errors"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/crc"
)

const (
	WH2AMinBits  = 48
	WH2AMarker   = 0xFE
	wh2aMinBytes = WH2AMinBits / 8

	// byte offsets within the row
	markerByte   = 0
	idHighByte   = 1
	idLowByte    = 2
	tempHighByte = 2
	tempLowByte  = 3
	humidityByte = 4
	checksumByte = 5

	// the id spans the low nibble of byte 1 and the high nibble of byte 2
	idHighMask  = 0x0F
	idHighShift = 4
	idLowMask   = 0xF0
	idLowShift  = 4

	// the temperature register is the low nibble of byte 2 above byte 3
	tempHighMask  = 0x0F
	tempHighShift = 8
	tempSignBit   = 0x800
	tempMagnitude = 0x7FF
	tempDivisor   = 20

	humidityDivisor = 2

	// x^8 + x^5 + x^4 + 1, x^8 implicit
	crcPolynomial = 0x31
	crcInit       = 0x00
)

var (
	ErrShortRow = errors.New("row too short")
	ErrMarker   = errors.New("marker mismatch")
	ErrChecksum = errors.New("checksum mismatch")
)

// Reading is a decoded WH2A measurement.
type Reading struct {
	ID           uint8
	TemperatureC float64
	Humidity     float64
}

// DecodeWH2A validates row and extracts a reading from it. A row that is too
// short, does not start with the marker byte, or fails the CRC is rejected
// with ErrShortRow, ErrMarker or ErrChecksum respectively. Rejections are the
// normal outcome for noise and other sensors' frames.
//
// DecodeWH2A does not retain row and is safe for concurrent use.
func DecodeWH2A(row bitbuffer.Row) (Reading, error) {
	if row.Len() < WH2AMinBits || row.NumBytes() < wh2aMinBytes {
		return Reading{}, ErrShortRow
	}
	if row.Byte(markerByte) != WH2AMarker {
		return Reading{}, ErrMarker
	}
	// the CRC covers bytes 1 through 4, excluding the marker
	fields := [4]byte{row.Byte(1), row.Byte(2), row.Byte(3), row.Byte(4)}
	if crc.CRC8(fields[:], crcPolynomial, crcInit) != row.Byte(checksumByte) {
		return Reading{}, ErrChecksum
	}

	id := (row.Byte(idHighByte)&idHighMask)<<idHighShift | (row.Byte(idLowByte)&idLowMask)>>idLowShift

	register := uint16(row.Byte(tempLowByte)) | uint16(row.Byte(tempHighByte)&tempHighMask)<<tempHighShift

	return Reading{
		ID:           id,
		TemperatureC: float64(signMagnitude(register)) / tempDivisor,
		Humidity:     float64(row.Byte(humidityByte)) / humidityDivisor,
	}, nil
}

// signMagnitude interprets a 12-bit register whose top bit is a sign flag.
// The sign must be stripped before negating; this is not two's complement.
func signMagnitude(register uint16) int16 {
	magnitude := int16(register & tempMagnitude)
	if register&tempSignBit != 0 {
		return -magnitude
	}
	return magnitude
}
