package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/data"
)

// Modulation names the line coding an acquisition framework must use to
// slice pulses into bits for a device.
type Modulation string

const (
	OOKPulsePWM Modulation = "OOK_PULSE_PWM"
	OOKPulsePPM Modulation = "OOK_PULSE_PPM"
)

// Timing holds fixed pulse calibration constants. They are measured from
// the device, never derived.
type Timing struct {
	ShortWidth time.Duration `yaml:"short_width"`
	LongWidth  time.Duration `yaml:"long_width"`
	ResetLimit time.Duration `yaml:"reset_limit"`
	Tolerance  time.Duration `yaml:"tolerance"`
}

// DecodeFunc turns one bit row into an output record. Rows that do not belong
// to the device are rejected with an error; rejection is not a failure.
type DecodeFunc func(row bitbuffer.Row) (data.Record, error)

// Device describes a decoder and the radio parameters it expects.
type Device struct {
	Name       string
	Modulation Modulation
	Timing     Timing
	Fields     []string
	Decode     DecodeFunc
	Disabled   bool
}

var ErrNoDecoder = errors.New("device has no decode function")

// Validate checks that the descriptor is usable by an acquisition framework.
func (d Device) Validate() error {
	if d.Name == "" {
		return errors.New("device has no name")
	}
	if d.Decode == nil {
		return fmt.Errorf("%s: %w", d.Name, ErrNoDecoder)
	}
	switch d.Modulation {
	case OOKPulsePWM, OOKPulsePPM:
	default:
		return fmt.Errorf("%s: unknown modulation %q", d.Name, d.Modulation)
	}
	t := d.Timing
	if t.ShortWidth <= 0 || t.LongWidth <= 0 || t.ResetLimit <= 0 {
		return fmt.Errorf("%s: short, long and reset widths must be positive", d.Name)
	}
	if t.ShortWidth >= t.LongWidth {
		return fmt.Errorf("%s: short width %v must be below long width %v", d.Name, t.ShortWidth, t.LongWidth)
	}
	if t.Tolerance < 0 {
		return fmt.Errorf("%s: negative tolerance %v", d.Name, t.Tolerance)
	}
	return nil
}

// WithTiming returns a copy of d using the non-zero values of t.
func (d Device) WithTiming(t Timing) Device {
	if t.ShortWidth != 0 {
		d.Timing.ShortWidth = t.ShortWidth
	}
	if t.LongWidth != 0 {
		d.Timing.LongWidth = t.LongWidth
	}
	if t.ResetLimit != 0 {
		d.Timing.ResetLimit = t.ResetLimit
	}
	if t.Tolerance != 0 {
		d.Timing.Tolerance = t.Tolerance
	}
	d.Fields = append([]string(nil), d.Fields...)
	return d
}
