package device

import (
	"errors"
	"testing"
	"time"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/data"
)

func testDevice() Device {
	return Device{
		Name:       "test",
		Modulation: OOKPulsePWM,
		Timing: Timing{
			ShortWidth: 500 * time.Microsecond,
			LongWidth:  1500 * time.Microsecond,
			ResetLimit: 1200 * time.Microsecond,
			Tolerance:  160 * time.Microsecond,
		},
		Fields: []string{"model"},
		Decode: func(bitbuffer.Row) (data.Record, error) { return nil, nil },
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr bool
	}{
		{"valid", func(*Device) {}, false},
		{"no name", func(d *Device) { d.Name = "" }, true},
		{"no decoder", func(d *Device) { d.Decode = nil }, true},
		{"bad modulation", func(d *Device) { d.Modulation = "FSK" }, true},
		{"zero reset", func(d *Device) { d.Timing.ResetLimit = 0 }, true},
		{"short above long", func(d *Device) { d.Timing.ShortWidth = 2 * time.Millisecond }, true},
		{"negative tolerance", func(d *Device) { d.Timing.Tolerance = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice()
			tt.mutate(&d)
			if err := d.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	d := testDevice()
	d.Decode = nil
	if err := d.Validate(); !errors.Is(err, ErrNoDecoder) {
		t.Errorf("Validate() = %v, want ErrNoDecoder", err)
	}
}

func TestWithTiming(t *testing.T) {
	d := testDevice()
	got := d.WithTiming(Timing{LongWidth: 2800 * time.Microsecond})

	if got.Timing.LongWidth != 2800*time.Microsecond {
		t.Errorf("LongWidth = %v", got.Timing.LongWidth)
	}
	if got.Timing.ShortWidth != d.Timing.ShortWidth || got.Timing.Tolerance != d.Timing.Tolerance {
		t.Errorf("unset values changed: %+v", got.Timing)
	}
	if d.Timing.LongWidth != 1500*time.Microsecond {
		t.Errorf("original modified: %v", d.Timing.LongWidth)
	}

	got.Fields[0] = "changed"
	if d.Fields[0] != "model" {
		t.Errorf("fields alias the original")
	}
}
