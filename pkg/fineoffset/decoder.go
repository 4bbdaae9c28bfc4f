package fineoffset

import (
	"time"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/data"
	"github.com/norasector/fineoffset/pkg/device"
	"github.com/rs/zerolog"
)

const (
	WH2AModel = "Fine Offset Electronics, WH2A Temperature/Humidity sensor"
	WH2AName  = "Fine Offset Electronics, WH-2A Sensor"
)

// WH2AFields lists the output fields in reporting order. The time field is
// attached by whoever reports the record.
var WH2AFields = []string{"time", "model", "id", "temperature_C", "humidity"}

// WH2ATiming is the pulse calibration measured on the sensor: short pulse
// 544us, long pulse 1524us, fixed gap 1036us.
var WH2ATiming = device.Timing{
	ShortWidth: 500 * time.Microsecond,
	LongWidth:  1500 * time.Microsecond,
	ResetLimit: 1200 * time.Microsecond,
	Tolerance:  160 * time.Microsecond,
}

// Tracer is told about every row a Decoder looks at.
type Tracer interface {
	Accepted(row bitbuffer.Row, r Reading)
	Rejected(row bitbuffer.Row, err error)
}

type NopTracer struct{}

func (NopTracer) Accepted(bitbuffer.Row, Reading) {}
func (NopTracer) Rejected(bitbuffer.Row, error)   {}

// LogTracer logs accepted rows at info level and rejected rows at debug level.
type LogTracer struct {
	logger zerolog.Logger
}

func NewLogTracer(logger zerolog.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

func (l *LogTracer) Accepted(row bitbuffer.Row, r Reading) {
	l.logger.Info().
		Str("row", row.String()).
		Uint8("id", r.ID).
		Float64("temperature_C", r.TemperatureC).
		Float64("humidity", r.Humidity).
		Msg("wh2a frame accepted")
}

func (l *LogTracer) Rejected(row bitbuffer.Row, err error) {
	l.logger.Debug().
		Str("row", row.String()).
		Int("bits", row.Len()).
		Str("reason", err.Error()).
		Msg("wh2a frame rejected")
}

// Decoder runs DecodeWH2A and reports each outcome to its tracer.
type Decoder struct {
	tracer Tracer
}

type DecoderOption func(d *Decoder)

// WithTracer sets the tracer. A nil tracer disables tracing.
func WithTracer(t Tracer) DecoderOption {
	return func(d *Decoder) {
		if t == nil {
			t = NopTracer{}
		}
		d.tracer = t
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{tracer: NopTracer{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Decode(row bitbuffer.Row) (Reading, error) {
	r, err := DecodeWH2A(row)
	if err != nil {
		d.tracer.Rejected(row, err)
		return Reading{}, err
	}
	d.tracer.Accepted(row, r)
	return r, nil
}

// DecodeRecord is Decode with the result converted to an output record.
func (d *Decoder) DecodeRecord(row bitbuffer.Row) (data.Record, error) {
	r, err := d.Decode(row)
	if err != nil {
		return nil, err
	}
	return r.Record(), nil
}

// Record returns the reading as an output record, without a time field.
func (r Reading) Record() data.Record {
	return data.Make(
		data.Field{Key: "model", Value: WH2AModel},
		data.Field{Key: "id", Value: int(r.ID)},
		data.Field{Key: "temperature_C", Label: "Temperature", Format: "%.02f C", Value: r.TemperatureC},
		data.Field{Key: "humidity", Label: "Humidity", Format: "%.1f %%", Value: r.Humidity},
	)
}

// WH2A returns the device descriptor for the sensor. Options configure the
// decoder it carries.
func WH2A(opts ...DecoderOption) device.Device {
	return device.Device{
		Name:       WH2AName,
		Modulation: device.OOKPulsePWM,
		Timing:     WH2ATiming,
		Fields:     append([]string(nil), WH2AFields...),
		Decode:     NewDecoder(opts...).DecodeRecord,
	}
}
