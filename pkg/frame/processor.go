package frame

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/data"
	"github.com/norasector/fineoffset/pkg/device"
	"github.com/norasector/fineoffset/pkg/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const metricsMeasurement = "decoder.row.processed"

// Processor is a frame processor.  Configuration is dependent on the specific implementation.
type Processor interface {
	Start(context.Context) error
}

// Result is one accepted row and the record decoded from it.
type Result struct {
	Device string
	Record data.Record
	Row    bitbuffer.Row
}

// Stats counts processed rows.
type Stats struct {
	Rows     uint64
	Accepted uint64
	Rejected uint64
}

// DecodeProcessor runs a device decoder over every row it receives and
// forwards accepted records. Rejected rows are counted and dropped.
type DecodeProcessor struct {
	// 64-bit counters first for atomic alignment on 32-bit platforms
	rowCount      uint64
	acceptedCount uint64
	rejectedCount uint64

	dev      device.Device
	rows     <-chan bitbuffer.Row
	out      chan<- Result
	workers  int
	logger   zerolog.Logger
	writeAPI api.WriteAPI
}

type ProcessorOption func(p *DecodeProcessor) error

func WithInfluxDB(writeAPI api.WriteAPI) ProcessorOption {
	return func(p *DecodeProcessor) error {
		p.writeAPI = writeAPI
		return nil
	}
}

func WithLogger(logger zerolog.Logger) ProcessorOption {
	return func(p *DecodeProcessor) error {
		p.logger = logger
		return nil
	}
}

func WithWorkers(n int) ProcessorOption {
	return func(p *DecodeProcessor) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		p.workers = n
		return nil
	}
}

func NewDecodeProcessor(dev device.Device, rows <-chan bitbuffer.Row, out chan<- Result, opts ...ProcessorOption) (*DecodeProcessor, error) {
	if err := dev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device: %w", err)
	}
	if dev.Disabled {
		return nil, fmt.Errorf("device %s is disabled", dev.Name)
	}

	p := &DecodeProcessor{
		dev:      dev,
		rows:     rows,
		out:      out,
		workers:  runtime.NumCPU(),
		logger:   zerolog.Nop(),
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Start decodes rows until the input channel is closed or ctx is done. The
// output channel is left open.
func (p *DecodeProcessor) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	p.logger.Info().
		Str("device", p.dev.Name).
		Int("workers", p.workers).
		Msg("starting decode processor")

	for i := 0; i < p.workers; i++ {
		eg.Go(func() error {
			return p.work(ctx)
		})
	}

	err := eg.Wait()
	stats := p.Stats()
	p.logger.Info().
		Str("device", p.dev.Name).
		Uint64("rows", stats.Rows).
		Uint64("accepted", stats.Accepted).
		Uint64("rejected", stats.Rejected).
		Msg("decode processor stopped")
	return err
}

func (p *DecodeProcessor) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case row, ok := <-p.rows:
			if !ok {
				return nil
			}
			if err := p.process(ctx, row); err != nil {
				return err
			}
		}
	}
}

func (p *DecodeProcessor) process(ctx context.Context, row bitbuffer.Row) error {
	var (
		rec data.Record
		err error
	)
	elapsed := util.TimeOperationMicroseconds(func() {
		rec, err = p.dev.Decode(row)
	})
	atomic.AddUint64(&p.rowCount, 1)

	tags := map[string]string{"device": p.dev.Name}
	if err != nil {
		atomic.AddUint64(&p.rejectedCount, 1)
		tags["result"] = "rejected"
		tags["reason"] = err.Error()
	} else {
		atomic.AddUint64(&p.acceptedCount, 1)
		tags["result"] = "accepted"
	}
	p.writeAPI.WritePoint(influxdb2.NewPoint(metricsMeasurement, tags,
		map[string]interface{}{"decode_us": elapsed, "bits": row.Len()}, time.Now()))

	if err != nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- Result{Device: p.dev.Name, Record: rec, Row: row}:
	}
	return nil
}

// Workers returns the number of decode goroutines Start runs.
func (p *DecodeProcessor) Workers() int { return p.workers }

// Stats returns the row counters. Safe to call while the processor runs.
func (p *DecodeProcessor) Stats() Stats {
	return Stats{
		Rows:     atomic.LoadUint64(&p.rowCount),
		Accepted: atomic.LoadUint64(&p.acceptedCount),
		Rejected: atomic.LoadUint64(&p.rejectedCount),
	}
}
