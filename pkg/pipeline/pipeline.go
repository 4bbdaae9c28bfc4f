package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/config"
	"github.com/norasector/fineoffset/pkg/data"
	"github.com/norasector/fineoffset/pkg/device"
	"github.com/norasector/fineoffset/pkg/fineoffset"
	"github.com/norasector/fineoffset/pkg/frame"
	"github.com/norasector/fineoffset/pkg/util"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pipeline wires a bit source to the row assembler, the decode processor and
// a record writer.
type Pipeline struct {
	cfg       config.Config
	device    device.Device
	writeAPI  api.WriteAPI
	logOutput io.Writer
	output    io.Writer
	logger    zerolog.Logger
	now       func() time.Time

	bursts    chan []byte
	rows      chan bitbuffer.Row
	results   chan frame.Result
	processor *frame.DecodeProcessor
}

type Option func(p *Pipeline) error

func WithInfluxDB(writeAPI api.WriteAPI) Option {
	return func(p *Pipeline) error {
		p.writeAPI = writeAPI
		return nil
	}
}

// WithLogOutput sets where log events go. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.logOutput = w
		return nil
	}
}

// WithOutput sets where decoded records are written, one JSON object per
// line. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.output = w
		return nil
	}
}

func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Pipeline{
		cfg:       cfg,
		writeAPI:  &util.MockWriteAPI{}, // overwritten with option
		logOutput: os.Stderr,
		output:    os.Stdout,
		now:       time.Now,
		bursts:    make(chan []byte, 1),
		rows:      make(chan bitbuffer.Row, cfg.RowBuffer),
		results:   make(chan frame.Result, cfg.RowBuffer),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = cfg.Logger(p.logOutput)

	dev, err := cfg.DeviceFor(fineoffset.WithTracer(fineoffset.NewLogTracer(p.logger)))
	if err != nil {
		return nil, err
	}
	p.device = dev

	p.processor, err = frame.NewDecodeProcessor(dev, p.rows, p.results,
		frame.WithWorkers(cfg.Workers),
		frame.WithLogger(p.logger),
		frame.WithInfluxDB(p.writeAPI))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Input takes demodulated bursts, one bit per byte. Each burst is a pulse
// train ended by a gap longer than the reset limit, so a row never spans two
// bursts. Close the channel to drain and stop the pipeline. Bursts must not
// be modified after they are sent.
func (p *Pipeline) Input() chan<- []byte { return p.bursts }

// Stats returns the decode counters.
func (p *Pipeline) Stats() frame.Stats { return p.processor.Stats() }

// Start runs until the input is closed and every row is written, or until ctx
// is done.
func (p *Pipeline) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	assembler := frame.NewRowAssembler(ctx, fineoffset.WH2AMarker, fineoffset.WH2AMinBits, p.rows, p.logger)

	eg.Go(func() error {
		defer close(p.rows)
		return p.assemble(ctx, assembler)
	})
	eg.Go(func() error {
		defer close(p.results)
		return p.processor.Start(ctx)
	})
	eg.Go(func() error {
		return p.outputRecords(ctx)
	})

	p.logger.Info().
		Str("device", p.device.Name).
		Int("workers", p.processor.Workers()).
		Int("row_buffer", cap(p.rows)).
		Msg("Starting")

	return eg.Wait()
}

func (p *Pipeline) assemble(ctx context.Context, assembler *frame.RowAssembler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case burst, ok := <-p.bursts:
			if !ok {
				return nil
			}
			assembler.Receive(burst)
			assembler.Reset()
		}
	}
}

func (p *Pipeline) outputRecords(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-p.results:
			if !ok {
				return nil
			}
			rec := append(data.Record{{Key: "time", Value: p.now().UTC().Format(time.RFC3339)}}, res.Record...)
			b, err := rec.MarshalJSON()
			if err != nil {
				return fmt.Errorf("error encoding record: %w", err)
			}
			if _, err := p.output.Write(append(b, '\n')); err != nil {
				return fmt.Errorf("error writing record: %w", err)
			}
		}
	}
}
