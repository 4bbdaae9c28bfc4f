package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/norasector/fineoffset/pkg/device"
	"github.com/norasector/fineoffset/pkg/fineoffset"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const DeviceWH2A = "fineoffset_wh2a"

type Config struct {
	Device    string        `yaml:"device"`
	Workers   int           `yaml:"workers"`
	RowBuffer int           `yaml:"row_buffer"`
	LogLevel  string        `yaml:"log_level"`
	Timing    device.Timing `yaml:"timing"`
}

func Default() Config {
	return Config{
		Device:    DeviceWH2A,
		Workers:   1,
		RowBuffer: 16,
		LogLevel:  "info",
	}
}

// Parse reads a YAML config. Missing keys keep their defaults.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	return Parse(b)
}

func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RowBuffer < 0 {
		return fmt.Errorf("row_buffer must not be negative, got %d", c.RowBuffer)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.DeviceFor(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (zerolog.Level, error) {
	name := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Logger builds a logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	lvl, err := c.Level()
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("device", c.Device).Logger()
}

// DeviceFor resolves the configured device and applies timing overrides.
// Decoder options are passed through to the device's decoder.
func (c Config) DeviceFor(opts ...fineoffset.DecoderOption) (device.Device, error) {
	var dev device.Device
	switch c.Device {
	case DeviceWH2A, "":
		dev = fineoffset.WH2A(opts...)
	default:
		return device.Device{}, fmt.Errorf("unknown device %q", c.Device)
	}
	dev = dev.WithTiming(c.Timing)
	if err := dev.Validate(); err != nil {
		return device.Device{}, fmt.Errorf("device %s: %w", c.Device, err)
	}
	return dev, nil
}
