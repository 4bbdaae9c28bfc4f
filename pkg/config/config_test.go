package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/norasector/fineoffset/pkg/bitbuffer"
	"github.com/norasector/fineoffset/pkg/fineoffset"
	"github.com/rs/zerolog"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
device: fineoffset_wh2a
workers: 4
log_level: debug
timing:
  long_width: 2800us
  reset_limit: 2.8ms
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Workers != 4 || cfg.RowBuffer != 16 {
		t.Errorf("cfg = %+v", cfg)
	}
	if lvl, _ := cfg.Level(); lvl != zerolog.DebugLevel {
		t.Errorf("Level() = %v", lvl)
	}

	dev, err := cfg.DeviceFor()
	if err != nil {
		t.Fatalf("DeviceFor: %v", err)
	}
	if dev.Timing.LongWidth != 2800*time.Microsecond || dev.Timing.ResetLimit != 2800*time.Microsecond {
		t.Errorf("timing overrides not applied: %+v", dev.Timing)
	}
	if dev.Timing.ShortWidth != fineoffset.WH2ATiming.ShortWidth {
		t.Errorf("ShortWidth = %v", dev.Timing.ShortWidth)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown device", "device: acurite_tower"},
		{"zero workers", "workers: 0"},
		{"negative buffer", "row_buffer: -1"},
		{"bad level", "log_level: loud"},
		{"unknown key", "verbose: 3"},
		{"short above long", "timing:\n  short_width: 2ms"},
		{"bad duration", "timing:\n  tolerance: soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse(%q) succeeded", tt.yaml)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decoder.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 || cfg.Device != DeviceWH2A {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}

func TestLoggerAndTracer(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	dev, err := cfg.DeviceFor(fineoffset.WithTracer(fineoffset.NewLogTracer(logger)))
	if err != nil {
		t.Fatal(err)
	}
	row, err := bitbuffer.ParseRow("ff43c1d6829b")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.Decode(row); err == nil {
		t.Fatal("foreign frame accepted")
	}
	out := buf.String()
	if !strings.Contains(out, `"device":"fineoffset_wh2a"`) || !strings.Contains(out, "wh2a frame rejected") {
		t.Errorf("log output = %s", out)
	}
}

func TestEmptyLogLevelDefaultsToInfo(t *testing.T) {
	cfg, err := Parse([]byte(`log_level: ""`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if lvl, err := cfg.Level(); err != nil || lvl != zerolog.InfoLevel {
		t.Fatalf("Level() = %v, %v", lvl, err)
	}

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Debug().Msg("hidden")
	logger.Error().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("log output = %s", out)
	}
}
