package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/calibration"
	"github.com/linuxmatters/pamguide/internal/dsp"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// FormatFor picks the syntax from a file extension. Anything other than
// .yaml or .yml is read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads the configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pamerr.Config("config", "open %q: %v", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a config from r over [Default] and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pamerr.Config("config", "read: %v", err)
	}

	cfg := Default()
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, pamerr.Config("config", "decode yaml: %v", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, pamerr.Config("config", "decode toml: %v", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, pamerr.Config("config", "unknown keys: %s", strings.Join(keys, ", "))
		}
	default:
		return nil, pamerr.Config("config", "unsupported format %q", format)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg describes a coherent analysis.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	_, err := cfg.options()
	return err
}

// Settings converts cfg into the immutable analysis settings shared by
// every recording in the batch
func (cfg *Config) Settings() (analysis.Settings, error) {
	opts, err := cfg.options()
	if err != nil {
		return analysis.Settings{}, err
	}
	return analysis.NewSettings(opts)
}

// Mains resolves MainsFrequency: 0 disables, -1 detects from the local
// timezone, any other value is used as given
func (cfg *Config) Mains(detect func() int) int {
	if cfg.MainsFrequency == -1 {
		return detect()
	}
	return cfg.MainsFrequency
}

// options parses every enumerated key and checks the combined result,
// collecting all problems rather than stopping at the first
func (cfg *Config) options() (analysis.Options, error) {
	var errs []error
	opts := analysis.Options{
		WindowLength:    cfg.WindowLength,
		Overlap:         cfg.OverlapPercentage / 100,
		WelchFactor:     cfg.WelchFactor,
		Band:            dsp.Band{Low: cfg.LowCutoff, High: cfg.HighCutoff},
		TimestampLayout: cfg.TimestampFormat,
		Channel:         cfg.Channel,
		Workers:         cfg.Workers,
		FrameWorkers:    cfg.FrameWorkers,
	}

	var err error
	if opts.Type, err = analysis.ParseType(cfg.AnalysisType); err != nil {
		errs = append(errs, err)
	}
	if opts.Window, err = dsp.ParseWindowType(cfg.WindowType); err != nil {
		errs = append(errs, err)
	}
	if opts.WindowUnit, err = analysis.ParseWindowUnit(cfg.WindowUnit); err != nil {
		errs = append(errs, err)
	}
	if opts.Environment, err = calibration.ParseEnvironment(cfg.Environment); err != nil {
		errs = append(errs, err)
	}
	if opts.Location, err = analysis.LoadLocation(cfg.TimestampZone); err != nil {
		errs = append(errs, err)
	}
	if cfg.MainsFrequency < -1 {
		errs = append(errs, pamerr.Config("mains_frequency", "mains frequency must be 0, -1 or a frequency in Hz, got %d", cfg.MainsFrequency))
	}

	if cfg.Calibrated && strings.TrimSpace(cfg.CalibrationType) == "" {
		errs = append(errs, pamerr.Config("calibration", "calibration_type is required when calibrated = true; valid values: TS, EE, RC"))
	} else if cfg.Calibrated {
		typ, err := calibration.ParseType(cfg.CalibrationType)
		if err != nil {
			errs = append(errs, err)
		} else {
			model, err := calibration.FromFields(typ, calibration.Fields{
				Sensitivity:       cfg.Sensitivity,
				PreampGain:        cfg.PreampGain,
				ADCPeak:           cfg.ADCPeak,
				SystemSensitivity: cfg.SystemSensitivity,
			})
			if err != nil {
				errs = append(errs, err)
			}
			opts.Calibration = model
		}
	}

	if len(errs) > 0 {
		return opts, errors.Join(errs...)
	}
	if _, err := analysis.NewSettings(opts); err != nil {
		return opts, err
	}
	return opts, nil
}
