// Package analysis runs the spectral pipeline over recordings and collates
// the per-file results into a batch.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/linuxmatters/pamguide/internal/calibration"
	"github.com/linuxmatters/pamguide/internal/dsp"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// Type selects what the pipeline reports for each time block
type Type int

const (
	// PSD reports the power spectral density per bin
	PSD Type = iota + 1
	// Broadband reports the band-integrated level
	Broadband
)

func (t Type) String() string {
	switch t {
	case PSD:
		return "PSD"
	case Broadband:
		return "Broadband"
	default:
		return "unknown"
	}
}

// ParseType accepts "psd" or "broadband" in any case
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "psd":
		return PSD, nil
	case "broadband", "bb":
		return Broadband, nil
	default:
		return 0, pamerr.Config("analysis_type", "unknown analysis type %q (want psd or broadband)", s)
	}
}

// WindowUnit says how WindowLength is measured
type WindowUnit int

const (
	Seconds WindowUnit = iota + 1
	Samples
)

func (u WindowUnit) String() string {
	switch u {
	case Seconds:
		return "s"
	case Samples:
		return "samples"
	default:
		return "unknown"
	}
}

// ParseWindowUnit accepts "seconds"/"s" or "samples"
func ParseWindowUnit(s string) (WindowUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s", "sec", "seconds":
		return Seconds, nil
	case "samples", "sample":
		return Samples, nil
	default:
		return 0, pamerr.Config("window_unit", "unknown window unit %q (want seconds or samples)", s)
	}
}

// Options are the raw analysis choices, before validation
type Options struct {
	Type         Type
	Window       dsp.WindowType
	WindowLength float64
	WindowUnit   WindowUnit
	Overlap      float64 // fraction in [0, 1)
	WelchFactor  int
	Band         dsp.Band // High == 0 means up to Nyquist
	Calibration  calibration.Model
	Environment  calibration.Environment

	TimestampLayout string
	Location        *time.Location

	Channel      int
	Workers      int // 0 means GOMAXPROCS
	FrameWorkers int // 0 means 1
}

// Settings is a validated, read-only set of analysis choices shared by
// every recording in a batch. Build it with NewSettings. A zero Settings
// never panics: it resolves to uncalibrated, GOMAXPROCS workers and UTC,
// and analysis fails with a Config error for its missing window.
type Settings struct {
	typ          Type
	window       dsp.WindowType
	windowLength float64
	windowUnit   WindowUnit
	overlap      float64
	welchFactor  int
	band         dsp.Band
	calibrator   *calibration.Calibrator
	environment  calibration.Environment
	layout       string
	location     *time.Location
	channel      int
	workers      int
	frameWorkers int
}

// NewSettings validates opts and returns the Settings they describe.
// All problems are reported together as Config-kind errors.
func NewSettings(opts Options) (Settings, error) {
	var errs []error

	if opts.Type != PSD && opts.Type != Broadband {
		errs = append(errs, pamerr.Config("analysis_type", "analysis type must be PSD or broadband"))
	}
	if opts.Window < dsp.Hann || opts.Window > dsp.Rectangular {
		errs = append(errs, pamerr.Config("window_type", "window type is not set"))
	}
	if opts.WindowUnit != Seconds && opts.WindowUnit != Samples {
		errs = append(errs, pamerr.Config("window_unit", "window unit must be seconds or samples"))
	}
	if !(opts.WindowLength > 0) || math.IsInf(opts.WindowLength, 0) {
		errs = append(errs, pamerr.Config("window_length", "window length must be positive, got %g", opts.WindowLength))
	} else if opts.WindowUnit == Samples {
		if opts.WindowLength != math.Trunc(opts.WindowLength) {
			errs = append(errs, pamerr.Config("window_length", "window length in samples must be a whole number, got %g", opts.WindowLength))
		} else {
			// Sample-unit windows can be checked fully without a sample rate
			spec := dsp.WindowSpec{Type: opts.Window, Length: int(opts.WindowLength), Overlap: opts.Overlap}
			if err := spec.Validate(); err != nil {
				errs = append(errs, err)
			} else if _, err := dsp.NewWindow(spec.Type, spec.Length); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if math.IsNaN(opts.Overlap) || opts.Overlap < 0 || opts.Overlap >= 1 {
		errs = append(errs, pamerr.Config("overlap", "overlap must be in [0, 1), got %g", opts.Overlap))
	}
	if opts.WelchFactor < 1 {
		errs = append(errs, pamerr.Config("welch_factor", "welch factor must be at least 1, got %d", opts.WelchFactor))
	}
	if err := validateBand(opts.Band); err != nil {
		errs = append(errs, err)
	}
	if opts.Environment != calibration.Water && opts.Environment != calibration.Air {
		errs = append(errs, pamerr.Config("environment", "environment must be air or water"))
	}
	if opts.Channel < 0 {
		errs = append(errs, pamerr.Config("channel", "channel must not be negative, got %d", opts.Channel))
	}
	if opts.Workers < 0 {
		errs = append(errs, pamerr.Config("workers", "workers must not be negative, got %d", opts.Workers))
	}
	if opts.FrameWorkers < 0 {
		errs = append(errs, pamerr.Config("frame_workers", "frame workers must not be negative, got %d", opts.FrameWorkers))
	}

	calibrator, err := calibration.New(opts.Calibration)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	frameWorkers := max(opts.FrameWorkers, 1)

	return Settings{
		typ:          opts.Type,
		window:       opts.Window,
		windowLength: opts.WindowLength,
		windowUnit:   opts.WindowUnit,
		overlap:      opts.Overlap,
		welchFactor:  opts.WelchFactor,
		band:         opts.Band,
		calibrator:   calibrator,
		environment:  opts.Environment,
		layout:       opts.TimestampLayout,
		location:     loc,
		channel:      opts.Channel,
		workers:      workers,
		frameWorkers: frameWorkers,
	}, nil
}

// validateBand checks the cutoffs that can be judged without a sample rate
func validateBand(b dsp.Band) error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) || math.IsInf(b.Low, 0) || math.IsInf(b.High, 0) {
		return pamerr.Config("band", "cutoffs must be finite")
	}
	if b.Low < 0 || b.High < 0 {
		return pamerr.Config("band", "cutoffs must not be negative (low %g Hz, high %g Hz)", b.Low, b.High)
	}
	if b.High == 0 {
		return nil
	}
	return b.Validate()
}

func (s Settings) Type() Type { return s.typ }
func (s Settings) Window() dsp.WindowType { return s.window }
func (s Settings) WindowLength() float64 { return s.windowLength }
func (s Settings) WindowUnit() WindowUnit { return s.windowUnit }
func (s Settings) Overlap() float64 { return s.overlap }
func (s Settings) WelchFactor() int { return s.welchFactor }
func (s Settings) Band() dsp.Band { return s.band }
func (s Settings) Environment() calibration.Environment { return s.environment }
func (s Settings) TimestampLayout() string { return s.layout }
func (s Settings) Channel() int { return s.channel }
func (s Settings) FrameWorkers() int { return s.frameWorkers }

// Calibrator returns the configured calibration, or the identity
// calibrator for a zero Settings
func (s Settings) Calibrator() *calibration.Calibrator {
	if s.calibrator == nil {
		return calibration.Disabled()
	}
	return s.calibrator
}

// Location is the zone for filename timestamps, UTC when unset
func (s Settings) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

// Workers is the file concurrency limit, GOMAXPROCS when unset
func (s Settings) Workers() int {
	if s.workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.workers
}

// Calibrated reports whether levels are absolute rather than full-scale relative
func (s Settings) Calibrated() bool { return s.Calibrator().Enabled() }

// FrameLength resolves the window length in samples at sampleRate.
// Seconds are rounded to the nearest sample.
func (s Settings) FrameLength(sampleRate float64) int {
	if s.windowUnit == Samples {
		return int(s.windowLength)
	}
	return int(math.Round(s.windowLength * sampleRate))
}

// BandFor resolves the analysis band at sampleRate, closing an open upper
// cutoff at the Nyquist frequency
func (s Settings) BandFor(sampleRate float64) dsp.Band {
	b := s.band
	if b.High == 0 {
		b.High = sampleRate / 2
	}
	return b
}

// Units returns the label for the values the pipeline reports
func (s Settings) Units() string {
	return calibration.Units(s.environment, s.Calibrated(), s.typ == PSD)
}

// String describes the analysis in one line, for logs and reports
func (s Settings) String() string {
	return fmt.Sprintf("%s, %s window %g %s, %g%% overlap, welch %d, %s",
		s.typ, s.window, s.windowLength, s.windowUnit, s.overlap*100, s.welchFactor, s.Calibrator())
}
