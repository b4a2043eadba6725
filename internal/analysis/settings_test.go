package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/pamguide/internal/calibration"
	"github.com/linuxmatters/pamguide/internal/dsp"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// baseOptions is a valid one-second Hann, 50% overlap broadband analysis
func baseOptions() Options {
	return Options{
		Type:         Broadband,
		Window:       dsp.Hann,
		WindowLength: 1,
		WindowUnit:   Seconds,
		Overlap:      0.5,
		WelchFactor:  1,
		Environment:  calibration.Water,
		Workers:      2,
	}
}

func mustSettings(t *testing.T, opts Options) Settings {
	t.Helper()
	s, err := NewSettings(opts)
	require.NoError(t, err)
	return s
}

func TestNewSettingsDefaults(t *testing.T) {
	s := mustSettings(t, baseOptions())

	assert.Equal(t, Broadband, s.Type())
	assert.Equal(t, 1, s.FrameWorkers(), "zero frame workers should mean sequential")
	assert.False(t, s.Calibrated())
	assert.NotNil(t, s.Location())
	assert.Equal(t, "dB re FS", s.Units())

	opts := baseOptions()
	opts.Workers = 0
	assert.Positive(t, mustSettings(t, opts).Workers(), "zero workers should resolve to GOMAXPROCS")
}

func TestZeroSettings(t *testing.T) {
	var s Settings
	require.NotNil(t, s.Calibrator())
	assert.False(t, s.Calibrated())
	assert.Positive(t, s.Workers())
	assert.Equal(t, time.UTC, s.Location())
	assert.Equal(t, "dB re FS", s.Units())
	assert.NotEmpty(t, s.String())
}

// partialSettings carries a usable window but leaves the calibrator and
// worker count unset, as a struct literal would
func partialSettings() Settings {
	return Settings{
		typ:          Broadband,
		window:       dsp.Hann,
		windowLength: 0.1,
		windowUnit:   Seconds,
		overlap:      0.5,
		welchFactor:  1,
	}
}

func TestNewSettingsCalibrated(t *testing.T) {
	opts := baseOptions()
	opts.Calibration = calibration.EE{SystemSensitivity: -164.1}
	s := mustSettings(t, opts)

	assert.True(t, s.Calibrated())
	assert.InDelta(t, 164.1, s.Calibrator().Offset(), 1e-12)
	assert.Equal(t, "dB re 1 µPa", s.Units())
}

func TestNewSettingsErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"no analysis type", func(o *Options) { o.Type = 0 }},
		{"no window", func(o *Options) { o.Window = 0 }},
		{"zero length", func(o *Options) { o.WindowLength = 0 }},
		{"negative length", func(o *Options) { o.WindowLength = -1 }},
		{"fractional samples", func(o *Options) { o.WindowUnit = Samples; o.WindowLength = 100.5 }},
		{"single sample hann", func(o *Options) { o.WindowUnit = Samples; o.WindowLength = 1 }},
		{"overlap one", func(o *Options) { o.Overlap = 1 }},
		{"negative overlap", func(o *Options) { o.Overlap = -0.1 }},
		{"welch zero", func(o *Options) { o.WelchFactor = 0 }},
		{"inverted band", func(o *Options) { o.Band = dsp.Band{Low: 500, High: 100} }},
		{"negative cutoff", func(o *Options) { o.Band = dsp.Band{Low: -10} }},
		{"no environment", func(o *Options) { o.Environment = 0 }},
		{"negative channel", func(o *Options) { o.Channel = -1 }},
		{"negative workers", func(o *Options) { o.Workers = -2 }},
		{"bad calibration", func(o *Options) { o.Calibration = calibration.TS{ADCPeak: 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			tt.modify(&opts)
			_, err := NewSettings(opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pamerr.ErrConfig), "want a config error, got %v", err)
		})
	}
}

func TestNewSettingsJoinsErrors(t *testing.T) {
	opts := baseOptions()
	opts.WelchFactor = 0
	opts.Overlap = 2
	opts.Channel = -1

	_, err := NewSettings(opts)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "welch factor")
	assert.Contains(t, msg, "overlap")
	assert.Contains(t, msg, "channel")
}

func TestFrameLength(t *testing.T) {
	tests := []struct {
		length float64
		unit   WindowUnit
		rate   float64
		want   int
	}{
		{1, Seconds, 10000, 10000},
		{0.1, Seconds, 44100, 4410},
		{0.02, Seconds, 48000, 960},
		{1.00004, Seconds, 10000, 10000},
		{1024, Samples, 48000, 1024},
		{1024, Samples, 8000, 1024},
	}

	for _, tt := range tests {
		opts := baseOptions()
		opts.WindowLength = tt.length
		opts.WindowUnit = tt.unit
		s := mustSettings(t, opts)
		assert.Equal(t, tt.want, s.FrameLength(tt.rate), "%g %s at %g Hz", tt.length, tt.unit, tt.rate)
	}
}

func TestBandFor(t *testing.T) {
	s := mustSettings(t, baseOptions())
	assert.Equal(t, dsp.Band{Low: 0, High: 5000}, s.BandFor(10000), "open band should close at Nyquist")

	opts := baseOptions()
	opts.Band = dsp.Band{Low: 100, High: 2000}
	s = mustSettings(t, opts)
	assert.Equal(t, dsp.Band{Low: 100, High: 2000}, s.BandFor(10000))
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"psd": PSD, "PSD": PSD, "broadband": Broadband, " Broadband ": Broadband} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseType("tol")
	assert.ErrorIs(t, err, pamerr.ErrConfig)
}

func TestParseWindowUnit(t *testing.T) {
	for in, want := range map[string]WindowUnit{"": Seconds, "s": Seconds, "seconds": Seconds, "samples": Samples} {
		got, err := ParseWindowUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseWindowUnit("minutes")
	assert.ErrorIs(t, err, pamerr.ErrConfig)
}
