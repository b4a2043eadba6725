package calibration

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

func ptr(v float64) *float64 { return &v }

func TestOffsets(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		want  float64
	}{
		{"EE", EE{SystemSensitivity: -164.1}, 164.1},
		{"TS unity ADC", TS{Sensitivity: -170, PreampGain: 20, ADCPeak: 1}, 150},
		{"TS 2.5 V ADC", TS{Sensitivity: -165, PreampGain: 10, ADCPeak: 2.5}, 155 + 20*math.Log10(2.5)},
		{"RC", RC{Sensitivity: -180, SystemSensitivity: 12}, 168},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.Offset(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Offset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEEUnitPower(t *testing.T) {
	c, err := New(EE{SystemSensitivity: -164.1})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Value(1); got != 164.1 {
		t.Errorf("Value(1) = %v, want exactly 164.1", got)
	}
}

func TestDisabledIsIdentity(t *testing.T) {
	for _, c := range []*Calibrator{Disabled(), {}} {
		in := []float64{0, 1e-12, 0.5, 3}
		out := c.Spectrum(in)
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("Spectrum[%d] = %v, want %v", i, out[i], in[i])
			}
		}
		if c.Enabled() {
			t.Error("disabled calibrator reports Enabled")
		}
	}
	c, err := New(nil)
	if err != nil || c.Enabled() {
		t.Errorf("New(nil) = %v, %v; want disabled calibrator", c, err)
	}
}

func TestZeroPowerIsNegativeInfinity(t *testing.T) {
	c, err := New(RC{Sensitivity: -170, SystemSensitivity: 3})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []float64{0, -1} {
		if got := c.Value(p); !math.IsInf(got, -1) {
			t.Errorf("Value(%v) = %v, want -Inf", p, got)
		}
	}
	if got := Disabled().Level(0); !math.IsInf(got, -1) {
		t.Errorf("Disabled().Level(0) = %v, want -Inf", got)
	}
}

func TestSpectrumDoesNotMutate(t *testing.T) {
	c, _ := New(EE{SystemSensitivity: -100})
	in := []float64{1, 10}
	out := c.Spectrum(in)
	if in[0] != 1 || in[1] != 10 {
		t.Errorf("input mutated: %v", in)
	}
	if out[0] != 100 || math.Abs(out[1]-110) > 1e-12 {
		t.Errorf("Spectrum = %v, want [100 110]", out)
	}
}

func TestFromFields(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		fields  Fields
		want    Model
		wantErr string
	}{
		{
			name:   "EE",
			typ:    TypeEE,
			fields: Fields{SystemSensitivity: ptr(-164.1)},
			want:   EE{SystemSensitivity: -164.1},
		},
		{
			name:   "TS ignores system sensitivity",
			typ:    TypeTS,
			fields: Fields{Sensitivity: ptr(-170), PreampGain: ptr(20), ADCPeak: ptr(1.5), SystemSensitivity: ptr(1)},
			want:   TS{Sensitivity: -170, PreampGain: 20, ADCPeak: 1.5},
		},
		{
			name:   "RC",
			typ:    TypeRC,
			fields: Fields{Sensitivity: ptr(-170), SystemSensitivity: ptr(4)},
			want:   RC{Sensitivity: -170, SystemSensitivity: 4},
		},
		{
			name:    "TS missing fields",
			typ:     TypeTS,
			fields:  Fields{Sensitivity: ptr(-170)},
			wantErr: "TS calibration requires preamp_gain, adc_vpeak",
		},
		{
			name:    "EE missing sensitivity",
			typ:     TypeEE,
			fields:  Fields{Sensitivity: ptr(-170)},
			wantErr: "EE calibration requires system_sensitivity",
		},
		{
			name:    "RC missing transducer",
			typ:     TypeRC,
			fields:  Fields{SystemSensitivity: ptr(3)},
			wantErr: "RC calibration requires mic_hydro_sensitivity",
		},
		{
			name:    "TS zero ADC voltage",
			typ:     TypeTS,
			fields:  Fields{Sensitivity: ptr(-170), PreampGain: ptr(0), ADCPeak: ptr(0)},
			wantErr: "adc_vpeak must be a positive voltage",
		},
		{
			name:    "unknown type",
			typ:     Type("XX"),
			wantErr: "calibration_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFields(tt.typ, tt.fields)
			if tt.wantErr != "" {
				if !errors.Is(err, pamerr.ErrConfig) {
					t.Fatalf("FromFields error = %v, want config error", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromFields error: %v", err)
			}
			if got != tt.want {
				t.Errorf("FromFields = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"ts": TypeTS, "EE": TypeEE, " rc ": TypeRC} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseType("end-to-end"); !errors.Is(err, pamerr.ErrConfig) {
		t.Errorf("ParseType(invalid) error = %v, want config error", err)
	}
}

func TestUnits(t *testing.T) {
	tests := []struct {
		env        Environment
		calibrated bool
		psd        bool
		want       string
	}{
		{Water, true, true, "dB re 1 µPa²/Hz"},
		{Water, true, false, "dB re 1 µPa"},
		{Air, true, false, "dB re 20 µPa"},
		{Air, false, true, "FS²/Hz"},
		{Water, false, false, "dB re FS"},
	}
	for _, tt := range tests {
		if got := Units(tt.env, tt.calibrated, tt.psd); got != tt.want {
			t.Errorf("Units(%v, %v, %v) = %q, want %q", tt.env, tt.calibrated, tt.psd, got, tt.want)
		}
	}
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]Environment{"air": Air, "water": Water, "Wat": Water} {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Errorf("ParseEnvironment(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseEnvironment("space"); err == nil {
		t.Error("expected error for unknown environment")
	}
}
