package dsp

import (
	"errors"
	"math"
	"testing"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

func flatSpectrum(bins int, resolution, value float64) Spectrum {
	power := make([]float64, bins)
	for k := range power {
		power[k] = value
	}
	return Spectrum{Resolution: resolution, Power: power}
}

func TestIntegratorFlatBand(t *testing.T) {
	const p = 2.5e-7
	s := flatSpectrum(101, 1, p)

	// [10, 19] Hz at 1 Hz resolution holds exactly 10 bins
	in, err := NewIntegrator(Band{Low: 10, High: 19}, s.Resolution, s.Len())
	if err != nil {
		t.Fatal(err)
	}
	first, last := in.Bins()
	if first != 10 || last != 19 {
		t.Fatalf("bins = [%d, %d], want [10, 19]", first, last)
	}

	got := in.Level(s, 0)
	want := 10 * math.Log10(10*p)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Level = %v, want %v (10·log10(k·p))", got, want)
	}
	if math.Abs(got-10*math.Log10(p)) < 1 {
		t.Errorf("Level %v looks like an average of dB values", got)
	}
}

func TestIntegratorIgnoresResolution(t *testing.T) {
	// 0.5 Hz spacing puts 21 bins in [10, 20]
	const p = 1e-6
	s := flatSpectrum(201, 0.5, p)
	in, err := NewIntegrator(Band{Low: 10, High: 20}, s.Resolution, s.Len())
	if err != nil {
		t.Fatal(err)
	}
	if first, last := in.Bins(); last-first+1 != 21 {
		t.Fatalf("Bins = [%d, %d], want 21 bins", first, last)
	}
	if got := in.Power(s); math.Abs(got-21*p) > 1e-18 {
		t.Errorf("Power = %v, want %v", got, 21*p)
	}
	want := 10 * math.Log10(21*p)
	if got := in.Level(s, 0); math.Abs(got-want) > 1e-9 {
		t.Errorf("Level = %v, want %v", got, want)
	}
}

func TestIntegratorOffset(t *testing.T) {
	s := flatSpectrum(11, 1, 1)
	in, err := NewIntegrator(Band{Low: 0, High: 0.5}, 1, s.Len())
	if err != nil {
		t.Fatal(err)
	}
	if got := in.Level(s, 164.1); math.Abs(got-164.1) > 1e-12 {
		t.Errorf("Level = %v, want 164.1", got)
	}
}

func TestIntegratorZeroPower(t *testing.T) {
	s := flatSpectrum(11, 1, 0)
	in, err := NewIntegrator(Band{Low: 1, High: 5}, 1, s.Len())
	if err != nil {
		t.Fatal(err)
	}
	got := in.Level(s, -3)
	if !math.IsInf(got, -1) {
		t.Errorf("Level of silence = %v, want -Inf", got)
	}
}

func TestNewIntegratorErrors(t *testing.T) {
	tests := []struct {
		name string
		band Band
	}{
		{"inverted", Band{Low: 100, High: 10}},
		{"empty", Band{Low: 10, High: 10}},
		{"above nyquist", Band{Low: 600, High: 900}},
		{"below zero", Band{Low: -50, High: -10}},
		{"between bins", Band{Low: 10.2, High: 10.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 1 Hz resolution up to 500 Hz
			if _, err := NewIntegrator(tt.band, 1, 501); !errors.Is(err, pamerr.ErrConfig) {
				t.Errorf("NewIntegrator(%+v) error = %v, want config error", tt.band, err)
			}
		})
	}
}

func TestPowerToDB(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1, 0},
		{100, 20},
		{0.001, -30},
		{0, math.Inf(-1)},
		{-1, math.Inf(-1)},
		{math.NaN(), math.Inf(-1)},
	}
	for _, tt := range tests {
		got := PowerToDB(tt.in)
		if math.IsInf(tt.want, -1) {
			if !math.IsInf(got, -1) {
				t.Errorf("PowerToDB(%v) = %v, want -Inf", tt.in, got)
			}
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("PowerToDB(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
