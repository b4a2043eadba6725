package dsp

import (
	"errors"
	"math"
	"testing"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

func makeSpectra(count, bins int) []Spectrum {
	spectra := make([]Spectrum, count)
	for i := range spectra {
		power := make([]float64, bins)
		for k := range power {
			power[k] = float64(i*bins+k) + 0.1
		}
		spectra[i] = Spectrum{Resolution: 2, Power: power}
	}
	return spectra
}

func TestWelchFactorOneIsIdentity(t *testing.T) {
	w, err := NewWelch(1, 500, 1000)
	if err != nil {
		t.Fatal(err)
	}
	in := makeSpectra(5, 4)
	blocks := w.Average(in)
	if len(blocks) != len(in) {
		t.Fatalf("got %d blocks, want %d", len(blocks), len(in))
	}
	for i, b := range blocks {
		for k := range in[i].Power {
			if b.Spectrum.Power[k] != in[i].Power[k] {
				t.Errorf("block %d bin %d = %v, want %v", i, k, b.Spectrum.Power[k], in[i].Power[k])
			}
		}
		if b.Offset != float64(i)*0.5 {
			t.Errorf("block %d offset = %v, want %v", i, b.Offset, float64(i)*0.5)
		}
	}
}

func TestWelchAveragesAndDropsTrailingGroup(t *testing.T) {
	w, err := NewWelch(3, 100, 1000)
	if err != nil {
		t.Fatal(err)
	}
	in := makeSpectra(8, 2) // two full groups, trailing group of 2 dropped
	blocks := w.Average(in)
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (incomplete trailing group dropped)", len(blocks))
	}

	for b, block := range blocks {
		if block.FirstFrame != b*3 || block.Frames != 3 {
			t.Errorf("block %d covers frames %d+%d, want %d+3", b, block.FirstFrame, block.Frames, b*3)
		}
		for k := range block.Spectrum.Power {
			var want float64
			for f := b * 3; f < b*3+3; f++ {
				want += in[f].Power[k]
			}
			want /= 3
			if math.Abs(block.Spectrum.Power[k]-want) > 1e-12 {
				t.Errorf("block %d bin %d = %v, want %v", b, k, block.Spectrum.Power[k], want)
			}
		}
		// block duration = 3 × 100 / 1000 s
		if math.Abs(block.Offset-float64(b)*0.3) > 1e-12 {
			t.Errorf("block %d offset = %v, want %v", b, block.Offset, float64(b)*0.3)
		}
	}
	if blocks[0].Spectrum.Resolution != 2 {
		t.Errorf("resolution = %v, want 2", blocks[0].Spectrum.Resolution)
	}
}

func TestWelchFactorLargerThanFrames(t *testing.T) {
	w, err := NewWelch(10, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if blocks := w.Average(makeSpectra(9, 3)); len(blocks) != 0 {
		t.Errorf("got %d blocks, want 0", len(blocks))
	}
}

func TestWelchDoesNotMutateInput(t *testing.T) {
	w, _ := NewWelch(2, 1, 1)
	in := makeSpectra(4, 3)
	before := in[0].Power[1]
	w.Average(in)
	if in[0].Power[1] != before {
		t.Errorf("input mutated: %v -> %v", before, in[0].Power[1])
	}
}

func TestNewWelchErrors(t *testing.T) {
	tests := []struct {
		name       string
		factor     int
		hop        int
		sampleRate float64
	}{
		{"zero factor", 0, 10, 100},
		{"zero hop", 1, 0, 100},
		{"zero rate", 1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewWelch(tt.factor, tt.hop, tt.sampleRate); !errors.Is(err, pamerr.ErrConfig) {
				t.Errorf("NewWelch error = %v, want config error", err)
			}
		})
	}
}
