// Package dsp implements the spectral-analysis stages of the pipeline:
// windowing, framing, periodogram estimation, Welch averaging and band integration.
package dsp

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/pamguide/internal/pamerr"
	"gonum.org/v1/gonum/floats"
)

// WindowType selects the tapering function applied to each frame
type WindowType int

const (
	Hann WindowType = iota + 1
	Hamming
	Blackman
	Rectangular
)

func (w WindowType) String() string {
	switch w {
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Blackman:
		return "Blackman"
	case Rectangular:
		return "Rectangular"
	default:
		return fmt.Sprintf("WindowType(%d)", int(w))
	}
}

// ParseWindowType maps a config name to a WindowType.
// "none" is accepted as an alias for rectangular.
func ParseWindowType(name string) (WindowType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "rectangular", "rect", "none":
		return Rectangular, nil
	default:
		return 0, pamerr.Config("window", "unknown window type %q; valid values: hann, hamming, blackman, rectangular", name)
	}
}

// Window holds tapering coefficients and their energy statistics
type Window struct {
	Type         WindowType
	Coefficients []float64
	SumSquares   float64 // Σw², the periodogram normaliser
	Correction   float64 // len(w) / Σw², restores unbiased power after tapering
}

// NewWindow builds a periodic (DFT-even) window of the given type and length
func NewWindow(kind WindowType, length int) (*Window, error) {
	if length <= 0 {
		return nil, pamerr.Config("window", "length must be > 0, got %d", length)
	}

	coeffs := make([]float64, length)
	n := float64(length)

	switch kind {
	case Rectangular:
		for i := range coeffs {
			coeffs[i] = 1
		}
		// Exact by definition, avoids any rounding in the ratio
		return &Window{Type: kind, Coefficients: coeffs, SumSquares: n, Correction: 1}, nil
	case Hann:
		for i := range coeffs {
			coeffs[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/n)
		}
	case Hamming:
		for i := range coeffs {
			coeffs[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/n)
		}
	case Blackman:
		for i := range coeffs {
			x := 2 * math.Pi * float64(i) / n
			c := 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
			// Blackman touches zero at n=0 where rounding can go a hair negative
			if c < 0 {
				c = 0
			}
			coeffs[i] = c
		}
	default:
		return nil, pamerr.Config("window", "unknown window type %v", kind)
	}

	sumSq := floats.Dot(coeffs, coeffs)
	if sumSq == 0 {
		// Only reachable for a length-1 Hann/Blackman window, which is all zeros
		return nil, pamerr.Config("window", "%v window of length %d has zero energy", kind, length)
	}

	return &Window{
		Type:         kind,
		Coefficients: coeffs,
		SumSquares:   sumSq,
		Correction:   n / sumSq,
	}, nil
}

// Len returns the window length in samples
func (w *Window) Len() int {
	return len(w.Coefficients)
}
