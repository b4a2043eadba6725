package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum is a one-sided power spectrum with evenly spaced bins.
// Bin k sits at k × Resolution Hz.
type Spectrum struct {
	Resolution float64   // bin spacing in Hz (sampleRate / frame length)
	Power      []float64 // one value per bin, linear units
}

// Frequency returns the centre frequency of bin k in Hz
func (s Spectrum) Frequency(k int) float64 {
	return float64(k) * s.Resolution
}

// Frequencies returns the centre frequency of every bin
func (s Spectrum) Frequencies() []float64 {
	freqs := make([]float64, len(s.Power))
	for k := range freqs {
		freqs[k] = s.Frequency(k)
	}
	return freqs
}

// Len returns the number of bins
func (s Spectrum) Len() int { return len(s.Power) }

// Estimator computes single-frame power spectral densities.
// An Estimator owns FFT work buffers and must not be shared between goroutines.
type Estimator struct {
	fft        *fourier.FFT
	length     int
	sampleRate float64
	scale      float64 // 2 / (fs × Σw²)
	coeffs     []complex128
}

// NewEstimator prepares an estimator for frames tapered by window at sampleRate Hz
func NewEstimator(window *Window, sampleRate float64) (*Estimator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be > 0, got %g", sampleRate)
	}
	n := window.Len()
	return &Estimator{
		fft:        fourier.NewFFT(n),
		length:     n,
		sampleRate: sampleRate,
		scale:      2 / (sampleRate * window.SumSquares),
		coeffs:     make([]complex128, n/2+1),
	}, nil
}

// Bins returns the number of one-sided bins, length/2 + 1
func (e *Estimator) Bins() int { return e.length/2 + 1 }

// Resolution returns the bin spacing in Hz
func (e *Estimator) Resolution() float64 { return e.sampleRate / float64(e.length) }

// Estimate returns the one-sided periodogram of an already windowed frame.
// Power is per Hz relative to digital full scale. DC and, for even lengths, the
// Nyquist bin are not mirrored and take half the scale of the other bins.
func (e *Estimator) Estimate(windowed []float64) (Spectrum, error) {
	if len(windowed) != e.length {
		return Spectrum{}, fmt.Errorf("frame length %d does not match estimator length %d", len(windowed), e.length)
	}

	e.coeffs = e.fft.Coefficients(e.coeffs, windowed)

	power := make([]float64, len(e.coeffs))
	for k, c := range e.coeffs {
		re, im := real(c), imag(c)
		power[k] = (re*re + im*im) * e.scale
	}
	power[0] /= 2
	if e.length%2 == 0 && len(power) > 1 {
		power[len(power)-1] /= 2
	}

	return Spectrum{Resolution: e.Resolution(), Power: power}, nil
}
