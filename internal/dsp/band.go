package dsp

import (
	"math"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// Band is a closed frequency interval [Low, High] in Hz
type Band struct {
	Low  float64
	High float64
}

// Validate checks the band on its own, independent of any sample rate
func (b Band) Validate() error {
	if math.IsNaN(b.Low) || math.IsNaN(b.High) {
		return pamerr.Config("band", "cutoffs must be numbers")
	}
	if b.Low >= b.High {
		return pamerr.Config("band", "low cutoff %g Hz must be less than high cutoff %g Hz", b.Low, b.High)
	}
	return nil
}

// Integrator sums spectral power over a fixed set of bins
type Integrator struct {
	Band  Band
	first int // first bin index inside the band
	last  int // last bin index inside the band (inclusive)
}

// NewIntegrator resolves band to bin indices for spectra with the given
// resolution and bin count. It fails when no bin falls inside the band.
func NewIntegrator(band Band, resolution float64, bins int) (*Integrator, error) {
	if err := band.Validate(); err != nil {
		return nil, err
	}
	if bins < 1 || resolution <= 0 {
		return nil, pamerr.Config("band", "spectrum has no bins")
	}
	nyquist := resolution * float64(bins-1)
	if band.High < 0 || band.Low > nyquist {
		return nil, pamerr.Config("band", "band [%g, %g] Hz lies outside [0, %g] Hz", band.Low, band.High, nyquist)
	}

	first, last := -1, -1
	for k := 0; k < bins; k++ {
		f := float64(k) * resolution
		if f < band.Low || f > band.High {
			continue
		}
		if first < 0 {
			first = k
		}
		last = k
	}
	if first < 0 {
		return nil, pamerr.Config("band", "band [%g, %g] Hz contains no bins at %g Hz resolution", band.Low, band.High, resolution)
	}
	return &Integrator{Band: band, first: first, last: last}, nil
}

// Bins returns the inclusive bin index range selected by the band
func (in *Integrator) Bins() (first, last int) {
	return in.first, in.last
}

// Select returns the in-band slice of a linear spectrum
func (in *Integrator) Select(s Spectrum) []float64 {
	return s.Power[in.first : in.last+1]
}

// Power sums the linear in-band bins: Σ P(k). A band of k bins at
// constant power p gives exactly k·p whatever the resolution.
func (in *Integrator) Power(s Spectrum) float64 {
	var sum float64
	for _, p := range in.Select(s) {
		sum += p
	}
	return sum
}

// Level returns the band power in dB with offset added afterwards.
// Zero power yields -Inf rather than NaN.
func (in *Integrator) Level(s Spectrum, offset float64) float64 {
	return PowerToDB(in.Power(s)) + offset
}

// PowerToDB converts linear power to 10·log10(p). Non-positive power maps to -Inf.
func PowerToDB(p float64) float64 {
	if p <= 0 || math.IsNaN(p) {
		return math.Inf(-1)
	}
	return 10 * math.Log10(p)
}
