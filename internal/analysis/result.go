package analysis

import (
	"math"
	"time"

	"github.com/linuxmatters/pamguide/internal/dsp"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// TimeBlock is one Welch-averaged block of a recording
type TimeBlock struct {
	Index  int
	Offset float64   // seconds from the start of the recording
	Time   time.Time // absolute start, zero when the recording has no timestamp

	// Spectrum is the linear, full-scale referenced PSD for every bin
	Spectrum dsp.Spectrum
	// PSD holds the reported value per bin: calibrated dB, or linear FS²/Hz when uncalibrated
	PSD []float64

	Broadband    float64 // band level in dB, set when HasBroadband
	HasBroadband bool

	// NonFinite marks a block whose reported values include ±Inf or NaN,
	// usually the log of zero power. Err then holds the Numeric-kind cause.
	NonFinite bool
	Err       error
}

// FileResult is the analysis of one recording
type FileResult struct {
	Path string
	Name string // base filename

	SampleRate float64
	BitDepth   int
	Float      bool // IEEE float samples
	Channels   int
	Duration   float64 // seconds

	// Peak is the largest sample magnitude and DCOffset the sample mean,
	// both relative to full scale
	Peak     float64
	DCOffset float64

	Start        time.Time // parsed from the filename
	HasTimestamp bool

	Window      dsp.WindowSpec // resolved to samples at this file's rate
	Hop         int
	Resolution  float64 // Hz per bin
	Band        dsp.Band
	BandFirst   int // first in-band bin
	BandLast    int // last in-band bin, inclusive
	Frames      int
	Blocks      []TimeBlock
	Warnings    []string
	ProcessTime time.Duration
}

// Frequencies returns the centre frequency of every in-band bin
func (r *FileResult) Frequencies() []float64 {
	out := make([]float64, 0, r.BandLast-r.BandFirst+1)
	for k := r.BandFirst; k <= r.BandLast; k++ {
		out = append(out, float64(k)*r.Resolution)
	}
	return out
}

// BandPSD returns the in-band slice of a block's reported PSD
func (r *FileResult) BandPSD(b TimeBlock) []float64 {
	return b.PSD[r.BandFirst : r.BandLast+1]
}

// BandPower sums a block's linear in-band bins
func (r *FileResult) BandPower(b TimeBlock) float64 {
	var sum float64
	for _, p := range b.Spectrum.Power[r.BandFirst : r.BandLast+1] {
		sum += p
	}
	return sum
}

// MeanBandPower is the energy mean of BandPower over every block,
// or NaN when the file has no blocks
func (r *FileResult) MeanBandPower() float64 {
	if len(r.Blocks) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, b := range r.Blocks {
		sum += r.BandPower(b)
	}
	return sum / float64(len(r.Blocks))
}

// NonFiniteBlocks counts blocks flagged NonFinite
func (r *FileResult) NonFiniteBlocks() int {
	n := 0
	for _, b := range r.Blocks {
		if b.NonFinite {
			n++
		}
	}
	return n
}

// NumericErr returns the Err of the first NonFinite block, or nil
func (r *FileResult) NumericErr() error {
	for _, b := range r.Blocks {
		if b.Err != nil {
			return b.Err
		}
	}
	return nil
}

// FileFailure records a recording that produced no result
type FileFailure struct {
	Path string
	Name string
	Err  error
}

// Kind returns the error kind that skipped the file
func (f FileFailure) Kind() pamerr.Kind { return pamerr.KindOf(f.Err) }

// BatchResult is the collated output of a batch. Files are in collation
// order; Failures are in input order.
type BatchResult struct {
	Files    []FileResult
	Failures []FileFailure
}

// Blocks counts time blocks across every successful file
func (b *BatchResult) Blocks() int {
	n := 0
	for i := range b.Files {
		n += len(b.Files[i].Blocks)
	}
	return n
}

// Warnings counts warnings across every successful file
func (b *BatchResult) Warnings() int {
	n := 0
	for i := range b.Files {
		n += len(b.Files[i].Warnings)
	}
	return n
}

// checkFinite returns a Numeric error naming the first ±Inf or NaN in values
func checkFinite(op string, block int, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pamerr.Numeric(op, "block %d value %d is %g", block, i, v)
		}
	}
	return nil
}
