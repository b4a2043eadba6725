package dsp

import (
	"github.com/linuxmatters/pamguide/internal/pamerr"
	"gonum.org/v1/gonum/floats"
)

// Block is one Welch-averaged spectrum
type Block struct {
	Index      int     // block number within the recording
	FirstFrame int     // index of the first frame averaged into this block
	Frames     int     // number of frames averaged
	Offset     float64 // seconds from recording start
	Spectrum   Spectrum
}

// Welch groups consecutive frame spectra into averaged blocks
type Welch struct {
	Factor     int     // frames per block, >= 1
	Hop        int     // frame advance in samples
	SampleRate float64 // Hz
}

// NewWelch validates the averaging parameters
func NewWelch(factor, hop int, sampleRate float64) (*Welch, error) {
	if factor < 1 {
		return nil, pamerr.Config("welch", "welch factor must be >= 1, got %d", factor)
	}
	if hop < 1 {
		return nil, pamerr.Config("welch", "hop must be >= 1, got %d", hop)
	}
	if sampleRate <= 0 {
		return nil, pamerr.Config("welch", "sample rate must be > 0, got %g", sampleRate)
	}
	return &Welch{Factor: factor, Hop: hop, SampleRate: sampleRate}, nil
}

// BlockDuration returns the time covered by one block advance in seconds
func (w *Welch) BlockDuration() float64 {
	return float64(w.Factor*w.Hop) / w.SampleRate
}

// BlockCount returns how many blocks frames spectra produce.
// A trailing group shorter than Factor is dropped so every block averages the same number of frames.
func (w *Welch) BlockCount(frames int) int {
	return frames / w.Factor
}

// Average reduces per-frame spectra, in temporal order, into blocks.
// With Factor 1 every input spectrum is passed through unchanged.
func (w *Welch) Average(spectra []Spectrum) []Block {
	count := w.BlockCount(len(spectra))
	blocks := make([]Block, count)
	duration := w.BlockDuration()

	for b := range blocks {
		first := b * w.Factor
		group := spectra[first : first+w.Factor]

		var avg Spectrum
		if w.Factor == 1 {
			avg = group[0]
		} else {
			sum := make([]float64, len(group[0].Power))
			for _, s := range group {
				floats.Add(sum, s.Power)
			}
			floats.Scale(1/float64(w.Factor), sum)
			avg = Spectrum{Resolution: group[0].Resolution, Power: sum}
		}

		blocks[b] = Block{
			Index:      b,
			FirstFrame: first,
			Frames:     w.Factor,
			Offset:     float64(b) * duration,
			Spectrum:   avg,
		}
	}
	return blocks
}
