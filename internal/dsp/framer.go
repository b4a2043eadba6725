package dsp

import (
	"iter"
	"math"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// WindowSpec describes how a sample stream is cut into frames
type WindowSpec struct {
	Type    WindowType
	Length  int     // samples per frame
	Overlap float64 // fraction of a frame shared with the next, in [0, 1)
}

// Hop returns the frame advance in samples: round(Length × (1 − Overlap))
func (s WindowSpec) Hop() int {
	return int(math.Round(float64(s.Length) * (1 - s.Overlap)))
}

// Validate checks that the window can advance through a stream
func (s WindowSpec) Validate() error {
	if s.Length <= 0 {
		return pamerr.Config("framer", "window length must be > 0, got %d", s.Length)
	}
	if s.Overlap < 0 || s.Overlap >= 1 || math.IsNaN(s.Overlap) {
		return pamerr.Config("framer", "overlap fraction must be in [0, 1), got %g", s.Overlap)
	}
	if s.Hop() < 1 {
		return pamerr.Config("framer", "overlap %g with window length %d gives a zero frame advance", s.Overlap, s.Length)
	}
	return nil
}

// FrameCount returns the number of whole frames that fit in n samples.
// The partial frame that would run past the end is never produced.
func FrameCount(n, length, hop int) int {
	if length <= 0 || hop <= 0 || n < length {
		return 0
	}
	return (n-length)/hop + 1
}

// Frame is one windowed slice of a sample stream
type Frame struct {
	Index    int       // frame number within the stream
	Start    int       // index of the first sample
	Raw      []float64 // full-scale normalised samples, before tapering
	Windowed []float64 // Raw multiplied by the window coefficients
}

// Framer slices a stream of digital counts into overlapping windowed frames
type Framer struct {
	samples   []float64
	fullScale float64
	window    *Window
	hop       int
}

// NewFramer validates spec and prepares a framer over samples.
// fullScale is the digital amplitude mapped to 1.0; values <= 0 mean samples are already normalised.
func NewFramer(samples []float64, fullScale float64, spec WindowSpec) (*Framer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	window, err := NewWindow(spec.Type, spec.Length)
	if err != nil {
		return nil, err
	}
	if fullScale <= 0 {
		fullScale = 1
	}
	return &Framer{
		samples:   samples,
		fullScale: fullScale,
		window:    window,
		hop:       spec.Hop(),
	}, nil
}

// Window returns the tapering window shared by every frame
func (f *Framer) Window() *Window { return f.window }

// Hop returns the frame advance in samples
func (f *Framer) Hop() int { return f.hop }

// Count returns how many frames Frames yields
func (f *Framer) Count() int {
	return FrameCount(len(f.samples), f.window.Len(), f.hop)
}

// Frame builds frame i. It panics if i is out of range.
func (f *Framer) Frame(i int) Frame {
	length := f.window.Len()
	start := i * f.hop
	raw := make([]float64, length)
	windowed := make([]float64, length)
	for j, s := range f.samples[start : start+length] {
		v := s / f.fullScale
		raw[j] = v
		windowed[j] = v * f.window.Coefficients[j]
	}
	return Frame{Index: i, Start: start, Raw: raw, Windowed: windowed}
}

// Frames returns a lazy sequence of frames in temporal order.
// Each call starts again from the first frame.
func (f *Framer) Frames() iter.Seq2[int, Frame] {
	return func(yield func(int, Frame) bool) {
		count := f.Count()
		for i := 0; i < count; i++ {
			if !yield(i, f.Frame(i)) {
				return
			}
		}
	}
}
