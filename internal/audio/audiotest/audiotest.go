// Package audiotest generates synthetic recordings for tests
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Options configures the synthetic audio to generate
type Options struct {
	DurationSecs float64 // Total duration in seconds (default: 1)
	SampleRate   int     // Sample rate (default: 10000)
	BitDepth     int     // 8, 16, 24 or 32 (default: 16)
	Channels     int     // Interleaved channels, all carrying the same signal (default: 1)
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone peak level in dBFS (e.g., -6.0)
	NoiseLevel   float64 // White noise level in dBFS (0 = no noise, -60 = quiet noise)
}

func (o *Options) defaults() {
	if o.SampleRate == 0 {
		o.SampleRate = 10000
	}
	if o.DurationSecs == 0 {
		o.DurationSecs = 1
	}
	if o.BitDepth == 0 {
		o.BitDepth = 16
	}
	if o.Channels == 0 {
		o.Channels = 1
	}
}

// Floats returns one channel of samples in [-1, 1] described by opts
func Floats(opts Options) []float64 {
	opts.defaults()

	total := int(math.Round(opts.DurationSecs * float64(opts.SampleRate)))

	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel <= 0 {
		toneAmp = math.Pow(10, opts.ToneLevel/20)
	}
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10, opts.NoiseLevel/20)
	}

	// LCG from Numerical Recipes keeps the noise deterministic
	rng := uint32(12345)
	next := func() float64 {
		rng = rng*1664525 + 1013904223
		return float64(rng)/float64(math.MaxUint32)*2 - 1
	}

	samples := make([]float64, total)
	for i := range samples {
		var v float64
		if toneAmp > 0 {
			v += toneAmp * math.Sin(2*math.Pi*opts.ToneFreq*float64(i)/float64(opts.SampleRate))
		}
		if noiseAmp > 0 {
			v += noiseAmp * next()
		}
		samples[i] = math.Max(-1, math.Min(1, v))
	}
	return samples
}

// Samples returns one channel of signed integer samples described by opts
func Samples(opts Options) []int {
	opts.defaults()
	fullScale := math.Exp2(float64(opts.BitDepth-1)) - 1

	floats := Floats(opts)
	samples := make([]int, len(floats))
	for i, v := range floats {
		samples[i] = int(math.Round(v * fullScale))
	}
	return samples
}

// WriteWAV writes a PCM WAV file. samples holds one channel and is duplicated
// across every channel. 8-bit output is offset to unsigned as the format requires.
func WriteWAV(t testing.TB, path string, samples []int, sampleRate, bitDepth, channels int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, 0, len(samples)*channels)
	for _, s := range samples {
		if bitDepth == 8 {
			s += 128
		}
		for c := 0; c < channels; c++ {
			data = append(data, s)
		}
	}

	encode(t, f, path, data, sampleRate, bitDepth, channels, 1)
}

// WriteFloatWAV writes a 32-bit IEEE float WAV (format tag 3). samples
// holds one channel and is duplicated across every channel.
func WriteFloatWAV(t testing.TB, path string, samples []float64, sampleRate, channels int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	// the encoder writes 32-bit ints verbatim, so pass the float bit patterns
	data := make([]int, 0, len(samples)*channels)
	for _, s := range samples {
		bits := int(int32(math.Float32bits(float32(s))))
		for c := 0; c < channels; c++ {
			data = append(data, bits)
		}
	}
	encode(t, f, path, data, sampleRate, 32, channels, 3)
}

func encode(t testing.TB, f *os.File, path string, data []int, sampleRate, bitDepth, channels, format int) {
	t.Helper()
	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, format)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// Generate writes a WAV built from opts into dir/name and returns its path
func Generate(t testing.TB, dir, name string, opts Options) string {
	t.Helper()
	opts.defaults()
	path := filepath.Join(dir, name)
	WriteWAV(t, path, Samples(opts), opts.SampleRate, opts.BitDepth, opts.Channels)
	return path
}
