// Package audio provides audio file I/O using go-audio/wav
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// WAV format tags; compressed and extensible formats are rejected
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
	Float      bool // IEEE float samples rather than integer PCM
	Frames     int  // samples per channel
}

// Stream is one channel of a recording as signed digital counts, or as
// [-1, 1] values for float WAV. It is not modified after decoding.
type Stream struct {
	Samples    []float64 // digital counts, signed
	SampleRate float64   // Hz
	BitDepth   int
	Float      bool
	Channels   int     // channels in the source file; Samples holds one of them
	FullScale  float64 // largest positive count, the 0 dBFS reference; 1 for float
}

// Duration returns the stream length in seconds
func (s *Stream) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / s.SampleRate
}

// FullScaleFor returns the largest positive sample value for a signed integer bit depth
func FullScaleFor(bitDepth int) float64 {
	if bitDepth <= 1 {
		return 1
	}
	return math.Exp2(float64(bitDepth-1)) - 1
}

// ReadFile decodes the WAV file at path and extracts one channel.
// Any failure is a decode error for this file only.
func ReadFile(path string, channel int) (*Stream, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, pamerr.Decode("open", err)
	}
	defer f.Close()

	stream, meta, err := Decode(f, channel)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return stream, meta, nil
}

// Decode reads an integer PCM or 32-bit float WAV from r and extracts
// channel (0-based)
func Decode(r io.ReadSeeker, channel int) (*Stream, *Metadata, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, nil, pamerr.Decode("decode", errors.New("invalid WAV file"))
	}
	switch decoder.WavAudioFormat {
	case wavFormatPCM:
	case wavFormatFloat:
		// go-audio decodes 32-bit words only, as raw bit patterns
		if decoder.BitDepth != 32 {
			return nil, nil, pamerr.Decode("decode", fmt.Errorf("unsupported %d-bit float WAV; only 32-bit float is supported", decoder.BitDepth))
		}
	default:
		return nil, nil, pamerr.Decode("decode", fmt.Errorf("unsupported WAV format tag %d; only integer PCM and IEEE float are supported", decoder.WavAudioFormat))
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, nil, pamerr.Decode("decode", fmt.Errorf("could not read PCM buffer: %w", err))
	}

	meta := metadataFor(decoder, buf)
	if meta.SampleRate <= 0 {
		return nil, nil, pamerr.Decode("decode", fmt.Errorf("invalid sample rate %d", meta.SampleRate))
	}
	if channel < 0 || channel >= meta.Channels {
		return nil, nil, pamerr.Decode("decode", fmt.Errorf("channel %d requested but file has %d channel(s)", channel, meta.Channels))
	}

	return extractChannel(buf.Data, meta, channel), meta, nil
}

func metadataFor(decoder *wav.Decoder, buf *goaudio.IntBuffer) *Metadata {
	channels := int(decoder.NumChans)
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		channels = buf.Format.NumChannels
	}
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels

	sampleRate := int(decoder.SampleRate)
	duration := 0.0
	if sampleRate > 0 {
		duration = float64(frames) / float64(sampleRate)
	}
	return &Metadata{
		Duration:   duration,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   int(decoder.BitDepth),
		Float:      decoder.WavAudioFormat == wavFormatFloat,
		Frames:     frames,
	}
}

// extractChannel de-interleaves one channel into signed counts.
// 8-bit WAV is unsigned, so it is re-centred on zero. Float words
// arrive as int32 bit patterns and are reinterpreted.
func extractChannel(data []int, meta *Metadata, channel int) *Stream {
	samples := make([]float64, meta.Frames)
	fullScale := FullScaleFor(meta.BitDepth)
	switch {
	case meta.Float:
		fullScale = 1
		for i := range samples {
			samples[i] = float64(math.Float32frombits(uint32(data[i*meta.Channels+channel])))
		}
	default:
		bias := 0
		if meta.BitDepth == 8 {
			bias = 128
		}
		for i := range samples {
			samples[i] = float64(data[i*meta.Channels+channel] - bias)
		}
	}
	return &Stream{
		Samples:    samples,
		SampleRate: float64(meta.SampleRate),
		BitDepth:   meta.BitDepth,
		Float:      meta.Float,
		Channels:   meta.Channels,
		FullScale:  fullScale,
	}
}
