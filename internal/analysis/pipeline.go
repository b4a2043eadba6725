package analysis

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/linuxmatters/pamguide/internal/audio"
	"github.com/linuxmatters/pamguide/internal/dsp"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// Analyze runs the spectral pipeline over one decoded recording:
// framing, periodograms, Welch averaging, calibration and, for broadband
// analysis, band integration. Identity fields (Path, Name, Start) are left
// for the caller.
//
// Checks that depend on the recording (window longer than the file, band
// beyond Nyquist) fail with Config-kind errors.
func Analyze(ctx context.Context, stream *audio.Stream, settings Settings) (*FileResult, error) {
	fs := stream.SampleRate
	length := settings.FrameLength(fs)
	spec := dsp.WindowSpec{Type: settings.Window(), Length: length, Overlap: settings.Overlap()}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(stream.Samples) < length {
		return nil, pamerr.Config("window", "recording has %d samples, shorter than the %d-sample window", len(stream.Samples), length)
	}

	framer, err := dsp.NewFramer(stream.Samples, stream.FullScale, spec)
	if err != nil {
		return nil, err
	}
	estimator, err := dsp.NewEstimator(framer.Window(), fs)
	if err != nil {
		return nil, err
	}
	band := settings.BandFor(fs)
	integrator, err := dsp.NewIntegrator(band, estimator.Resolution(), estimator.Bins())
	if err != nil {
		return nil, err
	}
	welch, err := dsp.NewWelch(settings.WelchFactor(), framer.Hop(), fs)
	if err != nil {
		return nil, err
	}

	spectra, err := estimateFrames(ctx, framer, fs, settings.FrameWorkers())
	if err != nil {
		return nil, err
	}

	calibrator := settings.Calibrator()
	averaged := welch.Average(spectra)
	blocks := make([]TimeBlock, len(averaged))
	for i, b := range averaged {
		tb := TimeBlock{
			Index:    b.Index,
			Offset:   b.Offset,
			Spectrum: b.Spectrum,
			PSD:      calibrator.Spectrum(b.Spectrum.Power),
		}
		if settings.Type() == Broadband {
			tb.Broadband = calibrator.Level(integrator.Power(b.Spectrum))
			tb.HasBroadband = true
			tb.Err = checkFinite("broadband", b.Index, []float64{tb.Broadband})
		} else {
			tb.Err = checkFinite("psd", b.Index, integrator.Select(dsp.Spectrum{Resolution: b.Spectrum.Resolution, Power: tb.PSD}))
		}
		tb.NonFinite = tb.Err != nil
		blocks[i] = tb
	}

	first, last := integrator.Bins()
	peak, dc := sampleStats(stream.Samples, stream.FullScale)
	return &FileResult{
		SampleRate: fs,
		BitDepth:   stream.BitDepth,
		Float:      stream.Float,
		Channels:   stream.Channels,
		Duration:   stream.Duration(),
		Peak:       peak,
		DCOffset:   dc,
		Window:     spec,
		Hop:        framer.Hop(),
		Resolution: estimator.Resolution(),
		Band:       band,
		BandFirst:  first,
		BandLast:   last,
		Frames:     len(spectra),
		Blocks:     blocks,
	}, nil
}

// sampleStats returns the peak magnitude and mean of samples relative to fullScale
func sampleStats(samples []float64, fullScale float64) (peak, dc float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	if fullScale <= 0 {
		fullScale = 1
	}
	peak = math.Max(floats.Max(samples), -floats.Min(samples)) / fullScale
	dc = floats.Sum(samples) / float64(len(samples)) / fullScale
	return peak, dc
}

// AnalyzeFile decodes path, analyses the configured channel and stamps the
// result with the start time parsed from the filename. A timestamp that
// cannot be parsed becomes a warning and the blocks keep relative offsets.
func AnalyzeFile(ctx context.Context, path string, settings Settings) (*FileResult, error) {
	started := time.Now()

	stream, _, err := audio.ReadFile(path, settings.Channel())
	if err != nil {
		return nil, err
	}
	result, err := Analyze(ctx, stream, settings)
	if err != nil {
		return nil, err
	}
	result.Path = path
	result.Name = filepath.Base(path)

	if layout := settings.TimestampLayout(); layout != "" {
		start, err := ParseTimestamp(path, layout, settings.Location())
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		} else {
			result.Start = start
			result.HasTimestamp = true
			for i := range result.Blocks {
				b := &result.Blocks[i]
				b.Time = start.Add(time.Duration(b.Offset * float64(time.Second)))
			}
		}
	}

	result.ProcessTime = time.Since(started)
	return result, nil
}

// estimateFrames computes one periodogram per frame. With workers > 1 the
// frames are split into contiguous chunks, each estimated by its own
// Estimator because FFT work buffers cannot be shared.
func estimateFrames(ctx context.Context, framer *dsp.Framer, fs float64, workers int) ([]dsp.Spectrum, error) {
	count := framer.Count()
	spectra := make([]dsp.Spectrum, count)
	if count == 0 {
		return spectra, nil
	}

	if workers <= 1 || count < 2 {
		estimator, err := dsp.NewEstimator(framer.Window(), fs)
		if err != nil {
			return nil, err
		}
		for i, frame := range framer.Frames() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, err := estimator.Estimate(frame.Windowed)
			if err != nil {
				return nil, err
			}
			spectra[i] = s
		}
		return spectra, nil
	}

	workers = min(workers, count)
	chunk := (count + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < count; lo += chunk {
		hi := min(lo+chunk, count)
		g.Go(func() error {
			estimator, err := dsp.NewEstimator(framer.Window(), fs)
			if err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				s, err := estimator.Estimate(framer.Frame(i).Windowed)
				if err != nil {
					return err
				}
				spectra[i] = s
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return spectra, nil
}
