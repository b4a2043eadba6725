package analysis

import (
	"cmp"
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/linuxmatters/pamguide/internal/observe"
	"github.com/linuxmatters/pamguide/internal/pamerr"
)

// EventKind distinguishes progress notifications
type EventKind int

const (
	// FileStarted is sent when a worker picks up a recording
	FileStarted EventKind = iota + 1
	// FileDone is sent when a recording finishes, successfully or not
	FileDone
)

// Event reports batch progress. Result is set for a successful FileDone,
// Err for a failed one.
type Event struct {
	Kind   EventKind
	Index  int // position in the input list
	Total  int
	Path   string
	Result *FileResult
	Err    error
}

// Aggregator runs the pipeline over many recordings on a bounded worker pool
type Aggregator struct {
	settings Settings
	metrics  *observe.Metrics
	progress func(Event)
	log      logrus.FieldLogger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithMetrics records per-file outcomes on m
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithProgress sends progress events to fn. fn is called from worker
// goroutines and must be safe for concurrent use.
func WithProgress(fn func(Event)) Option {
	return func(a *Aggregator) { a.progress = fn }
}

// WithLogger replaces the default logrus standard logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Aggregator) { a.log = l }
}

// NewAggregator returns an Aggregator for settings
func NewAggregator(settings Settings, opts ...Option) *Aggregator {
	a := &Aggregator{
		settings: settings,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run analyses every path and returns the collated batch. A failing file
// is recorded in Failures and never stops the others. If ctx is cancelled,
// files not yet finished are recorded as failures, finished results are
// kept, and the context error is returned alongside the partial batch.
func (a *Aggregator) Run(ctx context.Context, paths []string) (*BatchResult, error) {
	total := len(paths)
	results := make([]*FileResult, total)
	errs := make([]error, total)

	var g errgroup.Group
	g.SetLimit(a.settings.Workers())

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			results[i], errs[i] = a.runOne(ctx, i, total, path)
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{}
	for i, path := range paths {
		if errs[i] != nil {
			batch.Failures = append(batch.Failures, FileFailure{Path: path, Name: filepath.Base(path), Err: errs[i]})
			continue
		}
		batch.Files = append(batch.Files, *results[i])
	}
	Collate(batch.Files)

	return batch, ctx.Err()
}

func (a *Aggregator) runOne(ctx context.Context, index, total int, path string) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.emit(Event{Kind: FileStarted, Index: index, Total: total, Path: path})
	log := a.log.WithField("file", filepath.Base(path))
	log.Debug("analysing recording")

	started := time.Now()
	result, err := AnalyzeFile(ctx, path, a.settings)
	elapsed := time.Since(started)

	if err != nil {
		log.WithFields(logrus.Fields{
			"kind":  pamerr.KindOf(err).String(),
			"error": err,
		}).Warn("skipping recording")
		a.metrics.RecordFile(ctx, observe.StatusFailed, pamerr.KindOf(err).String(), elapsed, 0, 0, 0)
		a.emit(Event{Kind: FileDone, Index: index, Total: total, Path: path, Err: err})
		return nil, err
	}

	for _, w := range result.Warnings {
		log.WithField("warning", w).Warn("using relative time")
	}
	if n := result.NonFiniteBlocks(); n > 0 {
		err := result.NumericErr()
		log.WithFields(logrus.Fields{
			"kind":   pamerr.KindOf(err).String(),
			"blocks": n,
			"error":  err,
		}).Debug("blocks hold non-finite values")
	}
	log.WithFields(logrus.Fields{
		"frames":  result.Frames,
		"blocks":  len(result.Blocks),
		"elapsed": elapsed.Round(time.Millisecond),
	}).Debug("recording analysed")

	a.metrics.RecordFile(ctx, observe.StatusOK, "", elapsed, result.Frames, len(result.Blocks), len(result.Warnings))
	a.emit(Event{Kind: FileDone, Index: index, Total: total, Path: path, Result: result})
	return result, nil
}

func (a *Aggregator) emit(e Event) {
	if a.progress != nil {
		a.progress(e)
	}
}

// Collate sorts files into batch order: by start time when every file has
// a timestamp, otherwise by filename. Ties break on filename then path, so
// the order never depends on completion order.
func Collate(files []FileResult) {
	byTime := len(files) > 0
	for i := range files {
		if !files[i].HasTimestamp {
			byTime = false
			break
		}
	}

	slices.SortStableFunc(files, func(x, y FileResult) int {
		if byTime {
			if c := x.Start.Compare(y.Start); c != 0 {
				return c
			}
		}
		return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.Path, y.Path))
	})
}
