package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/config"
	"github.com/linuxmatters/pamguide/internal/report"
)

// discoverInputs expands args, or fallback when args is empty, into WAV
// paths. Directories contribute their *.wav entries in name order.
func discoverInputs(args []string, fallback string) ([]string, error) {
	if len(args) == 0 && fallback != "" {
		args = []string{fallback}
	}
	if len(args) == 0 {
		return nil, errors.New("no input files specified")
	}

	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read input directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		if len(found) == 0 {
			logrus.WithField("dir", arg).Warn("no WAV files found")
		}
		slices.Sort(found)
		inputs = append(inputs, found...)
	}

	if len(inputs) == 0 {
		return nil, errors.New("no WAV files found in the given inputs")
	}
	return inputs, nil
}

// writeOutputs writes the CSVs and report cfg asks for and returns their
// paths. A batch of one always gets its own CSV; larger batches get
// per-file CSVs only on request. A PSD bin mismatch skips the batch
// summary CSV but leaves the other outputs in place.
func writeOutputs(cfg *config.Config, settings analysis.Settings, batch *analysis.BatchResult, dir string, data report.SummaryData) ([]string, error) {
	var outputs []string
	var errs []error

	if cfg.WriteCSV && len(batch.Files) > 0 {
		w, err := report.NewCSVWriter(dir, settings)
		if err != nil {
			return nil, err
		}

		single := len(batch.Files)+len(batch.Failures) == 1
		if single || cfg.WriteIndividualBatchCSVs {
			for i := range batch.Files {
				path, err := w.WriteFile(&batch.Files[i])
				if err != nil {
					errs = append(errs, err)
					continue
				}
				outputs = append(outputs, path)
			}
		}

		if !single && cfg.CreateBatchSummaryFile {
			path, err := w.WriteBatch(batch)
			switch {
			case errors.Is(err, report.ErrBinMismatch):
				logrus.WithError(err).Error("batch summary CSV skipped")
				errs = append(errs, err)
			case err != nil:
				errs = append(errs, err)
			default:
				outputs = append(outputs, path)
			}
		}
	}

	if cfg.WriteSummaryReport {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Errorf("create output directory: %w", err))
		} else if path, err := report.WriteSummaryFile(dir, data); err != nil {
			errs = append(errs, err)
		} else {
			outputs = append(outputs, path)
		}
	}

	for _, out := range outputs {
		logrus.WithField("path", out).Info("wrote output")
	}
	return outputs, errors.Join(errs...)
}
