package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/dsp"
)

// ErrBinMismatch means the recordings in a PSD batch were analysed onto
// different frequency bins, so their rows cannot share one header
var ErrBinMismatch = errors.New("report: PSD frequency bins differ between recordings")

// TimeLayout formats absolute block times in CSV output
const TimeLayout = "2006-01-02 15:04:05.000"

// CSVWriter writes per-recording and batch summary CSV files.
//
// Each file starts with a header row: a blank time cell followed by the
// in-band frequencies (PSD) or the unit label (broadband). Each following
// row is one time block. The DC bin is never written.
type CSVWriter struct {
	Dir      string
	Settings analysis.Settings
}

// NewCSVWriter returns a writer for dir, creating it if needed
func NewCSVWriter(dir string, settings analysis.Settings) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &CSVWriter{Dir: dir, Settings: settings}, nil
}

// FileName returns the CSV name for a recording, e.g.
// "site4.230514093000_PSD_1.00sHann_50PercentOverlap.csv"
func FileName(recording string, s analysis.Settings) string {
	stem := strings.TrimSuffix(filepath.Base(recording), filepath.Ext(recording))

	var length string
	if s.WindowUnit() == analysis.Samples {
		length = fmt.Sprintf("%dsamples", int(s.WindowLength()))
	} else {
		length = fmt.Sprintf("%.2fs", s.WindowLength())
	}

	return fmt.Sprintf("%s_%s_%s%s_%.0fPercentOverlap.csv",
		stem, s.Type(), length, s.Window(), s.Overlap()*100)
}

// SummaryName returns the batch summary CSV name for band, e.g.
// "PAMGuide_Batch_Broadband_10Hz-4000Hz_Calibrated_Summary.csv"
func SummaryName(s analysis.Settings, band dsp.Band) string {
	mode := "Relative"
	if s.Calibrated() {
		mode = "Calibrated"
	}
	return fmt.Sprintf("PAMGuide_Batch_%s_%.0fHz-%.0fHz_%s_Summary.csv",
		s.Type(), band.Low, band.High, mode)
}

// WriteFile writes one recording's blocks and returns the file path
func (w *CSVWriter) WriteFile(r *analysis.FileResult) (string, error) {
	path := filepath.Join(w.Dir, FileName(r.Name, w.Settings))
	records := [][]string{w.header(r)}
	records = append(records, w.rows(r)...)
	if err := writeCSV(path, records); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBatch writes every recording's rows, in batch order, under one
// header and returns the file path. A PSD batch whose recordings do not
// share the same bins fails with ErrBinMismatch and writes nothing.
func (w *CSVWriter) WriteBatch(b *analysis.BatchResult) (string, error) {
	if len(b.Files) == 0 {
		return "", errors.New("report: no recordings to summarise")
	}
	first := &b.Files[0]

	if w.Settings.Type() == analysis.PSD {
		for i := 1; i < len(b.Files); i++ {
			if !sameBins(first, &b.Files[i]) {
				return "", fmt.Errorf("%w: %s and %s", ErrBinMismatch, first.Name, b.Files[i].Name)
			}
		}
	}

	records := [][]string{w.header(first)}
	for i := range b.Files {
		records = append(records, w.rows(&b.Files[i])...)
	}

	path := filepath.Join(w.Dir, SummaryName(w.Settings, first.Band))
	if err := writeCSV(path, records); err != nil {
		return "", err
	}
	return path, nil
}

func (w *CSVWriter) header(r *analysis.FileResult) []string {
	if w.Settings.Type() == analysis.Broadband {
		return []string{"", w.Settings.Units()}
	}
	freqs := psdFrequencies(r)
	header := make([]string, 0, len(freqs)+1)
	header = append(header, "")
	for _, f := range freqs {
		header = append(header, formatValue(f))
	}
	return header
}

func (w *CSVWriter) rows(r *analysis.FileResult) [][]string {
	first := psdFirstBin(r)
	rows := make([][]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		row := []string{formatTime(b, r.HasTimestamp)}
		if w.Settings.Type() == analysis.Broadband {
			row = append(row, formatValue(b.Broadband))
		} else {
			format := formatValue
			if !w.Settings.Calibrated() {
				format = formatLinear
			}
			for _, v := range b.PSD[first : r.BandLast+1] {
				row = append(row, format(v))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// psdFirstBin skips the DC bin when the band starts at 0 Hz
func psdFirstBin(r *analysis.FileResult) int {
	return max(r.BandFirst, 1)
}

func psdFrequencies(r *analysis.FileResult) []float64 {
	first := psdFirstBin(r)
	freqs := make([]float64, 0, r.BandLast-first+1)
	for k := first; k <= r.BandLast; k++ {
		freqs = append(freqs, float64(k)*r.Resolution)
	}
	return freqs
}

func sameBins(a, b *analysis.FileResult) bool {
	return a.Resolution == b.Resolution && psdFirstBin(a) == psdFirstBin(b) && a.BandLast == b.BandLast
}

func formatTime(b analysis.TimeBlock, absolute bool) string {
	if absolute {
		return b.Time.Format(TimeLayout)
	}
	return strconv.FormatFloat(b.Offset, 'f', 3, 64)
}

// formatValue writes dB levels and frequencies with four decimals;
// -Inf and NaN keep Go's spelling
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatLinear writes linear FS²/Hz values in the shortest form that
// parses back to the same float64
func formatLinear(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
