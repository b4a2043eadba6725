package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/mains"
)

// SummaryData contains everything the text summary report needs
type SummaryData struct {
	Settings  analysis.Settings
	Batch     *analysis.BatchResult
	StartTime time.Time
	EndTime   time.Time
	Mains     int // hum fundamental in Hz, 0 to omit the hum table
}

// SummaryFileName is the report name inside the output directory
func SummaryFileName(s analysis.Settings) string {
	return fmt.Sprintf("PAMGuide_Batch_%s_Report.txt", s.Type())
}

// WriteSummaryFile writes the summary report into dir and returns its path
func WriteSummaryFile(dir string, data SummaryData) (string, error) {
	path := filepath.Join(dir, SummaryFileName(data.Settings))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := WriteSummary(f, data); err != nil {
		return "", err
	}
	return path, f.Close()
}

// WriteSummary writes the batch summary report to w.
//
// Report structure:
// 1. Header - analysis run time
// 2. Analysis - the settings every recording shares
// 3. Recordings - per-file band level statistics
// 4. Mains Hum - PSD level at each hum harmonic (optional)
// 5. Recording Checks - quality advice per recording (when any fire)
// 6. Skipped - recordings that produced no result
func WriteSummary(w io.Writer, data SummaryData) error {
	ew := &errWriter{w: w}

	writeSummaryHeader(ew, data)
	writeAnalysisSection(ew, data.Settings)
	writeRecordingsTable(ew, data.Settings, data.Batch)
	if data.Mains > 0 {
		writeHumTable(ew, data.Settings, data.Batch, float64(data.Mains))
	}
	writeChecks(ew, data.Batch, float64(data.Mains))
	writeFailures(ew, data.Batch)

	return ew.err
}

// errWriter keeps the first write error so sections can print freely
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// writeSection writes a section header with title and dashed underline.
// The underline length matches the title length.
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

func writeSummaryHeader(w io.Writer, data SummaryData) {
	fmt.Fprintln(w, "PAMGuide Batch Summary")
	fmt.Fprintln(w, "======================")
	fmt.Fprintf(w, "Analysed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if !data.StartTime.IsZero() {
		fmt.Fprintf(w, "Run time: %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	}
	fmt.Fprintf(w, "Recordings: %d analysed, %d skipped\n", len(data.Batch.Files), len(data.Batch.Failures))
	fmt.Fprintln(w, "")
}

func writeAnalysisSection(w io.Writer, s analysis.Settings) {
	writeSection(w, "Analysis")

	band := s.Band()
	high := "Nyquist"
	if band.High > 0 {
		high = fmt.Sprintf("%g Hz", band.High)
	}

	fmt.Fprintf(w, "Type:        %s\n", s.Type())
	fmt.Fprintf(w, "Window:      %s, %g %s\n", s.Window(), s.WindowLength(), s.WindowUnit())
	fmt.Fprintf(w, "Overlap:     %g%%\n", s.Overlap()*100)
	fmt.Fprintf(w, "Welch:       %d frame(s) per block\n", s.WelchFactor())
	fmt.Fprintf(w, "Band:        %g Hz to %s\n", band.Low, high)
	fmt.Fprintf(w, "Environment: %s\n", s.Environment())
	fmt.Fprintf(w, "Calibration: %s\n", s.Calibrator())
	fmt.Fprintf(w, "Units:       %s\n", s.Units())
	fmt.Fprintln(w, "")
}

// writeRecordingsTable lists band level statistics per recording. Levels
// are integrated over the band whatever the analysis type, so PSD batches
// get a broadband overview too.
func writeRecordingsTable(w io.Writer, s analysis.Settings, batch *analysis.BatchResult) {
	if len(batch.Files) == 0 {
		return
	}
	writeSection(w, "Recordings")

	cal := s.Calibrator()
	unit := "dB re FS"
	if cal.Enabled() {
		unit = "dB re " + s.Environment().Reference()
	}

	table := NewMetricTable("Start", "Length", "Format", "Blocks", "Leq", "Min", "Max")
	for i := range batch.Files {
		r := &batch.Files[i]
		leq, lo, hi := bandLevels(r, cal.Level)

		start := "relative"
		if r.HasTimestamp {
			start = r.Start.Format("2006-01-02 15:04:05")
		}
		depth := fmt.Sprintf("%d-bit", r.BitDepth)
		if r.Float {
			depth += " float"
		}
		format := fmt.Sprintf("%g kHz %s %s", r.SampleRate/1000, depth, channelName(r.Channels))

		var notes []string
		if n := r.NonFiniteBlocks(); n > 0 {
			notes = append(notes, fmt.Sprintf("%d silent block(s)", n))
		}
		if len(r.Warnings) > 0 {
			notes = append(notes, "no timestamp")
		}

		table.AddRow(r.Name, []string{
			start,
			formatDuration(time.Duration(r.Duration * float64(time.Second))),
			format,
			fmt.Sprintf("%d", len(r.Blocks)),
			formatLevel(leq, 1),
			formatLevel(lo, 1),
			formatLevel(hi, 1),
		}, unit, strings.Join(notes, ", "))
	}

	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// bandLevels returns the energy-mean, minimum and maximum band level over
// a recording's blocks, using level to convert linear power to dB
func bandLevels(r *analysis.FileResult, level func(float64) float64) (leq, lo, hi float64) {
	if len(r.Blocks) == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, b := range r.Blocks {
		l := level(r.BandPower(b))
		lo = math.Min(lo, l)
		hi = math.Max(hi, l)
	}
	return level(r.MeanBandPower()), lo, hi
}

// writeHumTable shows the mean PSD level at each mains harmonic. Columns
// follow the first recording; harmonics past another recording's Nyquist
// are left blank.
func writeHumTable(w io.Writer, s analysis.Settings, batch *analysis.BatchResult, fundamental float64) {
	if len(batch.Files) == 0 {
		return
	}

	first := &batch.Files[0]
	columns := mains.Lines(fundamental, first.Resolution, bins(first), mains.DefaultHarmonics)
	if len(columns) == 0 {
		return
	}

	writeSection(w, fmt.Sprintf("Mains Hum (%g Hz)", fundamental))

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = fmt.Sprintf("%g Hz", c.Frequency)
	}
	table := NewMetricTable(headers...)

	cal := s.Calibrator()
	unit := "dB re FS²/Hz"
	if cal.Enabled() {
		unit = "dB re " + s.Environment().Reference() + "²/Hz"
	}

	for i := range batch.Files {
		r := &batch.Files[i]
		if len(r.Blocks) == 0 {
			continue
		}
		lines := mains.Lines(fundamental, r.Resolution, bins(r), mains.DefaultHarmonics)
		values := make([]string, len(columns))
		for j, line := range lines {
			if j >= len(values) {
				break
			}
			values[j] = formatLevel(cal.Level(meanBinPower(r, line.Bin)), 1)
		}
		table.AddRow(r.Name, values, unit, "")
	}

	fmt.Fprint(w, table.String())
	fmt.Fprintln(w, "")
}

// bins is the one-sided spectrum length for the recording's window
func bins(r *analysis.FileResult) int {
	return r.Window.Length/2 + 1
}

func meanBinPower(r *analysis.FileResult, bin int) float64 {
	var sum float64
	for _, b := range r.Blocks {
		sum += b.Spectrum.Power[bin]
	}
	return sum / float64(len(r.Blocks))
}

func writeFailures(w io.Writer, batch *analysis.BatchResult) {
	if len(batch.Failures) == 0 {
		return
	}
	writeSection(w, "Skipped")
	for _, f := range batch.Failures {
		fmt.Fprintf(w, "%s (%s): %v\n", f.Name, f.Kind(), f.Err)
	}
	fmt.Fprintln(w, "")
}
