package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/calibration"
	"github.com/linuxmatters/pamguide/internal/dsp"
)

func settingsFor(t *testing.T, modify func(*analysis.Options)) analysis.Settings {
	t.Helper()
	opts := analysis.Options{
		Type:         analysis.PSD,
		Window:       dsp.Hann,
		WindowLength: 1,
		WindowUnit:   analysis.Seconds,
		Overlap:      0.5,
		WelchFactor:  1,
		Environment:  calibration.Water,
	}
	if modify != nil {
		modify(&opts)
	}
	s, err := analysis.NewSettings(opts)
	require.NoError(t, err)
	return s
}

// fakeResult builds a four-bin result at 10 Hz resolution whose PSD values
// encode block and bin as block*10 + bin
func fakeResult(name string, start time.Time, blocks int) analysis.FileResult {
	r := analysis.FileResult{
		Path:         filepath.Join("/data", name),
		Name:         name,
		SampleRate:   80,
		Window:       dsp.WindowSpec{Type: dsp.Hann, Length: 8, Overlap: 0.5},
		Resolution:   10,
		Band:         dsp.Band{Low: 0, High: 40},
		BandFirst:    0,
		BandLast:     4,
		Start:        start,
		HasTimestamp: !start.IsZero(),
	}
	for i := 0; i < blocks; i++ {
		b := analysis.TimeBlock{Index: i, Offset: float64(i) * 0.05}
		for k := 0; k <= 4; k++ {
			b.PSD = append(b.PSD, float64(i*10+k))
		}
		b.Spectrum = dsp.Spectrum{Resolution: 10, Power: b.PSD}
		b.Broadband = -50 - float64(i)
		b.HasBroadband = true
		if r.HasTimestamp {
			b.Time = start.Add(time.Duration(b.Offset * float64(time.Second)))
		}
		r.Blocks = append(r.Blocks, b)
	}
	return r
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestFileName(t *testing.T) {
	s := settingsFor(t, nil)
	assert.Equal(t, "site4.230514093000_PSD_1.00sHann_50PercentOverlap.csv",
		FileName("/data/site4.230514093000.wav", s))

	s = settingsFor(t, func(o *analysis.Options) {
		o.Type = analysis.Broadband
		o.Window = dsp.Blackman
		o.WindowLength = 4096
		o.WindowUnit = analysis.Samples
		o.Overlap = 0.75
	})
	assert.Equal(t, "hydrophone_Broadband_4096samplesBlackman_75PercentOverlap.csv",
		FileName("hydrophone.wav", s))
}

func TestSummaryName(t *testing.T) {
	s := settingsFor(t, nil)
	assert.Equal(t, "PAMGuide_Batch_PSD_10Hz-4000Hz_Relative_Summary.csv",
		SummaryName(s, dsp.Band{Low: 10, High: 4000}))

	s = settingsFor(t, func(o *analysis.Options) {
		o.Type = analysis.Broadband
		o.Calibration = calibration.EE{SystemSensitivity: -164.1}
	})
	assert.Equal(t, "PAMGuide_Batch_Broadband_0Hz-24000Hz_Calibrated_Summary.csv",
		SummaryName(s, dsp.Band{Low: 0, High: 24000}))
}

func TestWriteFilePSD(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(filepath.Join(dir, "out"), settingsFor(t, nil))
	require.NoError(t, err)

	start := time.Date(2023, 5, 14, 9, 30, 0, 0, time.UTC)
	r := fakeResult("site4.230514093000.wav", start, 2)

	path, err := w.WriteFile(&r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "site4.230514093000_PSD_1.00sHann_50PercentOverlap.csv"), path)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	// DC is dropped from the header and every row
	assert.Equal(t, []string{"", "10.0000", "20.0000", "30.0000", "40.0000"}, records[0])
	// uncalibrated PSD is linear and written at full precision
	assert.Equal(t, []string{"2023-05-14 09:30:00.000", "1", "2", "3", "4"}, records[1])
	assert.Equal(t, []string{"2023-05-14 09:30:00.050", "11", "12", "13", "14"}, records[2])
}

func TestWriteFileRelativeTime(t *testing.T) {
	w, err := NewCSVWriter(t.TempDir(), settingsFor(t, nil))
	require.NoError(t, err)

	r := fakeResult("untimed.wav", time.Time{}, 3)
	r.BandFirst = 2
	path, err := w.WriteFile(&r)
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"", "20.0000", "30.0000", "40.0000"}, records[0])
	assert.Equal(t, "0.000", records[1][0])
	assert.Equal(t, "0.050", records[2][0])
	assert.Equal(t, "0.100", records[3][0])
	assert.Equal(t, "22", records[3][1])
}

func TestWriteFileLinearPSDKeepsPrecision(t *testing.T) {
	w, err := NewCSVWriter(t.TempDir(), settingsFor(t, nil))
	require.NoError(t, err)

	r := fakeResult("faint.wav", time.Time{}, 1)
	want := []float64{1e-11, 2.5e-11, 3.14159265358979e-9, 0}
	copy(r.Blocks[0].PSD[1:], want)
	path, err := w.WriteFile(&r)
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 2)
	for i, cell := range records[1][1:] {
		got, err := strconv.ParseFloat(cell, 64)
		require.NoError(t, err)
		assert.Equal(t, want[i], got, "bin %d written as %q", i+1, cell)
	}
}

func TestWriteFileCalibratedPSD(t *testing.T) {
	s := settingsFor(t, func(o *analysis.Options) { o.Calibration = calibration.EE{SystemSensitivity: -164.1} })
	w, err := NewCSVWriter(t.TempDir(), s)
	require.NoError(t, err)

	r := fakeResult("cal.wav", time.Time{}, 1)
	r.Blocks[0].PSD[1] = 62.123456
	path, err := w.WriteFile(&r)
	require.NoError(t, err)

	records := readCSV(t, path)
	assert.Equal(t, []string{"0.000", "62.1235", "2.0000", "3.0000", "4.0000"}, records[1])
}

func TestWriteFileBroadband(t *testing.T) {
	s := settingsFor(t, func(o *analysis.Options) { o.Type = analysis.Broadband })
	w, err := NewCSVWriter(t.TempDir(), s)
	require.NoError(t, err)

	r := fakeResult("quiet.wav", time.Time{}, 2)
	r.Blocks[1].Broadband = math.Inf(-1)
	path, err := w.WriteFile(&r)
	require.NoError(t, err)

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"", "dB re FS"}, records[0])
	assert.Equal(t, []string{"0.000", "-50.0000"}, records[1])
	assert.Equal(t, []string{"0.050", "-Inf"}, records[2])
}

func TestWriteBatch(t *testing.T) {
	w, err := NewCSVWriter(t.TempDir(), settingsFor(t, nil))
	require.NoError(t, err)

	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := &analysis.BatchResult{Files: []analysis.FileResult{
		fakeResult("a.230101000000.wav", t0, 2),
		fakeResult("b.230101010000.wav", t0.Add(time.Hour), 3),
	}}

	path, err := w.WriteBatch(batch)
	require.NoError(t, err)
	assert.Equal(t, "PAMGuide_Batch_PSD_0Hz-40Hz_Relative_Summary.csv", filepath.Base(path))

	records := readCSV(t, path)
	require.Len(t, records, 6, "one header plus every block of every file")
	assert.Equal(t, "2023-01-01 00:00:00.000", records[1][0])
	assert.Equal(t, "2023-01-01 01:00:00.000", records[3][0])
	assert.Equal(t, "2023-01-01 01:00:00.100", records[5][0])
}

func TestWriteBatchBinMismatch(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir, settingsFor(t, nil))
	require.NoError(t, err)

	other := fakeResult("b.wav", time.Time{}, 1)
	other.Resolution = 5
	batch := &analysis.BatchResult{Files: []analysis.FileResult{fakeResult("a.wav", time.Time{}, 1), other}}

	_, err = w.WriteBatch(batch)
	require.ErrorIs(t, err, ErrBinMismatch)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no summary file should be written")

	// broadband rows share one column whatever the bins
	bw, err := NewCSVWriter(dir, settingsFor(t, func(o *analysis.Options) { o.Type = analysis.Broadband }))
	require.NoError(t, err)
	_, err = bw.WriteBatch(batch)
	assert.NoError(t, err)
}

func TestWriteBatchEmpty(t *testing.T) {
	w, err := NewCSVWriter(t.TempDir(), settingsFor(t, nil))
	require.NoError(t, err)
	_, err = w.WriteBatch(&analysis.BatchResult{})
	assert.Error(t, err)
}
