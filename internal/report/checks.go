package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/linuxmatters/pamguide/internal/analysis"
	"github.com/linuxmatters/pamguide/internal/mains"
)

// Check is one piece of recording-quality advice derived from an analysis
type Check struct {
	Priority int    // Higher = more important (1-10)
	Message  string // Human-readable advice (1-2 sentences)
	RuleID   string // Identifier for testing/logging (e.g., "level_clipping")
}

// MaxChecks is the maximum number of checks reported per recording
const MaxChecks = 5

// Thresholds, all relative to digital full scale
var (
	nearClipPeak = math.Pow(10, -1.0/20)  // -1 dBFS
	quietPeak    = math.Pow(10, -40.0/20) // -40 dBFS
)

const (
	clipPeak      = 0.999
	dcOffsetLimit = 0.01 // 1% of full scale
	humProminence = 10.0 // dB above the neighbouring bins
	humNeighbours = 5    // bins either side compared against the hum line
	minBlocks     = 3
)

type checkRule func(r *analysis.FileResult, mainsHz float64) *Check

// RecordingChecks inspects one analysed recording and returns prioritised
// advice. mainsHz is the hum fundamental, or 0 to skip the hum rule.
func RecordingChecks(r *analysis.FileResult, mainsHz float64) []Check {
	if r == nil {
		return nil
	}

	rules := []checkRule{
		checkDigitalSilence,
		checkClipping,
		checkLevelQuiet,
		checkSilentBlocks,
		checkDCOffset,
		checkMainsHum,
		checkFewBlocks,
	}

	var checks []Check
	fired := make(map[string]bool)
	for _, rule := range rules {
		if c := rule(r, mainsHz); c != nil {
			checks = append(checks, *c)
			fired[c.RuleID] = true
		}
	}

	checks = applyCheckExclusions(checks, fired)

	slices.SortStableFunc(checks, func(a, b Check) int {
		return b.Priority - a.Priority
	})
	if len(checks) > MaxChecks {
		checks = checks[:MaxChecks]
	}
	return checks
}

// applyCheckExclusions drops checks that a more specific one already
// explains. A recording of pure digital silence needs no level, offset or
// hum advice.
func applyCheckExclusions(checks []Check, fired map[string]bool) []Check {
	if !fired["digital_silence"] {
		return checks
	}
	var result []Check
	for _, c := range checks {
		switch c.RuleID {
		case "level_too_quiet", "silent_blocks", "dc_offset", "mains_hum":
			continue
		}
		result = append(result, c)
	}
	return result
}

// checkDigitalSilence fires when every sample is zero
func checkDigitalSilence(r *analysis.FileResult, _ float64) *Check {
	if r.Peak != 0 {
		return nil
	}
	return &Check{
		Priority: 10,
		RuleID:   "digital_silence",
		Message:  "The recording is digital silence - check the hydrophone or microphone connection and the recorder input settings.",
	}
}

// checkClipping fires when samples reach or approach full scale.
// Clipped events are under-reported in every level this tool produces.
func checkClipping(r *analysis.FileResult, _ float64) *Check {
	if r.Peak < nearClipPeak {
		return nil
	}
	if r.Peak >= clipPeak {
		return &Check{
			Priority: 10,
			RuleID:   "level_clipping",
			Message:  "Samples reach digital full scale, so loud events are clipped and their levels under-reported - reduce the preamp gain.",
		}
	}
	return &Check{
		Priority: 8,
		RuleID:   "level_near_clipping",
		Message:  fmt.Sprintf("The peak level is %.1f dBFS, within 1 dB of clipping - louder events may exceed the recorder's range.", 20*math.Log10(r.Peak)),
	}
}

// checkLevelQuiet fires when the peak stays below -40 dBFS, where
// quantisation noise can dominate quiet periods
func checkLevelQuiet(r *analysis.FileResult, _ float64) *Check {
	if r.Peak == 0 || r.Peak >= quietPeak {
		return nil
	}
	return &Check{
		Priority: 7,
		RuleID:   "level_too_quiet",
		Message:  fmt.Sprintf("The peak level is only %.0f dBFS - quiet periods may sit on the quantisation floor, so consider more preamp gain.", 20*math.Log10(r.Peak)),
	}
}

// checkSilentBlocks fires when some analysis blocks hold no in-band power
func checkSilentBlocks(r *analysis.FileResult, _ float64) *Check {
	n := 0
	for _, b := range r.Blocks {
		if r.BandPower(b) == 0 {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return &Check{
		Priority: 9,
		RuleID:   "silent_blocks",
		Message:  fmt.Sprintf("%d of %d analysis blocks hold no in-band energy and report -Inf levels - look for recorder dropouts or gaps.", n, len(r.Blocks)),
	}
}

// checkDCOffset fires when the sample mean exceeds 1% of full scale,
// which inflates the lowest frequency bins
func checkDCOffset(r *analysis.FileResult, _ float64) *Check {
	if math.Abs(r.DCOffset) <= dcOffsetLimit {
		return nil
	}
	return &Check{
		Priority: 6,
		RuleID:   "dc_offset",
		Message:  fmt.Sprintf("The recording has a DC offset of %+.1f%% of full scale - the lowest frequency bins will read high.", r.DCOffset*100),
	}
}

// checkMainsHum fires when the mains fundamental stands well above the
// median of the bins around it
func checkMainsHum(r *analysis.FileResult, mainsHz float64) *Check {
	if mainsHz <= 0 || len(r.Blocks) == 0 {
		return nil
	}
	lines := mains.Lines(mainsHz, r.Resolution, bins(r), 1)
	if len(lines) == 0 {
		return nil
	}
	bin := lines[0].Bin

	var neighbours []float64
	for k := bin - humNeighbours; k <= bin+humNeighbours; k++ {
		if k < 1 || k >= bins(r) || absInt(k-bin) < 2 {
			continue
		}
		neighbours = append(neighbours, meanBinPower(r, k))
	}
	if len(neighbours) == 0 {
		return nil
	}
	slices.Sort(neighbours)
	floor := neighbours[len(neighbours)/2]
	line := meanBinPower(r, bin)
	if floor <= 0 || line <= 0 {
		return nil
	}

	prominence := 10 * math.Log10(line/floor)
	if prominence < humProminence {
		return nil
	}
	return &Check{
		Priority: 7,
		RuleID:   "mains_hum",
		Message:  fmt.Sprintf("Mains hum at %g Hz stands %.0f dB above the surrounding spectrum - check grounding and power supplies near the recorder.", mainsHz, prominence),
	}
}

// checkFewBlocks fires when too few blocks were averaged for stable levels
func checkFewBlocks(r *analysis.FileResult, _ float64) *Check {
	if len(r.Blocks) == 0 || len(r.Blocks) >= minBlocks {
		return nil
	}
	return &Check{
		Priority: 4,
		RuleID:   "few_blocks",
		Message:  fmt.Sprintf("Only %d analysis block(s) were produced - use a shorter window or Welch factor for steadier statistics.", len(r.Blocks)),
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// wrapText wraps text at word boundaries to fit within maxWidth columns.
// Continuation lines are prefixed with indent.
func wrapText(text string, maxWidth int, indent string) string {
	words := strings.Fields(text)
	var lines []string
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return strings.Join(lines, "\n"+indent)
}

// writeChecks lists the advice for every recording that raised any
func writeChecks(w io.Writer, batch *analysis.BatchResult, mainsHz float64) {
	type fileChecks struct {
		name   string
		checks []Check
	}
	var found []fileChecks
	for i := range batch.Files {
		if checks := RecordingChecks(&batch.Files[i], mainsHz); len(checks) > 0 {
			found = append(found, fileChecks{batch.Files[i].Name, checks})
		}
	}
	if len(found) == 0 {
		return
	}

	writeSection(w, "Recording Checks")
	for _, f := range found {
		fmt.Fprintf(w, "%s\n", f.name)
		for _, c := range f.checks {
			fmt.Fprintf(w, "  • %s\n", wrapText(c.Message, 72, "    "))
		}
	}
	fmt.Fprintln(w, "")
}
