package ui

import "time"

// FileStartMsg indicates a worker has picked up a recording
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a recording has finished, successfully or not
type FileCompleteMsg struct {
	FileIndex int
	Frames    int
	Blocks    int
	Level     float64 // band energy-mean level in dB, NaN when unknown
	Warnings  []string
	Error     error
}

// AllCompleteMsg indicates the batch has finished and outputs are written
type AllCompleteMsg struct {
	Outputs []string // files written: CSVs and the summary report
	Err     error    // batch-level problem, such as a skipped summary CSV
}

// tickMsg advances the spinner and elapsed timers
type tickMsg time.Time
