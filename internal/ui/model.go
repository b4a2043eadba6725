// Package ui provides the Bubbletea terminal user interface for pamguide
package ui

import (
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Spinner frames for active recordings
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickInterval paces the spinner
const tickInterval = 100 * time.Millisecond

// FileStatus represents the processing state of a single recording
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusAnalysing
	StatusComplete
	StatusError
)

func (s FileStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusAnalysing:
		return "analysing"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// FileProgress tracks progress for a single recording
type FileProgress struct {
	InputPath string
	Status    FileStatus

	StartTime   time.Time
	ElapsedTime time.Duration

	// Completion results
	Frames   int
	Blocks   int
	Level    float64
	Warnings []string

	// Error tracking
	Error error
}

// Model is the Bubbletea model for the batch UI. Several recordings can
// be active at once; messages carry the file index they refer to.
type Model struct {
	Files          []FileProgress
	TotalFiles     int
	ActiveFiles    int
	CompletedFiles int
	FailedFiles    int

	// Description of the analysis shown under the title
	Subtitle string
	// Unit label for the level column
	Units string

	// Global state
	StartTime time.Time
	EndTime   time.Time
	Done      bool
	Outputs   []string
	BatchErr  error

	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string, subtitle, units string) Model {
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:      files,
		TotalFiles: len(inputFiles),
		Subtitle:   subtitle,
		Units:      units,
		StartTime:  time.Now(),
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		for i := range m.Files {
			if m.Files[i].Status == StatusAnalysing {
				m.Files[i].ElapsedTime = time.Since(m.Files[i].StartTime)
			}
		}
		return m, tick()

	case FileStartMsg:
		if !m.valid(msg.FileIndex) {
			return m, nil
		}
		logrus.WithField("file", msg.FileName).Debug("ui: file started")
		f := &m.Files[msg.FileIndex]
		f.Status = StatusAnalysing
		f.StartTime = time.Now()
		m.ActiveFiles++

	case FileCompleteMsg:
		if !m.valid(msg.FileIndex) {
			return m, nil
		}
		f := &m.Files[msg.FileIndex]
		if f.Status == StatusAnalysing {
			m.ActiveFiles--
			f.ElapsedTime = time.Since(f.StartTime)
		}
		f.Frames = msg.Frames
		f.Blocks = msg.Blocks
		f.Level = msg.Level
		f.Warnings = msg.Warnings
		f.Error = msg.Error

		if msg.Error != nil {
			f.Status = StatusError
			m.FailedFiles++
		} else {
			f.Status = StatusComplete
			m.CompletedFiles++
		}
		logrus.WithFields(logrus.Fields{
			"file":   filepath.Base(f.InputPath),
			"status": f.Status,
		}).Debug("ui: file finished")

	case AllCompleteMsg:
		m.Done = true
		m.EndTime = time.Now()
		m.Outputs = msg.Outputs
		m.BatchErr = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return renderCompletionSummary(m)
	}
	return renderProcessingView(m)
}

func (m Model) valid(index int) bool {
	return index >= 0 && index < len(m.Files)
}

// Finished reports how many recordings have a final status
func (m Model) Finished() int {
	return m.CompletedFiles + m.FailedFiles
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}
