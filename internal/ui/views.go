package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const boxWidth = 64

var (
	titleColour  = lipgloss.Color("#1F6FB2")
	okColour     = lipgloss.Color("#2E8B57")
	activeColour = lipgloss.Color("#FFA500")
	failColour   = lipgloss.Color("#C0392B")
	mutedColour  = lipgloss.Color("#888888")
)

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	// Header
	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	// File queue
	b.WriteString(renderFileQueue(m))
	b.WriteString("\n")

	// Overall progress
	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(titleColour).
		Render("PAMGuide 🌊 - Passive Acoustic Analysis")

	text := fmt.Sprintf("Analysing %d recording(s)", m.TotalFiles)
	if m.Subtitle != "" {
		text += " | " + m.Subtitle
	}
	subtitle := lipgloss.NewStyle().
		Foreground(mutedColour).
		Italic(true).
		Render(text)

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of recordings with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file, m))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single recording in the queue
func renderFileEntry(file FileProgress, m Model) string {
	fileName := filepath.Base(file.InputPath)

	switch file.Status {
	case StatusComplete:
		icon := lipgloss.NewStyle().Foreground(okColour).Render("✓")
		line := fmt.Sprintf(" %s %s\n   %s", icon, fileName, fileSummary(file, m.Units))
		if n := len(file.Warnings); n > 0 {
			warn := lipgloss.NewStyle().Foreground(activeColour).Render(fmt.Sprintf("⚠ %s", file.Warnings[0]))
			if n > 1 {
				warn += fmt.Sprintf(" (+%d more)", n-1)
			}
			line += "\n   " + warn
		}
		return line

	case StatusAnalysing:
		icon := lipgloss.NewStyle().Foreground(activeColour).Render(spinnerFrames[m.spinnerIndex])
		return fmt.Sprintf(" %s %s\n   Analysing... %.1fs", icon, fileName, file.ElapsedTime.Seconds())

	case StatusError:
		icon := lipgloss.NewStyle().Foreground(failColour).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColour).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// fileSummary describes a completed recording on one line
func fileSummary(file FileProgress, units string) string {
	return fmt.Sprintf("%d frames | %d blocks | Leq %s %s | %.1fs",
		file.Frames, file.Blocks, formatLevel(file.Level), units, file.ElapsedTime.Seconds())
}

func formatLevel(level float64) string {
	switch {
	case math.IsNaN(level):
		return "-"
	case math.IsInf(level, -1):
		return "silent"
	default:
		return fmt.Sprintf("%.1f", level)
	}
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = math.Max(0, math.Min(1, progress))
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(titleColour).
		Padding(0, 1).
		Width(boxWidth)

	var progress float64
	if m.TotalFiles > 0 {
		progress = float64(m.Finished()) / float64(m.TotalFiles)
	}

	var content strings.Builder
	content.WriteString(renderProgressBar(progress, 40))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%d of %d finished | %d active | %d failed",
		m.Finished(), m.TotalFiles, m.ActiveFiles, m.FailedFiles))

	return box.Render(content.String())
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	headerText := "✨ Analysis Complete!"
	headerColour := okColour
	if m.FailedFiles > 0 {
		headerText = fmt.Sprintf("Analysis Complete: %d recording(s) skipped", m.FailedFiles)
		headerColour = activeColour
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(headerColour).
		Render(headerText)
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete, StatusError:
			b.WriteString(renderFileEntry(file, m))
			b.WriteString("\n")
		}
	}

	if m.BatchErr != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(failColour).Render(fmt.Sprintf("⚠ %v", m.BatchErr)))
		b.WriteString("\n")
	}

	if len(m.Outputs) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", boxWidth))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Wrote %d file(s):\n", len(m.Outputs)))
		for _, out := range m.Outputs {
			b.WriteString("  ")
			b.WriteString(out)
			b.WriteString("\n")
		}
	}

	elapsed := m.EndTime.Sub(m.StartTime)
	if elapsed > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColour).Render(fmt.Sprintf("Total time: %.1fs", elapsed.Seconds())))
		b.WriteString("\n")
	}

	return b.String()
}
