package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ZebulonRouseFrantzich/sdkfetch/internal/fetch"
)

var (
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffb86c"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// formatProgress renders one progress event as a single line.
func formatProgress(ev fetch.Progress) string {
	received := humanize.Bytes(uint64(ev.Received))
	if ev.Total <= 0 {
		return fmt.Sprintf("%s %s", labelStyle.Render("downloading"), received)
	}
	pct := ev.Received * 100 / ev.Total
	return fmt.Sprintf("%s %s / %s %s",
		labelStyle.Render("downloading"),
		received,
		humanize.Bytes(uint64(ev.Total)),
		dimStyle.Render(fmt.Sprintf("(%d%%)", pct)))
}

// renderProgress drains events until the channel is closed, redrawing one
// line on w.
func renderProgress(w io.Writer, events <-chan fetch.Progress) {
	drawn := false
	for ev := range events {
		fmt.Fprintf(w, "\r%s\x1b[K", formatProgress(ev))
		drawn = true
		if ev.Done {
			fmt.Fprintln(w)
			drawn = false
		}
	}
	if drawn {
		fmt.Fprintln(w)
	}
}
