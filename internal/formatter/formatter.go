// package formatter renders run summaries and archive state for the terminal,
// in styled text or machine-readable JSON.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/xmarc/internal/archive"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// RenderSummary renders a run summary as styled terminal text.
func RenderSummary(summary *archive.RunSummary) string {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render("Archive run complete"))
	buf.WriteString("\n\n")
	fmt.Fprintf(&buf, "Volume:     %d\n", summary.Volume)
	fmt.Fprintf(&buf, "Playlist:   %s\n", summary.PlaylistID)
	fmt.Fprintf(&buf, "Fetched:    %d\n", summary.Fetched)
	fmt.Fprintf(&buf, "Appended:   %s\n", styles.ok.Render(fmt.Sprintf("%d", summary.Appended)))
	fmt.Fprintf(&buf, "Skipped:    %d\n", summary.Skipped)

	unresolved := fmt.Sprintf("%d", summary.Unresolved)
	if summary.Unresolved > 0 {
		unresolved = styles.warn.Render(unresolved)
	}
	fmt.Fprintf(&buf, "Unresolved: %s\n", unresolved)

	if summary.Rotations > 0 {
		fmt.Fprintf(&buf, "Rotations:  %s\n", styles.warn.Render(fmt.Sprintf("%d", summary.Rotations)))
	}

	return buf.String()
}

// ArchiveState is the inspectable view of persisted archive state.
type ArchiveState struct {
	Station    string `json:"station"`
	Resolver   string `json:"resolver"`
	Volume     int    `json:"current_volume"`
	PlaylistID string `json:"current_playlist_id"`
	SeenCount  int    `json:"seen_count"`
}

// RenderState renders archive state as styled terminal text.
func RenderState(state *ArchiveState) string {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render("Archive state"))
	buf.WriteString("\n\n")
	fmt.Fprintf(&buf, "Station:    %s\n", state.Station)
	fmt.Fprintf(&buf, "Resolver:   %s\n", state.Resolver)
	fmt.Fprintf(&buf, "Volume:     %d\n", state.Volume)

	playlist := state.PlaylistID
	if playlist == "" {
		playlist = styles.help.Render("(none, created on next run)")
	}
	fmt.Fprintf(&buf, "Playlist:   %s\n", playlist)
	fmt.Fprintf(&buf, "Seen keys:  %d\n", state.SeenCount)

	return buf.String()
}

// ToJSON marshals any of the formatter's views with indentation.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}
