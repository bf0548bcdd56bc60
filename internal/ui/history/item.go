package history

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/theme"
)

// EntryItem wraps a model.HistoryEntry so it can be used in a bubbles/list.
type EntryItem struct {
	Entry model.HistoryEntry
}

// FilterValue returns the string used for fuzzy filtering.
func (i EntryItem) FilterValue() string { return i.Entry.Address.String() }

// Title returns the address.
func (i EntryItem) Title() string { return i.Entry.Address.String() }

// Description returns a short summary line for the list.
func (i EntryItem) Description() string {
	parts := []string{
		string(i.Entry.Origin),
		receivedLabel(i.Entry.ReceivedCount),
		relativeTime(i.Entry.LastUsedAt),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering history entries.
type ItemDelegate struct {
	// current is the address in use; it is marked in the list.
	current model.Mailbox
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single history line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(EntryItem)
	if !ok {
		return
	}
	e := it.Entry

	marker := "  "
	if e.Address == d.current {
		marker = "● "
	}

	origin := theme.OriginStyle(string(e.Origin)).Render(fmt.Sprintf("%-7s", e.Origin))
	meta := theme.DimmedStyle.Render(
		fmt.Sprintf("%s · %s", receivedLabel(e.ReceivedCount), relativeTime(e.LastUsedAt)),
	)

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		marker,
		style.Render(e.Address.String()),
		"  ",
		origin,
		"  ",
		meta,
	)
	fmt.Fprint(w, line)
}

func receivedLabel(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}

// relativeTime formats t relative to now.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
