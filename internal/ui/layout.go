package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/theme"
)

// Layout manages the terminal layout dimensions: a title bar, the address
// bar, the message list and a status bar.
type Layout struct {
	Width            int
	Height           int
	HeaderHeight     int
	AddressBarHeight int
	StatusBarHeight  int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:            width,
		Height:           height,
		HeaderHeight:     1,
		AddressBarHeight: 3,
		StatusBarHeight:  1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the message list.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.AddressBarHeight - l.StatusBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// RenderHeader renders the top bar with a title on the left and the refresh
// indicator on the right.
func (l Layout) RenderHeader(title string, refresh string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(refresh)

	return l.fill(theme.HeaderStyle, titleRendered, statusRendered)
}

// RenderAddressBar renders the current address with the message counter.
func (l Layout) RenderAddressBar(address string, counter string) string {
	left := theme.AddressStyle.Render(address)
	right := theme.DimmedStyle.Render(counter)

	gap := l.Width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return theme.BorderStyle.
		Width(l.Width-2).
		Padding(0, 1).
		Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}

// RenderStatusBar renders the bottom status bar: a flash message when one
// is set, keyboard hints otherwise.
func (l Layout) RenderStatusBar(hints string, flash string) string {
	text := hints
	if flash != "" {
		text = flash
	}
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(text), "")
}

// fill pads between left and right with the background of style.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, the address bar, the content area and the status bar.
func (l Layout) RenderWithFrame(
	header string,
	addressBar string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		addressBar,
		content,
		statusBar,
	)
}
