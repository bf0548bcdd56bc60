// Package maillist renders the messages received for the current mailbox,
// newest first, in a scrollable viewport.
package maillist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/theme"
)

const timeLayout = "2006-01-02 15:04:05"

type placeholder int

const (
	placeholderNone placeholder = iota
	placeholderEmpty
	placeholderError
)

// List holds the received messages and exactly one of two render states:
// the messages, or a placeholder (empty or error). It is shared by pointer
// between the root model and the refresh scheduler.
type List struct {
	messages    []model.Message
	placeholder placeholder
	errText     string
	viewport    viewport.Model
	width       int
	height      int
}

// New creates an empty list.
func New(width, height int) *List {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()

	l := &List{
		viewport: vp,
		width:    width,
		height:   height,
	}
	l.ShowEmpty()
	return l
}

// ShowEmpty drops every message and shows the empty placeholder.
func (l *List) ShowEmpty() {
	l.messages = nil
	l.placeholder = placeholderEmpty
	l.errText = ""
	l.refresh()
}

// ShowError shows the error placeholder. Callers only do this while the
// list is empty.
func (l *List) ShowError(err error) {
	if len(l.messages) > 0 {
		return
	}
	l.placeholder = placeholderError
	l.errText = ""
	if err != nil {
		l.errText = err.Error()
	}
	l.refresh()
}

// Append inserts msg at the top so the newest message is always first.
func (l *List) Append(msg model.Message) {
	l.messages = append([]model.Message{msg}, l.messages...)
	l.placeholder = placeholderNone
	l.refresh()
	l.viewport.GotoTop()
}

// Count returns the number of messages shown.
func (l *List) Count() int { return len(l.messages) }

// Messages returns the messages, newest first.
func (l *List) Messages() []model.Message {
	return append([]model.Message(nil), l.messages...)
}

// Latest returns the newest message.
func (l *List) Latest() (model.Message, bool) {
	if len(l.messages) == 0 {
		return model.Message{}, false
	}
	return l.messages[0], true
}

// CountLabel is the counter shown next to the list.
func (l *List) CountLabel() string {
	if len(l.messages) == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", len(l.messages))
}

// PlaceholderVisible reports whether a placeholder is shown instead of
// messages.
func (l *List) PlaceholderVisible() bool {
	return l.placeholder != placeholderNone
}

// SetSize updates the list dimensions.
func (l *List) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.viewport.Width = width
	l.viewport.Height = height
	l.refresh()
}

// Update handles scrolling.
func (l *List) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	l.viewport, cmd = l.viewport.Update(msg)
	return cmd
}

// View renders the list.
func (l *List) View() string {
	switch l.placeholder {
	case placeholderEmpty:
		return l.centered(lipgloss.JoinVertical(lipgloss.Center,
			"📭",
			"No mail yet",
			theme.HelpStyle.Render("Send mail to the address above to receive it here."),
		))
	case placeholderError:
		lines := []string{
			theme.ErrorStyle.Render("Refreshing mail failed"),
			theme.HelpStyle.Render("Check the connection; retrying on the next cycle."),
		}
		if l.errText != "" {
			lines = append(lines, theme.DimmedStyle.Render(plainLine(l.errText, "")))
		}
		return l.centered(lipgloss.JoinVertical(lipgloss.Center, lines...))
	}
	return l.viewport.View()
}

func (l *List) centered(s string) string {
	return lipgloss.NewStyle().
		Width(l.width).
		Height(l.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(s)
}

// refresh rebuilds the viewport content.
func (l *List) refresh() {
	if l.placeholder != placeholderNone {
		l.viewport.SetContent("")
		return
	}
	cards := make([]string, len(l.messages))
	for i, m := range l.messages {
		cards[i] = l.renderCard(m)
	}
	l.viewport.SetContent(strings.Join(cards, "\n"))
}

func (l *List) renderCard(m model.Message) string {
	inner := l.width - 4
	if inner < 10 {
		inner = 10
	}

	from := theme.SenderStyle.Render(plainLine(m.From, unknownSender))
	date := theme.DimmedStyle.Render(m.ReceivedAt.Format(timeLayout))
	gap := inner - lipgloss.Width(from) - lipgloss.Width(date)
	if gap < 1 {
		gap = 1
	}
	header := from + strings.Repeat(" ", gap) + date

	title := theme.SubjectStyle.Width(inner).Render(plainLine(m.Title, noSubject))
	body := lipgloss.NewStyle().Width(inner).Render(bodyText(m))

	return theme.BorderStyle.
		Width(inner + 2).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, title, "", body))
}
