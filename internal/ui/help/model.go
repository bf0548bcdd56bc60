package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/theme"
)

// Model is the help overlay: key bindings, palette commands and the refresh
// cadence.
type Model struct {
	keys     *keys.KeyMap
	help     help.Model
	commands []string
	cadence  string
	width    int
	height   int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	h.ShowAll = true
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetCommands lists the palette commands shown below the key bindings.
func (m *Model) SetCommands(names []string) {
	m.commands = names
}

// SetCadence sets the line describing how often mail is checked.
func (m *Model) SetCadence(s string) {
	m.cadence = s
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
	}

	if len(m.commands) > 0 {
		sections = append(sections,
			"",
			titleStyle.Render("Commands (:)"),
			theme.HelpStyle.Render(strings.Join(m.commands, "  ")),
		)
	}
	if m.cadence != "" {
		sections = append(sections, "", theme.DimmedStyle.Render(m.cadence))
	}

	return theme.OverlayStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 8
}
