// Package customform is the form for choosing a custom mailbox: a username
// and one of the allowed domains.
package customform

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/mailbox"
	"github.com/nhle/tempmail/internal/theme"
)

// SubmittedMsg is dispatched when the form is submitted. The values are the
// raw user input; the receiver validates them.
type SubmittedMsg struct {
	Local  string
	Domain string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	local  string
	domain string
}

// Model is the Bubble Tea model for the custom address form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	domains []string
	width   int
	height  int
}

// New creates a new custom address form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form, preselecting the domain of the current
// mailbox when it is still allowed.
func (m *Model) Start(domains []string, current string) tea.Cmd {
	m.domains = domains
	m.fb.local = ""
	m.fb.domain = ""
	for _, d := range domains {
		if d == current {
			m.fb.domain = d
		}
	}
	if m.fb.domain == "" && len(domains) > 0 {
		m.fb.domain = domains[0]
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Active reports whether the form is shown.
func (m Model) Active() bool {
	return m.form != nil
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		sub := SubmittedMsg{Local: m.fb.local, Domain: m.fb.domain}
		return m, func() tea.Msg { return sub }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Custom Address") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[string], len(m.domains))
	for i, d := range m.domains {
		opts[i] = huh.NewOption("@"+d, d)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Placeholder("letters, digits or _").
				Value(&m.fb.local).
				Validate(mailbox.ValidateLocal),
			huh.NewSelect[string]().
				Title("Domain").
				Options(opts...).
				Value(&m.fb.domain),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight()).WithShowHelp(true)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 8 {
		h = 8
	}
	return h
}
