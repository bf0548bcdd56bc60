// Package config is the settings view: it edits the backend URL and the
// startup behaviour, checks the new backend and writes the config file.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeForm       Mode = iota // Editing fields
	ModeValidating             // Asking the backend for its domains
	ModeResult                 // Validation failed
)

// Prober checks that a backend answers, returning its allowed domains.
type Prober func(ctx context.Context, server model.ServerConfig) ([]string, error)

// DoneMsg signals the settings view should close without changes.
type DoneMsg struct{}

// SavedMsg is sent once the new settings were validated and written.
type SavedMsg struct {
	Config        model.AppConfig
	Domains       []string
	ServerChanged bool
}

// validateResultMsg carries a failed validation or save.
type validateResultMsg struct {
	err error
}

// formBindings keeps huh's Value() pointers valid across model copies.
type formBindings struct {
	baseURL string
	resume  bool
}

// Model is the Bubble Tea model for the settings view.
type Model struct {
	mode    Mode
	form    *huh.Form
	fb      *formBindings
	current model.AppConfig
	path    string
	probe   Prober
	spinner spinner.Model
	err     error

	width, height int
}

// New creates a settings view writing to path.
func New(path string, probe Prober, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		fb:      &formBindings{},
		path:    path,
		probe:   probe,
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Start opens the form prefilled from cfg.
func (m *Model) Start(cfg model.AppConfig) tea.Cmd {
	m.current = cfg
	m.fb.baseURL = cfg.Server.BaseURL
	m.fb.resume = cfg.Mailbox.ResumePinned
	m.err = nil
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

// Mode returns the current mode.
func (m Model) Mode() Mode { return m.mode }

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validateResultMsg:
		m.err = msg.err
		m.mode = ModeResult
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeValidating:
		// Only allow escape during validation
		if msg.String() == "esc" {
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, nil

	case ModeResult:
		switch msg.String() {
		case "r":
			return m.submit()
		case "enter", "esc":
			m.err = nil
			m.mode = ModeForm
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, nil
	}

	if msg.String() == "esc" {
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}
	return m.updateForm(msg)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return DoneMsg{} }
	}

	return m, cmd
}

// submit validates the backend, then saves.
func (m Model) submit() (Model, tea.Cmd) {
	next := m.current
	next.Server.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	next.Mailbox.ResumePinned = m.fb.resume

	m.mode = ModeValidating
	return m, tea.Batch(m.spinner.Tick, m.validateAndSave(next))
}

// validateAndSave asks the backend for its domains then writes the file if
// it answered.
func (m Model) validateAndSave(next model.AppConfig) tea.Cmd {
	probe := m.probe
	path := m.path
	changed := next.Server.BaseURL != m.current.Server.BaseURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), next.Server.RequestTimeout())
		defer cancel()

		domains, err := probe(ctx, next.Server)
		if err != nil {
			return validateResultMsg{err: err}
		}

		if err := model.SaveConfig(path, &next); err != nil {
			return validateResultMsg{err: errors.Wrap(err, "server OK but save failed")}
		}

		return SavedMsg{Config: next, Domains: domains, ServerChanged: changed}
	}
}

// View renders the settings view.
func (m Model) View() string {
	switch m.mode {
	case ModeValidating:
		return m.viewValidating()
	case ModeResult:
		return m.viewResult()
	}
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Settings") + "\n" + m.form.View() + "\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).Render("saved to "+m.path)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

func (m Model) viewValidating() string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(fmt.Sprintf("%s Checking %s ...", m.spinner.View(), m.fb.baseURL))
}

func (m Model) viewResult() string {
	errStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorRed)

	content := errStyle.Render("Server check failed") + "\n\n" +
		errors.UnwrapAll(m.err).Error() + "\n\n" +
		lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render("r retry | enter/esc back to form")

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Render(content)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base URL of the mail backend").
				Placeholder("https://mail.example.com").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewConfirm().
				Title("Resume pinned mailbox").
				Description("Reopen the pinned address on start instead of generating one").
				Affirmative("Yes").
				Negative("No").
				Value(&m.fb.resume),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
