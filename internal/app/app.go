package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/clipboard"
	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/mailbox"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/refresh"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/theme"
	"github.com/nhle/tempmail/internal/ui"
	"github.com/nhle/tempmail/internal/ui/command"
	settings "github.com/nhle/tempmail/internal/ui/config"
	"github.com/nhle/tempmail/internal/ui/customform"
	helpview "github.com/nhle/tempmail/internal/ui/help"
	"github.com/nhle/tempmail/internal/ui/history"
	"github.com/nhle/tempmail/internal/ui/maillist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewMain ViewState = iota
	ViewCustom
	ViewHistory
	ViewHelp
	ViewCommand
	ViewSettings
)

// MailClient talks to the backend.
type MailClient interface {
	refresh.Fetcher
	AllowedDomains(ctx context.Context) ([]string, error)
}

// Pinner keeps the pinned mailbox.
type Pinner interface {
	Pinned() (model.Mailbox, error)
	Pin(mb model.Mailbox) error
	Unpin() error
}

// Copier puts text on the clipboard.
type Copier interface {
	Copy(text string) error
}

// Exporter writes messages to disk.
type Exporter interface {
	SaveMessage(mb model.Mailbox, m model.Message) (string, error)
	SaveMailbox(mb model.Mailbox, msgs []model.Message) (string, error)
}

// Deps are the collaborators of the root model. Store and Pins may be nil,
// which disables history and pinning. Settings need both ConfigPath and
// NewClient.
type Deps struct {
	Config     *model.AppConfig
	ConfigPath string
	NewClient  func(model.ServerConfig) MailClient
	Client     MailClient
	Store      store.Store
	Pins       Pinner
	Clipboard  Copier
	Exporter   Exporter
	Generator  *mailbox.Generator
	Logger     *zap.SugaredLogger
}

// Model is the root Bubble Tea model. It owns the current mailbox, the
// allowed domains, the refresh scheduler and the message list; every
// change to them goes through its methods.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	ready        bool

	cfg       *model.AppConfig
	client    MailClient
	store     store.Store
	pins      Pinner
	clipboard Copier
	exporter  Exporter
	generator *mailbox.Generator
	logger    *zap.SugaredLogger
	newClient func(model.ServerConfig) MailClient
	cfgPath   string

	list       *maillist.List
	sched      *refresh.Scheduler
	visibility *Visibility
	spinner    spinner.Model

	mailbox      model.Mailbox
	pinned       model.Mailbox
	domains      []string
	domainsKnown bool
	domainErr    error

	customForm   customform.Model
	historyView  history.Model
	helpView     helpview.Model
	commandView  command.Model
	settingsView settings.Model

	flashText string
	flashID   int
}

// New creates the root model.
func New(d Deps) Model {
	if d.Config == nil {
		d.Config = model.DefaultAppConfig()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.Generator == nil {
		d.Generator = mailbox.NewGenerator()
	}
	if d.Clipboard == nil {
		d.Clipboard = clipboard.New()
	}

	k := keys.DefaultKeyMap()
	layout := ui.NewLayout(80, 24)
	list := maillist.New(layout.ContentWidth(), layout.ContentHeight())
	sched := refresh.New(d.Client, list, refresh.ConfigFrom(d.Config.Refresh), d.Logger)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.RefreshStyle(refresh.Refreshing.String())

	helpView := helpview.New(k, 80, 24)
	helpView.SetCommands(ActionNames())
	helpView.SetCadence(fmt.Sprintf(
		"Mail is checked every %ds; new messages are drained %dms apart (at most %d per cycle).",
		d.Config.Refresh.IntervalSec, d.Config.Refresh.DrainSpacingMs, d.Config.Refresh.DrainCap,
	))

	var probe settings.Prober
	if d.NewClient != nil {
		probe = func(ctx context.Context, server model.ServerConfig) ([]string, error) {
			return d.NewClient(server).AllowedDomains(ctx)
		}
	}

	return Model{
		currentView:  ViewMain,
		layout:       layout,
		keys:         k,
		cfg:          d.Config,
		client:       d.Client,
		store:        d.Store,
		pins:         d.Pins,
		clipboard:    d.Clipboard,
		exporter:     d.Exporter,
		generator:    d.Generator,
		logger:       d.Logger,
		newClient:    d.NewClient,
		cfgPath:      d.ConfigPath,
		list:         list,
		sched:        sched,
		visibility:   NewVisibility(sched),
		spinner:      sp,
		customForm:   customform.New(80, 24),
		historyView:  history.New(d.Store, k, 80, 24),
		helpView:     helpView,
		commandView:  command.New(ActionNames(), 80, 24),
		settingsView: settings.New(d.ConfigPath, probe, 80, 24),
	}
}

// Init looks up the allowed domains; the first mailbox is chosen once they
// arrive.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tempmail"),
		m.spinner.Tick,
		m.loadDomains(purposeStartup),
	)
}

// Mailbox returns the current mailbox.
func (m Model) Mailbox() model.Mailbox { return m.mailbox }

// Domains returns the allowed domains.
func (m Model) Domains() []string { return m.domains }

// Scheduler returns the refresh scheduler.
func (m Model) Scheduler() *refresh.Scheduler { return m.sched }

// List returns the message list.
func (m Model) List() *maillist.List { return m.list }

// Flash returns the status bar message, if any.
func (m Model) Flash() string { return m.flashText }

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := m.sched.Update(msg); ok {
		return m, cmd
	}
	if cmd, ok := m.visibility.Update(msg); ok {
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.list.SetSize(w, h)
		m.customForm.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settingsView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case spinner.TickMsg:
		var cmd, viewCmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.currentView == ViewSettings {
			m.settingsView, viewCmd = m.settingsView.Update(msg)
		}
		return m, tea.Batch(cmd, viewCmd)

	case refresh.ReceivedMsg:
		return m, m.onReceived(msg.Mailbox)

	case domainsLoadedMsg:
		return m, m.onDomainsLoaded(msg)

	case pinnedLoadedMsg:
		return m, m.onPinnedLoaded(msg)

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warnw("copy failed", "error", msg.err)
			return m, m.flash(clipboard.ErrClipboard.Error())
		}
		return m, m.flash("copied!")

	case exportedMsg:
		if msg.err != nil {
			m.logger.Warnw("export failed", "error", msg.err)
			return m, m.flash("export failed: " + msg.err.Error())
		}
		m.logger.Infow("exported", "path", msg.path)
		return m, m.flash("saved " + msg.path)

	case pinChangedMsg:
		if msg.err != nil {
			m.logger.Warnw("keyring update failed", "error", msg.err)
			return m, m.flash("keyring: " + errors.UnwrapAll(msg.err).Error())
		}
		m.pinned = msg.mailbox
		if msg.mailbox.IsZero() {
			return m, m.flash("unpinned")
		}
		return m, m.flash("pinned " + msg.mailbox.String())

	case historyWrittenMsg:
		if msg.err != nil {
			m.logger.Warnw("history update failed", "error", msg.err)
		}
		return m, nil

	case clearFlashMsg:
		if msg.id == m.flashID {
			m.flashText = ""
		}
		return m, nil

	case customform.SubmittedMsg:
		m.currentView = ViewMain
		return m, m.submitCustom(msg.Local, msg.Domain)

	case customform.CancelMsg:
		m.currentView = ViewMain
		return m, nil

	case history.SelectedMsg:
		m.currentView = ViewMain
		return m, m.useFromHistory(msg.Address)

	case history.CloseMsg:
		m.currentView = ViewMain
		return m, nil

	case settings.SavedMsg:
		m.currentView = ViewMain
		return m, m.applySettings(msg)

	case settings.DoneMsg:
		m.currentView = ViewMain
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.Perform(Action(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleKey processes global keys and, on the main screen, the action
// bindings.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case msg.String() == "ctrl+c":
		return m.quit(), true
	case key.Matches(msg, m.keys.Suspend):
		return m.visibility.Suspend(), true
	}

	switch m.currentView {
	case ViewHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.currentView = m.previousView
		}
		return nil, true

	case ViewMain:
		if key.Matches(msg, m.keys.Command) {
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m.commandView.Focus(), true
		}
		for _, b := range m.bindings() {
			if key.Matches(msg, b.key) {
				return m.Perform(b.action), true
			}
		}
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewMain:
		cmd = m.list.Update(msg)
	case ViewCustom:
		m.customForm, cmd = m.customForm.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("tempmail", m.refreshStatus())
	address := m.layout.RenderAddressBar(m.addressLabel(), m.list.CountLabel())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.flashText)

	return m.layout.RenderWithFrame(header, address, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewCustom:
		return m.customForm.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return m.list.View()
	}
}

func (m Model) addressLabel() string {
	switch {
	case !m.mailbox.IsZero() && m.mailbox == m.pinned:
		return "📌 " + m.mailbox.String()
	case !m.mailbox.IsZero():
		return m.mailbox.String()
	case m.domainErr != nil:
		return "server unreachable (g to retry)"
	case m.domainsKnown && len(m.domains) == 0:
		return "no domains offered (g to retry)"
	default:
		return "loading domains..."
	}
}

// refreshStatus is the right side of the header: the countdown label plus
// the outcome of the last cycle.
func (m Model) refreshStatus() string {
	st := m.sched.Status()
	label := m.sched.Label()
	if st.State == refresh.Refreshing {
		label = m.spinner.View() + " " + label
	}

	var parts []string
	if st.LastError != nil {
		parts = append(parts, "⚠ offline")
	} else if !st.LastRefresh.IsZero() {
		parts = append(parts, "checked "+st.LastRefresh.Format("15:04:05"))
	}
	parts = append(parts, label)
	return strings.Join(parts, " | ")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewCustom:
		return "enter submit | esc cancel"
	case ViewHistory:
		return "enter use | / search | x forget | esc back"
	case ViewSettings:
		return "tab next field | enter save | esc cancel"
	default:
		return "g new | n custom | c copy | r refresh | e export | : command | ? help | q quit"
	}
}
