package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/mailbox"
	"github.com/nhle/tempmail/internal/model"
	settings "github.com/nhle/tempmail/internal/ui/config"
)

// Action names a user operation. Keys and the command palette both resolve
// to actions.
type Action string

const (
	ActionGenerate     Action = "generate"
	ActionCustom       Action = "custom"
	ActionCopy         Action = "copy"
	ActionRefresh      Action = "refresh"
	ActionExport       Action = "export"
	ActionExportLatest Action = "export-latest"
	ActionPin          Action = "pin"
	ActionUnpin        Action = "unpin"
	ActionHistory      Action = "history"
	ActionSettings     Action = "settings"
	ActionHelp         Action = "help"
	ActionQuit         Action = "quit"
)

const flashDuration = 2 * time.Second

// actions is the dispatch table.
var actions = map[Action]func(*Model) tea.Cmd{
	ActionGenerate:     (*Model).generate,
	ActionCustom:       (*Model).openCustomForm,
	ActionCopy:         (*Model).copyAddress,
	ActionRefresh:      (*Model).refreshNow,
	ActionExport:       (*Model).exportAll,
	ActionExportLatest: (*Model).exportLatest,
	ActionPin:          (*Model).pin,
	ActionUnpin:        (*Model).unpin,
	ActionHistory:      (*Model).openHistory,
	ActionSettings:     (*Model).openSettings,
	ActionHelp:         (*Model).toggleHelp,
	ActionQuit:         (*Model).quit,
}

// ActionNames lists the palette commands in alphabetical order.
func ActionNames() []string {
	names := make([]string, 0, len(actions))
	for a := range actions {
		names = append(names, string(a))
	}
	slices.Sort(names)
	return names
}

// binding pairs a key with the action it triggers on the main screen.
type binding struct {
	key    key.Binding
	action Action
}

func (m *Model) bindings() []binding {
	k := m.keys
	return []binding{
		{k.Generate, ActionGenerate},
		{k.Custom, ActionCustom},
		{k.Copy, ActionCopy},
		{k.Refresh, ActionRefresh},
		{k.Export, ActionExport},
		{k.ExportLatest, ActionExportLatest},
		{k.Pin, ActionPin},
		{k.Unpin, ActionUnpin},
		{k.History, ActionHistory},
		{k.Settings, ActionSettings},
		{k.Help, ActionHelp},
		{k.Quit, ActionQuit},
	}
}

// Perform runs action a.
func (m *Model) Perform(a Action) tea.Cmd {
	handler, ok := actions[a]
	if !ok {
		return m.flash(fmt.Sprintf("unknown command: %s", a))
	}
	m.logger.Debugw("action", "action", string(a))
	return handler(m)
}

// Messages produced by action commands.
type (
	domainsLoadedMsg struct {
		domains []string
		err     error
		purpose domainPurpose
	}
	pinnedLoadedMsg struct {
		mailbox model.Mailbox
		err     error
	}
	copiedMsg   struct{ err error }
	exportedMsg struct {
		path string
		err  error
	}
	pinChangedMsg struct {
		mailbox model.Mailbox
		err     error
	}
	historyWrittenMsg struct{ err error }
	clearFlashMsg     struct{ id int }
)

type domainPurpose int

const (
	purposeStartup domainPurpose = iota
	purposeGenerate
)

func (m *Model) loadDomains(purpose domainPurpose) tea.Cmd {
	client := m.client
	timeout := m.cfg.Server.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		domains, err := client.AllowedDomains(ctx)
		return domainsLoadedMsg{domains: domains, err: err, purpose: purpose}
	}
}

func (m *Model) loadPinned() tea.Cmd {
	pins := m.pins
	return func() tea.Msg {
		mb, err := pins.Pinned()
		return pinnedLoadedMsg{mailbox: mb, err: err}
	}
}

func (m *Model) onDomainsLoaded(msg domainsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.domainErr = msg.err
		m.logger.Warnw("domain lookup failed", "error", msg.err)
	} else {
		m.domains = msg.domains
		m.domainsKnown = true
		m.domainErr = nil
		m.logger.Infow("allowed domains", "count", len(msg.domains))
	}

	if msg.purpose == purposeStartup && m.cfg.Mailbox.ResumePinned && m.pins != nil {
		return m.loadPinned()
	}
	if msg.err != nil {
		return m.flash("cannot reach server: " + errors.UnwrapAll(msg.err).Error())
	}
	return m.generateMailbox()
}

func (m *Model) onPinnedLoaded(msg pinnedLoadedMsg) tea.Cmd {
	if msg.err == nil {
		m.pinned = msg.mailbox
		if m.domainErr != nil {
			return m.setMailbox(msg.mailbox, model.OriginPinned)
		}
		if err := mailbox.ValidateDomain(msg.mailbox.Domain(), m.domains); err == nil {
			return m.setMailbox(msg.mailbox, model.OriginPinned)
		}
		m.logger.Warnw("pinned mailbox is on a domain the server no longer offers", "mailbox", msg.mailbox.String())
		return tea.Batch(m.flash("pinned address is no longer offered"), m.generateMailbox())
	}
	if !errors.Is(msg.err, credential.ErrNotPinned) {
		m.logger.Warnw("reading pinned mailbox failed", "error", msg.err)
	}
	if m.domainErr != nil {
		return m.flash("cannot reach server: " + errors.UnwrapAll(m.domainErr).Error())
	}
	return m.generateMailbox()
}

// generate retries the domain lookup first when no domains are known.
func (m *Model) generate() tea.Cmd {
	if len(m.domains) == 0 {
		return m.loadDomains(purposeGenerate)
	}
	return m.generateMailbox()
}

func (m *Model) generateMailbox() tea.Cmd {
	mb, err := m.generator.Generate(m.domains)
	if err != nil {
		m.logger.Warnw("cannot generate mailbox", "error", err)
		return m.flash(err.Error())
	}
	return m.setMailbox(mb, model.OriginRandom)
}

func (m *Model) openCustomForm() tea.Cmd {
	if len(m.domains) == 0 {
		return m.flash(mailbox.ErrNoDomains.Error())
	}
	m.previousView = m.currentView
	m.currentView = ViewCustom
	return m.customForm.Start(m.domains, m.mailbox.Domain())
}

// submitCustom validates user input. Invalid input never reaches the
// network.
func (m *Model) submitCustom(local, domain string) tea.Cmd {
	mb, err := mailbox.Custom(local, domain, m.domains)
	if err != nil {
		return m.flash(err.Error())
	}
	return m.setMailbox(mb, model.OriginCustom)
}

func (m *Model) useFromHistory(addr model.Mailbox) tea.Cmd {
	mb, err := mailbox.Custom(addr.Local(), addr.Domain(), m.domains)
	if err != nil {
		return m.flash(err.Error())
	}
	return m.setMailbox(mb, model.OriginHistory)
}

// setMailbox replaces the current mailbox. The list is reset and the
// countdown re-armed.
func (m *Model) setMailbox(mb model.Mailbox, origin model.Origin) tea.Cmd {
	m.mailbox = mb
	m.sched.SetMailbox(mb)
	m.logger.Infow("mailbox changed", "mailbox", mb.String(), "origin", string(origin))

	var cmds []tea.Cmd
	if !m.visibility.Hidden() {
		cmds = append(cmds, m.sched.Start())
	}
	if m.store != nil {
		st := m.store
		cmds = append(cmds, func() tea.Msg {
			_, err := st.RecordMailbox(context.Background(), mb, origin)
			return historyWrittenMsg{err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) onReceived(mb model.Mailbox) tea.Cmd {
	if m.store == nil {
		return nil
	}
	st := m.store
	return func() tea.Msg {
		return historyWrittenMsg{err: st.IncrementReceived(context.Background(), mb, 1)}
	}
}

func (m *Model) copyAddress() tea.Cmd {
	if m.mailbox.IsZero() {
		return m.flash("no address yet")
	}
	copier, text := m.clipboard, m.mailbox.String()
	return func() tea.Msg {
		return copiedMsg{err: copier.Copy(text)}
	}
}

func (m *Model) refreshNow() tea.Cmd {
	if m.mailbox.IsZero() {
		return m.flash("no address yet")
	}
	return m.sched.TriggerNow()
}

func (m *Model) exportAll() tea.Cmd {
	msgs := m.list.Messages()
	if len(msgs) == 0 {
		return m.flash("nothing to export")
	}
	exp, mb := m.exporter, m.mailbox
	return func() tea.Msg {
		path, err := exp.SaveMailbox(mb, msgs)
		return exportedMsg{path: path, err: err}
	}
}

func (m *Model) exportLatest() tea.Cmd {
	latest, ok := m.list.Latest()
	if !ok {
		return m.flash("nothing to export")
	}
	exp, mb := m.exporter, m.mailbox
	return func() tea.Msg {
		path, err := exp.SaveMessage(mb, latest)
		return exportedMsg{path: path, err: err}
	}
}

func (m *Model) pin() tea.Cmd {
	if m.pins == nil {
		return m.flash("keyring unavailable")
	}
	if m.mailbox.IsZero() {
		return m.flash("no address yet")
	}
	pins, mb := m.pins, m.mailbox
	return func() tea.Msg {
		return pinChangedMsg{mailbox: mb, err: pins.Pin(mb)}
	}
}

func (m *Model) unpin() tea.Cmd {
	if m.pins == nil {
		return m.flash("keyring unavailable")
	}
	pins := m.pins
	return func() tea.Msg {
		return pinChangedMsg{err: pins.Unpin()}
	}
}

func (m *Model) openHistory() tea.Cmd {
	if m.store == nil {
		return m.flash("history is disabled")
	}
	m.previousView = m.currentView
	m.currentView = ViewHistory
	return m.historyView.Open(m.mailbox)
}

func (m *Model) openSettings() tea.Cmd {
	if m.newClient == nil || m.cfgPath == "" {
		return m.flash("settings are unavailable")
	}
	m.previousView = m.currentView
	m.currentView = ViewSettings
	return m.settingsView.Start(*m.cfg)
}

// applySettings adopts a saved configuration. A new server brings its own
// domains, so the mailbox is regenerated on it.
func (m *Model) applySettings(msg settings.SavedMsg) tea.Cmd {
	cfg := msg.Config
	m.cfg = &cfg
	m.logger.Infow("settings saved", "server", cfg.Server.BaseURL, "resume_pinned", cfg.Mailbox.ResumePinned)
	if !msg.ServerChanged {
		return m.flash("settings saved")
	}

	m.client = m.newClient(cfg.Server)
	m.sched.SetFetcher(m.client)
	m.domains = msg.Domains
	m.domainsKnown = true
	m.domainErr = nil
	return tea.Batch(m.flash("switched to "+cfg.Server.BaseURL), m.generateMailbox())
}

func (m *Model) toggleHelp() tea.Cmd {
	if m.currentView == ViewHelp {
		m.currentView = m.previousView
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewHelp
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.sched.Stop()
	return tea.Quit
}

// flash shows text in the status bar for flashDuration. A newer flash
// replaces an older one.
func (m *Model) flash(text string) tea.Cmd {
	m.flashID++
	m.flashText = text
	id := m.flashID
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return clearFlashMsg{id: id}
	})
}
