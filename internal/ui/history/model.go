// Package history lists previously used mailboxes so one can be reopened.
package history

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tempmail/internal/keys"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/theme"
)

const listLimit = 200

// LoadedMsg is sent when entries have been loaded from the store.
type LoadedMsg struct {
	Entries []model.HistoryEntry
	Err     error
}

// SelectedMsg is sent when the user picks a mailbox to reuse.
type SelectedMsg struct {
	Address model.Mailbox
}

// DeletedMsg is sent after an entry was removed.
type DeletedMsg struct {
	Address model.Mailbox
	Err     error
}

// CloseMsg is sent when the user leaves the history view.
type CloseMsg struct{}

// Model is the history list view.
type Model struct {
	list        list.Model
	store       store.Store
	keys        *keys.KeyMap
	delegate    *ItemDelegate
	filter      store.HistoryFilter
	searchMode  bool
	searchInput textinput.Model
	err         error
	width       int
	height      int
}

// New creates a new history list model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	delegate := &ItemDelegate{}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Address History"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search addresses..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		store:       s,
		keys:        k,
		delegate:    delegate,
		filter:      store.HistoryFilter{Limit: listLimit},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Open marks current and reloads the entries.
func (m *Model) Open(current model.Mailbox) tea.Cmd {
	m.delegate.current = current
	m.searchMode = false
	m.filter.Query = nil
	m.searchInput.Reset()
	return m.Load()
}

// Update handles messages for the history view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.err = msg.Err
		items := make([]list.Item, len(msg.Entries))
		for i, e := range msg.Entries {
			items[i] = EntryItem{Entry: e}
		}
		return m, m.list.SetItems(items)

	case DeletedMsg:
		m.err = msg.Err
		return m, m.Load()

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := m.searchInput.Value()
		if query != "" {
			m.filter.Query = &query
		} else {
			m.filter.Query = nil
		}
		return m, m.Load()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = nil
		return m, m.Load()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(EntryItem)
		if !ok {
			return m, nil
		}
		addr := item.Entry.Address
		return m, func() tea.Msg { return SelectedMsg{Address: addr} }

	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.History):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.list.SelectedItem().(EntryItem)
		if !ok {
			return m, nil
		}
		return m, m.deleteEntry(item.Entry.Address)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the history view.
func (m Model) View() string {
	var parts []string
	if m.searchMode {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}
	if m.err != nil {
		parts = append(parts, theme.ErrorStyle.Padding(0, 1).Render(m.err.Error()))
	}

	if len(m.list.Items()) == 0 {
		parts = append(parts, m.renderEmptyState())
	} else {
		parts = append(parts, m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderEmptyState shows guidance text when there is no history.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter.Query != nil {
		return style.Render("No matching addresses.")
	}
	return style.Render("No addresses used yet.")
}

// Load returns a tea.Cmd that queries the store with the current filter.
func (m Model) Load() tea.Cmd {
	filter := m.filter
	s := m.store
	return func() tea.Msg {
		entries, err := s.ListMailboxes(context.Background(), filter)
		return LoadedMsg{Entries: entries, Err: err}
	}
}

func (m Model) deleteEntry(addr model.Mailbox) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		err := s.DeleteMailbox(context.Background(), addr)
		return DeletedMsg{Address: addr, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
