package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Scrolling
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back    key.Binding
	Quit    key.Binding
	Suspend key.Binding

	// Mailbox
	Generate key.Binding
	Custom   key.Binding
	Copy     key.Binding
	Pin      key.Binding
	Unpin    key.Binding
	History  key.Binding

	// Mail
	Refresh      key.Binding
	Export       key.Binding
	ExportLatest key.Binding
	Settings     key.Binding

	// History list
	Search key.Binding
	Delete key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "use mailbox"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Suspend: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "suspend"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "new random address"),
		),
		Custom: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "custom address"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c", "y"),
			key.WithHelp("c", "copy address"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin address"),
		),
		Unpin: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "unpin"),
		),
		History: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "address history"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export all (mbox)"),
		),
		ExportLatest: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export latest (.eml)"),
		),
		Settings: key.NewBinding(
			key.WithKeys(","),
			key.WithHelp(",", "settings"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "forget"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Generate, k.Custom, k.Copy, k.Refresh,
		k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Generate, k.Custom, k.Copy, k.Pin, k.Unpin, k.History},
		{k.Refresh, k.Export, k.ExportLatest, k.Up, k.Down},
		{k.Command, k.Settings, k.Help, k.Back, k.Suspend, k.Quit},
	}
}

// HistoryHelp returns the bindings active in the history list.
func (k *KeyMap) HistoryHelp() []key.Binding {
	return []key.Binding{k.Select, k.Search, k.Delete, k.Back}
}
