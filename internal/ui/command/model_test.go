package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New([]string{"copy", "generate"}, 80, 24)
	m.Focus()

	m = typeText(m, " Copy ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	require.Equal(t, CommandMsg("copy"), cmd())
	require.Empty(t, m.input.Value())
}

func TestEmptyEnterCancels(t *testing.T) {
	m := New([]string{"copy"}, 80, 24)
	m.Focus()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, CancelMsg{}, cmd())
}

func TestEscCancels(t *testing.T) {
	m := New([]string{"copy"}, 80, 24)
	m.Focus()
	m = typeText(m, "co")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, CancelMsg{}, cmd())
	require.Empty(t, m.input.Value())
}

func TestViewListsCommands(t *testing.T) {
	m := New([]string{"copy", "generate"}, 80, 24)
	view := m.View()

	require.Contains(t, view, "Command Palette")
	require.Contains(t, view, "copy · generate")
}
