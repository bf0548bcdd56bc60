package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tempmail/internal/refresh"
)

// Visibility pauses the scheduler while the terminal is in the background
// (focus lost or process suspended) and resumes it with one immediate cycle
// when it comes back.
type Visibility struct {
	sched  *refresh.Scheduler
	hidden bool
}

// NewVisibility starts out in the foreground.
func NewVisibility(s *refresh.Scheduler) *Visibility {
	return &Visibility{sched: s}
}

// Hidden reports whether the application is in the background.
func (v *Visibility) Hidden() bool { return v.hidden }

// Background stops the scheduler.
func (v *Visibility) Background() {
	if v.hidden {
		return
	}
	v.hidden = true
	v.sched.Stop()
}

// Foreground restarts the scheduler and triggers exactly one cycle. It is a
// no-op unless Background was called since the last Foreground.
func (v *Visibility) Foreground() tea.Cmd {
	if !v.hidden {
		return nil
	}
	v.hidden = false
	start := v.sched.Start()
	return tea.Batch(start, v.sched.TriggerNow())
}

// Update maps terminal events to Background and Foreground. The boolean
// reports whether msg was a visibility event.
func (v *Visibility) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg.(type) {
	case tea.BlurMsg:
		v.Background()
		return nil, true
	case tea.FocusMsg, tea.ResumeMsg:
		return v.Foreground(), true
	}
	return nil, false
}

// Suspend moves to the background and suspends the process.
func (v *Visibility) Suspend() tea.Cmd {
	v.Background()
	return tea.Suspend
}
