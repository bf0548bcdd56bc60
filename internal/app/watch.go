package app

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/refresh"
	"github.com/nhle/tempmail/internal/ui/maillist"
)

// printer is a refresh.Renderer writing each message to out.
type printer struct {
	out   io.Writer
	errw  io.Writer
	count int
}

func (p *printer) ShowEmpty() {}

func (p *printer) ShowError(err error) {
	fmt.Fprintf(p.errw, "poll failed: %v\n", err)
}

func (p *printer) Append(m model.Message) {
	p.count++
	fmt.Fprintf(p.out, "%s\n%s", strings.Repeat("-", 60), maillist.PlainText(m))
}

func (p *printer) Count() int { return p.count }

// Watch is the headless model: it polls one mailbox on the normal cadence
// and prints messages as they arrive.
type Watch struct {
	sched *refresh.Scheduler
	out   *printer
	limit int
}

// NewWatch creates a Watch for mb. A positive limit quits after that many
// messages.
func NewWatch(
	f refresh.Fetcher,
	cfg refresh.Config,
	mb model.Mailbox,
	limit int,
	out, errw io.Writer,
	logger *zap.SugaredLogger,
) Watch {
	p := &printer{out: out, errw: errw}
	s := refresh.New(f, p, cfg, logger)
	s.SetMailbox(mb)
	return Watch{sched: s, out: p, limit: limit}
}

// Received returns the number of messages printed.
func (w Watch) Received() int { return w.out.count }

// Init starts the scheduler with an immediate cycle.
func (w Watch) Init() tea.Cmd {
	start := w.sched.Start()
	return tea.Batch(start, w.sched.TriggerNow())
}

// Update forwards scheduler messages and stops at the limit.
func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd, ok := w.sched.Update(msg); ok {
		return w, cmd
	}

	switch msg := msg.(type) {
	case refresh.ReceivedMsg:
		if w.limit > 0 && w.out.count >= w.limit {
			w.sched.Stop()
			return w, tea.Quit
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			w.sched.Stop()
			return w, tea.Quit
		}
	}
	return w, nil
}

// View is empty; output goes straight to the writer.
func (w Watch) View() string { return "" }
