// Package refresh owns the countdown, the periodic refresh tick and the
// single-flight fetch/drain cycle for the current mailbox.
//
// All state lives on the Bubble Tea update goroutine: timers are tea.Tick
// one-shots tagged with an epoch, and network calls run inside tea.Cmds whose
// results come back as messages. Nothing here is safe for concurrent use
// from other goroutines.
package refresh

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempmail/internal/model"
)

// State is the scheduler's position in its cycle.
type State int

const (
	Stopped State = iota
	CountingDown
	Refreshing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case CountingDown:
		return "counting down"
	case Refreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RefreshingLabel is shown instead of the countdown while a cycle runs.
const RefreshingLabel = "refreshing..."

// Fetcher retrieves at most one pending message for a mailbox. A nil
// message with a nil error means nothing is pending.
type Fetcher interface {
	Poll(ctx context.Context, mailbox model.Mailbox) (*model.Message, error)
}

// Renderer is the message list the scheduler feeds.
type Renderer interface {
	ShowEmpty()
	ShowError(err error)
	Append(msg model.Message)
	Count() int
}

// Config holds the scheduler cadence.
type Config struct {
	// CountdownFrom is the value the countdown is re-armed to.
	CountdownFrom int
	// TickInterval is the countdown step.
	TickInterval time.Duration
	// RefreshInterval is the periodic refresh tick, independent of the
	// countdown.
	RefreshInterval time.Duration
	// DrainSpacing separates consecutive polls within one cycle.
	DrainSpacing time.Duration
	// DrainCap bounds the consecutive messages taken in one cycle.
	DrainCap int
	// FetchTimeout bounds a single poll.
	FetchTimeout time.Duration
}

// DefaultConfig returns the cadence of the reference web client plus the
// bounds it lacked.
func DefaultConfig() Config {
	return Config{
		CountdownFrom:   5,
		TickInterval:    time.Second,
		RefreshInterval: 5 * time.Second,
		DrainSpacing:    500 * time.Millisecond,
		DrainCap:        50,
		FetchTimeout:    10 * time.Second,
	}
}

// ConfigFrom converts the refresh section of the application config.
func ConfigFrom(c model.RefreshConfig) Config {
	return Config{
		CountdownFrom:   c.CountdownSec,
		TickInterval:    time.Second,
		RefreshInterval: time.Duration(c.IntervalSec) * time.Second,
		DrainSpacing:    time.Duration(c.DrainSpacingMs) * time.Millisecond,
		DrainCap:        c.DrainCap,
		FetchTimeout:    time.Duration(c.FetchTimeoutSec) * time.Second,
	}
}

// Status is a snapshot for display.
type Status struct {
	State       State
	Countdown   int
	LastRefresh time.Time
	LastError   error
	Cycles      int
	Received    int
}

// tickFunc matches tea.Tick.
type tickFunc func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

type countdownTickMsg struct{ epoch uint64 }

type refreshTickMsg struct{ epoch uint64 }

type drainNextMsg struct {
	cycle   uint64
	mailbox model.Mailbox
}

type pollResultMsg struct {
	cycle   uint64
	mailbox model.Mailbox
	message *model.Message
	err     error
}

// ReceivedMsg is emitted after a message has been appended to the renderer,
// so the parent can update counters that live outside the list.
type ReceivedMsg struct {
	Mailbox model.Mailbox
	Message model.Message
}

// Scheduler is the refresh state machine.
type Scheduler struct {
	fetcher  Fetcher
	renderer Renderer
	cfg      Config
	logger   *zap.SugaredLogger
	tick     tickFunc
	now      func() time.Time

	state     State
	countdown int
	mailbox   model.Mailbox
	running   bool

	// epoch invalidates timers armed before the last Start or Stop.
	epoch uint64

	// inFlight is the single-flight guard. It is set before a poll is
	// dispatched and cleared only when the whole drain loop settles.
	inFlight bool
	cycle    uint64
	drained  int

	lastRefresh time.Time
	lastErr     error
	cycles      int
	received    int
}

// New creates a stopped Scheduler.
func New(f Fetcher, r Renderer, cfg Config, logger *zap.SugaredLogger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.CountdownFrom <= 0 {
		cfg.CountdownFrom = DefaultConfig().CountdownFrom
	}
	if cfg.DrainCap <= 0 {
		cfg.DrainCap = DefaultConfig().DrainCap
	}
	return &Scheduler{
		fetcher:   f,
		renderer:  r,
		cfg:       cfg,
		logger:    logger,
		tick:      tea.Tick,
		now:       time.Now,
		state:     Stopped,
		countdown: cfg.CountdownFrom,
	}
}

// Start arms the countdown and periodic timers. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start() tea.Cmd {
	if s.running {
		return nil
	}
	s.running = true
	s.epoch++
	s.countdown = s.cfg.CountdownFrom
	if s.inFlight {
		// A cycle dispatched before the last Stop is still out; its result
		// will be accepted because the scheduler is active again.
		s.state = Refreshing
	} else {
		s.state = CountingDown
	}
	s.logger.Debugw("scheduler started", "epoch", s.epoch)
	return tea.Batch(s.armCountdown(), s.armRefresh())
}

// Stop cancels both timers. A poll already in flight completes, but its
// result is dropped.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.epoch++
	s.state = Stopped
	s.logger.Debugw("scheduler stopped", "epoch", s.epoch, "in_flight", s.inFlight)
}

// TriggerNow starts a cycle immediately, preempting the countdown. It is a
// no-op while stopped or while a cycle is in flight.
func (s *Scheduler) TriggerNow() tea.Cmd {
	return s.dispatch("manual")
}

// SetMailbox switches the monitored mailbox. The list is reset, the
// countdown re-armed, and any in-flight result for the old mailbox will be
// discarded.
func (s *Scheduler) SetMailbox(mb model.Mailbox) {
	s.mailbox = mb
	s.countdown = s.cfg.CountdownFrom
	s.renderer.ShowEmpty()
	s.lastErr = nil
}

// SetFetcher switches the backend used by later polls. A poll already in
// flight still reports through the old one.
func (s *Scheduler) SetFetcher(f Fetcher) {
	s.fetcher = f
}

// Mailbox returns the monitored mailbox.
func (s *Scheduler) Mailbox() model.Mailbox { return s.mailbox }

// Running reports whether the timers are armed.
func (s *Scheduler) Running() bool { return s.running }

// InFlight reports whether the single-flight guard is held.
func (s *Scheduler) InFlight() bool { return s.inFlight }

// State returns the current state.
func (s *Scheduler) State() State { return s.state }

// Countdown returns the seconds left before the next automatic cycle.
func (s *Scheduler) Countdown() int { return s.countdown }

// Label is the text for the countdown indicator.
func (s *Scheduler) Label() string {
	switch s.state {
	case Refreshing:
		return RefreshingLabel
	case CountingDown:
		return fmt.Sprintf("refresh in %ds", s.countdown)
	default:
		return "paused"
	}
}

// Status returns a display snapshot.
func (s *Scheduler) Status() Status {
	return Status{
		State:       s.state,
		Countdown:   s.countdown,
		LastRefresh: s.lastRefresh,
		LastError:   s.lastErr,
		Cycles:      s.cycles,
		Received:    s.received,
	}
}

// Update consumes scheduler messages. The boolean reports whether msg
// belonged to the scheduler; other messages are left to the caller.
func (s *Scheduler) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case countdownTickMsg:
		return s.onCountdownTick(msg), true
	case refreshTickMsg:
		return s.onRefreshTick(msg), true
	case pollResultMsg:
		return s.onPollResult(msg), true
	case drainNextMsg:
		return s.onDrainNext(msg), true
	}
	return nil, false
}

func (s *Scheduler) onCountdownTick(msg countdownTickMsg) tea.Cmd {
	if msg.epoch != s.epoch || !s.running {
		return nil
	}
	next := s.armCountdown()
	if s.state != CountingDown {
		return next
	}

	if s.countdown > 0 {
		s.countdown--
	}
	if s.countdown > 0 {
		return next
	}

	cmd := s.dispatch("countdown")
	if cmd == nil {
		// Nothing could be dispatched (no mailbox yet); start over.
		s.countdown = s.cfg.CountdownFrom
	}
	return tea.Batch(next, cmd)
}

func (s *Scheduler) onRefreshTick(msg refreshTickMsg) tea.Cmd {
	if msg.epoch != s.epoch || !s.running {
		return nil
	}
	return tea.Batch(s.armRefresh(), s.dispatch("periodic"))
}

// dispatch is the only path that starts a cycle.
func (s *Scheduler) dispatch(reason string) tea.Cmd {
	if !s.running || s.mailbox.IsZero() {
		return nil
	}
	if s.inFlight {
		s.logger.Debugw("refresh skipped, cycle in flight", "reason", reason, "cycle", s.cycle)
		return nil
	}

	s.inFlight = true
	s.cycle++
	s.drained = 0
	s.cycles++
	s.state = Refreshing
	s.logger.Debugw("refresh cycle started", "reason", reason, "cycle", s.cycle, "mailbox", s.mailbox.String())
	return s.poll(s.cycle, s.mailbox)
}

func (s *Scheduler) poll(cycle uint64, mb model.Mailbox) tea.Cmd {
	f := s.fetcher
	timeout := s.cfg.FetchTimeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		msg, err := f.Poll(ctx, mb)
		return pollResultMsg{cycle: cycle, mailbox: mb, message: msg, err: err}
	}
}

// stale reports whether a result for mb can no longer be shown.
func (s *Scheduler) stale(mb model.Mailbox) bool {
	return !s.running || mb != s.mailbox
}

func (s *Scheduler) onPollResult(msg pollResultMsg) tea.Cmd {
	if !s.inFlight || msg.cycle != s.cycle {
		return nil
	}

	if s.stale(msg.mailbox) {
		s.logger.Debugw("discarding stale poll result",
			"cycle", msg.cycle, "mailbox", msg.mailbox.String(), "running", s.running)
		s.settle()
		return nil
	}

	if msg.err != nil {
		s.lastErr = msg.err
		s.logger.Warnw("mail poll failed", "mailbox", msg.mailbox.String(), "error", msg.err)
		if s.renderer.Count() == 0 {
			s.renderer.ShowError(msg.err)
		}
		s.settle()
		return nil
	}

	s.lastErr = nil
	s.lastRefresh = s.now()

	if msg.message == nil {
		if s.renderer.Count() == 0 {
			s.renderer.ShowEmpty()
		}
		s.settle()
		return nil
	}

	m := *msg.message
	m.ReceivedAt = s.now()
	s.renderer.Append(m)
	s.drained++
	s.received++
	received := func() tea.Msg { return ReceivedMsg{Mailbox: msg.mailbox, Message: m} }

	if s.drained >= s.cfg.DrainCap {
		s.logger.Warnw("drain cap reached, deferring to next cycle",
			"mailbox", msg.mailbox.String(), "cap", s.cfg.DrainCap)
		s.settle()
		return received
	}

	cycle, mb := s.cycle, msg.mailbox
	next := s.tick(s.cfg.DrainSpacing, func(time.Time) tea.Msg {
		return drainNextMsg{cycle: cycle, mailbox: mb}
	})
	return tea.Batch(received, next)
}

func (s *Scheduler) onDrainNext(msg drainNextMsg) tea.Cmd {
	if !s.inFlight || msg.cycle != s.cycle {
		return nil
	}
	if s.stale(msg.mailbox) {
		s.settle()
		return nil
	}
	return s.poll(s.cycle, msg.mailbox)
}

// settle releases the guard and re-arms the countdown.
func (s *Scheduler) settle() {
	s.inFlight = false
	s.countdown = s.cfg.CountdownFrom
	if s.running {
		s.state = CountingDown
	} else {
		s.state = Stopped
	}
}

func (s *Scheduler) armCountdown() tea.Cmd {
	epoch := s.epoch
	return s.tick(s.cfg.TickInterval, func(time.Time) tea.Msg {
		return countdownTickMsg{epoch: epoch}
	})
}

func (s *Scheduler) armRefresh() tea.Cmd {
	epoch := s.epoch
	return s.tick(s.cfg.RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{epoch: epoch}
	})
}
