package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/credential"
	"github.com/nhle/tempmail/internal/mailbox"
	"github.com/nhle/tempmail/internal/model"
	"github.com/nhle/tempmail/internal/refresh"
	"github.com/nhle/tempmail/internal/store"
	"github.com/nhle/tempmail/internal/tempmail"
	"github.com/nhle/tempmail/internal/ui/command"
	settings "github.com/nhle/tempmail/internal/ui/config"
	"github.com/nhle/tempmail/internal/ui/customform"
	"github.com/nhle/tempmail/internal/ui/history"
	"github.com/nhle/tempmail/tests/testutil"
)

// wave is how long a batch of commands may take. Timer commands (countdown,
// periodic tick, flash expiry) take a second or more and are dropped.
const wave = 300 * time.Millisecond

type fakeCopier struct {
	got string
	err error
}

func (c *fakeCopier) Copy(text string) error {
	c.got = text
	return c.err
}

type fakePins struct {
	pinned model.Mailbox
	err    error
}

func (p *fakePins) Pinned() (model.Mailbox, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.pinned.IsZero() {
		return "", credential.ErrNotPinned
	}
	return p.pinned, nil
}

func (p *fakePins) Pin(mb model.Mailbox) error { p.pinned = mb; return p.err }

func (p *fakePins) Unpin() error { p.pinned = ""; return p.err }

type fakeExporter struct {
	saved []model.Message
}

func (e *fakeExporter) SaveMessage(_ model.Mailbox, m model.Message) (string, error) {
	e.saved = append(e.saved, m)
	return "/tmp/latest.eml", nil
}

func (e *fakeExporter) SaveMailbox(_ model.Mailbox, msgs []model.Message) (string, error) {
	e.saved = append(e.saved, msgs...)
	return "/tmp/all.mbox", nil
}

func newClient(s model.ServerConfig) MailClient {
	return tempmail.NewClient(s.BaseURL, 5*time.Second, nil)
}

type harness struct {
	t        *testing.T
	backend  *testutil.Backend
	store    *store.SQLiteStore
	copier   *fakeCopier
	pins     *fakePins
	exporter *fakeExporter
	m        Model
}

func newHarness(t *testing.T, resumePinned bool, domains ...string) *harness {
	t.Helper()

	cfg := model.DefaultAppConfig()
	cfg.Refresh.DrainSpacingMs = 1
	cfg.Mailbox.ResumePinned = resumePinned

	h := &harness{
		t:        t,
		backend:  testutil.NewBackend(t, domains...),
		store:    testutil.NewTestStore(t),
		copier:   &fakeCopier{},
		pins:     &fakePins{},
		exporter: &fakeExporter{},
	}
	cfg.Server.BaseURL = h.backend.URL()

	h.m = New(Deps{
		Config:     cfg,
		ConfigPath: filepath.Join(t.TempDir(), "config.yaml"),
		NewClient:  newClient,
		Client:     newClient(cfg.Server),
		Store:      h.store,
		Pins:       h.pins,
		Clipboard:  h.copier,
		Exporter:   h.exporter,
		Generator:  mailbox.NewSeededGenerator(7),
	})
	return h
}

// startup runs the domain lookup and the first mailbox selection.
func (h *harness) startup() {
	h.run(h.m.loadDomains(purposeStartup))
}

func (h *harness) send(msg tea.Msg) {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.run(cmd)
}

// run executes cmd and feeds every message it produces back into the
// model until nothing is left but timers.
func (h *harness) run(cmd tea.Cmd) {
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		msgs := collect(pending)
		pending = nil
		for _, msg := range msgs {
			next, c := h.m.Update(msg)
			h.m = next.(Model)
			pending = append(pending, c)
		}
	}
}

func collect(cmds []tea.Cmd) []tea.Msg {
	out := make(chan tea.Msg, 64)
	var exec func(tea.Cmd)
	exec = func(c tea.Cmd) {
		if c == nil {
			return
		}
		go func() {
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, sub := range batch {
					exec(sub)
				}
				return
			}
			out <- msg
		}()
	}
	for _, c := range cmds {
		exec(c)
	}

	var msgs []tea.Msg
	deadline := time.After(wave)
	for {
		select {
		case msg := <-out:
			if _, ok := msg.(spinner.TickMsg); ok || msg == nil {
				continue
			}
			msgs = append(msgs, msg)
		case <-deadline:
			return msgs
		}
	}
}

func (h *harness) totalPolls() int {
	return len(h.backend.RawPaths())
}

func TestStartupGeneratesMailbox(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	mb := h.m.Mailbox()
	require.False(t, mb.IsZero())
	require.Equal(t, "example.com", mb.Domain())
	require.Equal(t, []string{"example.com"}, h.m.Domains())

	s := h.m.Scheduler()
	require.True(t, s.Running())
	require.Equal(t, refresh.CountingDown, s.State())
	require.Equal(t, 5, s.Countdown())
	require.Equal(t, 0, h.m.List().Count())

	entry, err := h.store.GetMailbox(context.Background(), mb)
	require.NoError(t, err)
	require.Equal(t, model.OriginRandom, entry.Origin)
}

func TestZeroDomainsCannotGenerate(t *testing.T) {
	h := newHarness(t, false)
	h.startup()

	require.True(t, h.m.Mailbox().IsZero())
	require.Contains(t, h.m.Flash(), "cannot generate")

	h.run(h.m.Perform(ActionGenerate))
	require.True(t, h.m.Mailbox().IsZero())
	require.Contains(t, h.m.Flash(), "cannot generate")
	require.Zero(t, h.totalPolls())
}

func TestUnreachableServerIsReported(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.m.client = tempmail.NewClient("http://127.0.0.1:1", time.Second, nil)
	h.startup()

	require.True(t, h.m.Mailbox().IsZero())
	require.Contains(t, h.m.Flash(), "cannot reach server")
	require.Error(t, h.m.domainErr)
}

func TestInvalidCustomAddressMakesNoRequest(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	before := h.m.Mailbox()
	polls := h.totalPolls()

	h.send(customform.SubmittedMsg{Local: "john doe", Domain: "example.com"})

	require.Equal(t, before, h.m.Mailbox())
	require.Contains(t, h.m.Flash(), "invalid username")
	require.Equal(t, polls, h.totalPolls())
}

func TestCustomAddressReplacesMailbox(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	h.backend.Deliver(h.m.Mailbox().String(), model.Message{Title: "old"})
	h.run(h.m.Perform(ActionRefresh))
	require.Equal(t, 1, h.m.List().Count())

	h.send(customform.SubmittedMsg{Local: " john_doe ", Domain: "example.com"})

	require.Equal(t, model.Mailbox("john_doe@example.com"), h.m.Mailbox())
	require.Equal(t, 0, h.m.List().Count())
	require.Equal(t, 5, h.m.Scheduler().Countdown())
	require.Equal(t, ViewMain, h.m.CurrentView())
}

func TestCustomAddressRejectsUnknownDomain(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	before := h.m.Mailbox()

	h.send(customform.SubmittedMsg{Local: "john", Domain: "evil.test"})

	require.Equal(t, before, h.m.Mailbox())
	require.Contains(t, h.m.Flash(), "invalid domain")
}

func TestRefreshDrainsQueueNewestFirst(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	addr := h.m.Mailbox()

	h.backend.Deliver(addr.String(),
		model.Message{From: "a@example.org", Title: "A"},
		model.Message{From: "b@example.org", Title: "B"},
	)

	h.run(h.m.Perform(ActionRefresh))

	msgs := h.m.List().Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "A", msgs[0].Title)
	require.Equal(t, "B", msgs[1].Title)
	require.Equal(t, 3, h.backend.PollCount(addr.String()))
	require.False(t, h.m.Scheduler().InFlight())
	require.Equal(t, 5, h.m.Scheduler().Countdown())

	entry, err := h.store.GetMailbox(context.Background(), addr)
	require.NoError(t, err)
	require.Equal(t, 2, entry.ReceivedCount)
}

func TestVisibilityRestoreFetchesExactlyOnce(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	addr := h.m.Mailbox().String()

	h.send(tea.BlurMsg{})
	require.Equal(t, refresh.Stopped, h.m.Scheduler().State())
	require.Equal(t, "paused", h.m.Scheduler().Label())

	h.send(tea.FocusMsg{})
	require.Equal(t, 1, h.backend.PollCount(addr))
	require.Equal(t, refresh.CountingDown, h.m.Scheduler().State())
	require.Equal(t, 5, h.m.Scheduler().Countdown())

	h.send(tea.FocusMsg{})
	require.Equal(t, 1, h.backend.PollCount(addr))
}

func TestResumeAfterSuspend(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	addr := h.m.Mailbox().String()

	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	h.m = next.(Model)
	require.NotNil(t, cmd)
	require.False(t, h.m.Scheduler().Running())

	h.send(tea.ResumeMsg{})
	require.True(t, h.m.Scheduler().Running())
	require.Equal(t, 1, h.backend.PollCount(addr))
}

func TestCopyShowsFeedback(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	h.run(h.m.Perform(ActionCopy))
	require.Equal(t, h.m.Mailbox().String(), h.copier.got)
	require.Equal(t, "copied!", h.m.Flash())

	h.send(clearFlashMsg{id: h.m.flashID})
	require.Empty(t, h.m.Flash())
}

func TestStaleFlashExpiryKeepsNewerMessage(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	h.run(h.m.Perform(ActionCopy))
	old := h.m.flashID
	h.send(command.CommandMsg("nope"))

	h.send(clearFlashMsg{id: old})
	require.Equal(t, "unknown command: nope", h.m.Flash())
}

func TestCopyFailure(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.copier.err = errors.New("no clipboard")
	h.startup()

	h.run(h.m.Perform(ActionCopy))
	require.Equal(t, "clipboard unavailable", h.m.Flash())
}

func TestKeyBindingsDispatchActions(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	first := h.m.Mailbox()

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	require.NotEqual(t, first, h.m.Mailbox())

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	require.Equal(t, ViewHelp, h.m.CurrentView())
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ViewMain, h.m.CurrentView())

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{':'}})
	require.Equal(t, ViewCommand, h.m.CurrentView())
	h.send(command.CommandMsg("help"))
	require.Equal(t, ViewHelp, h.m.CurrentView())
}

func TestPaletteResolvesEveryAction(t *testing.T) {
	names := ActionNames()
	require.Len(t, names, len(actions))
	for _, n := range names {
		_, ok := actions[Action(n)]
		require.True(t, ok, n)
	}
	require.Contains(t, names, "export-latest")
}

func TestResumePinnedMailbox(t *testing.T) {
	h := newHarness(t, true, "example.com")
	h.pins.pinned = "saved@example.com"
	h.startup()

	require.Equal(t, model.Mailbox("saved@example.com"), h.m.Mailbox())
	require.True(t, strings.HasPrefix(h.m.addressLabel(), "📌"))
}

func TestResumePinnedOnRetiredDomain(t *testing.T) {
	h := newHarness(t, true, "example.com")
	h.pins.pinned = "saved@retired.test"
	h.startup()

	require.Equal(t, "example.com", h.m.Mailbox().Domain())
	require.Equal(t, "pinned address is no longer offered", h.m.Flash())
}

func TestResumePinnedFallsBackToGenerate(t *testing.T) {
	h := newHarness(t, true, "example.com")
	h.startup()

	require.False(t, h.m.Mailbox().IsZero())
	require.NotEqual(t, model.Mailbox("saved@example.com"), h.m.Mailbox())
}

func TestPinAndUnpin(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	h.run(h.m.Perform(ActionPin))
	require.Equal(t, h.m.Mailbox(), h.pins.pinned)
	require.Contains(t, h.m.Flash(), "pinned")

	h.run(h.m.Perform(ActionUnpin))
	require.True(t, h.pins.pinned.IsZero())
	require.Equal(t, "unpinned", h.m.Flash())
}

func TestHistorySelection(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	h.run(h.m.Perform(ActionHistory))
	require.Equal(t, ViewHistory, h.m.CurrentView())

	h.send(history.SelectedMsg{Address: "old@example.com"})
	require.Equal(t, ViewMain, h.m.CurrentView())
	require.Equal(t, model.Mailbox("old@example.com"), h.m.Mailbox())

	h.send(history.SelectedMsg{Address: "old@gone.test"})
	require.Equal(t, model.Mailbox("old@example.com"), h.m.Mailbox())
	require.Contains(t, h.m.Flash(), "invalid domain")
}

func TestExportLatest(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	h.run(h.m.Perform(ActionExportLatest))
	require.Equal(t, "nothing to export", h.m.Flash())

	h.backend.Deliver(h.m.Mailbox().String(), model.Message{Title: "keep me"})
	h.run(h.m.Perform(ActionRefresh))
	h.run(h.m.Perform(ActionExportLatest))

	require.Len(t, h.exporter.saved, 1)
	require.Equal(t, "keep me", h.exporter.saved[0].Title)
	require.Equal(t, "saved /tmp/latest.eml", h.m.Flash())
}

func TestQuitStopsScheduler(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()

	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	h.m = next.(Model)

	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.False(t, h.m.Scheduler().Running())
}

func TestViewRendersFrame(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := h.m.View()
	require.Contains(t, view, h.m.Mailbox().String())
	require.Contains(t, view, "refresh in 5s")
	require.Contains(t, view, "0 messages")
	require.Contains(t, view, "No mail yet")
}

func TestSettingsSwitchServer(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	other := testutil.NewBackend(t, "other.test")

	h.run(h.m.Perform(ActionSettings))
	require.Equal(t, ViewSettings, h.m.CurrentView())

	cfg := *h.m.cfg
	cfg.Server.BaseURL = other.URL()
	h.send(settings.SavedMsg{Config: cfg, Domains: []string{"other.test"}, ServerChanged: true})

	require.Equal(t, ViewMain, h.m.CurrentView())
	require.Equal(t, "other.test", h.m.Mailbox().Domain())
	require.Equal(t, []string{"other.test"}, h.m.Domains())
	require.Equal(t, "switched to "+other.URL(), h.m.Flash())

	other.Deliver(h.m.Mailbox().String(), model.Message{Title: "from the new server"})
	h.run(h.m.Perform(ActionRefresh))
	require.Equal(t, 1, h.m.List().Count())
}

func TestSettingsWithoutServerChange(t *testing.T) {
	h := newHarness(t, false, "example.com")
	h.startup()
	first := h.m.Mailbox()

	cfg := *h.m.cfg
	cfg.Mailbox.ResumePinned = true
	h.send(settings.SavedMsg{Config: cfg, Domains: []string{"example.com"}})

	require.Equal(t, first, h.m.Mailbox())
	require.True(t, h.m.cfg.Mailbox.ResumePinned)
	require.Equal(t, "settings saved", h.m.Flash())
}
