package maillist

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
)

func msg(title string) model.Message {
	return model.Message{
		From:       "sender@example.org",
		Title:      title,
		TextBody:   "body of " + title,
		ReceivedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewListShowsEmptyPlaceholder(t *testing.T) {
	l := New(80, 20)

	require.Equal(t, 0, l.Count())
	require.True(t, l.PlaceholderVisible())
	require.Contains(t, l.View(), "No mail yet")
	require.Equal(t, "0 messages", l.CountLabel())
}

func TestAppendPrependsNewestFirst(t *testing.T) {
	l := New(80, 20)

	l.Append(msg("A"))
	l.Append(msg("B"))
	l.Append(msg("C"))

	got := l.Messages()
	require.Len(t, got, 3)
	require.Equal(t, "C", got[0].Title)
	require.Equal(t, "B", got[1].Title)
	require.Equal(t, "A", got[2].Title)

	latest, ok := l.Latest()
	require.True(t, ok)
	require.Equal(t, "C", latest.Title)
	require.Equal(t, "3 messages", l.CountLabel())
}

func TestPlaceholderHiddenIffListNonEmpty(t *testing.T) {
	l := New(80, 20)
	require.True(t, l.PlaceholderVisible())

	l.Append(msg("A"))
	require.False(t, l.PlaceholderVisible())
	require.Equal(t, "1 message", l.CountLabel())

	l.ShowEmpty()
	require.True(t, l.PlaceholderVisible())
	require.Equal(t, 0, l.Count())
	_, ok := l.Latest()
	require.False(t, ok)
}

func TestShowErrorOnlyWhenEmpty(t *testing.T) {
	l := New(80, 20)

	l.ShowError(errors.New("connection refused"))
	require.True(t, l.PlaceholderVisible())
	require.Contains(t, l.View(), "Refreshing mail failed")
	require.Contains(t, l.View(), "connection refused")

	l.Append(msg("A"))
	l.ShowError(errors.New("boom"))
	require.False(t, l.PlaceholderVisible())
	require.Equal(t, 1, l.Count())
	require.NotContains(t, l.View(), "boom")
}

func TestDuplicatePayloadsAreKept(t *testing.T) {
	l := New(80, 20)

	l.Append(msg("same"))
	l.Append(msg("same"))

	require.Equal(t, 2, l.Count())
}

func TestViewRendersCard(t *testing.T) {
	l := New(80, 40)
	l.Append(msg("Welcome"))

	view := l.View()
	require.Contains(t, view, "sender@example.org")
	require.Contains(t, view, "Welcome")
	require.Contains(t, view, "2026-01-02 03:04:05")
	require.Contains(t, view, "body of Welcome")
}

func TestViewUsesDefaultsForMissingFields(t *testing.T) {
	l := New(80, 40)
	l.Append(model.Message{})

	view := l.View()
	require.Contains(t, view, unknownSender)
	require.Contains(t, view, noSubject)
	require.Contains(t, view, noContent)
}

func TestSanitizeStripsTerminalSequences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "csi color", in: "\x1b[31mred\x1b[0m", want: "red"},
		{name: "osc title", in: "\x1b]0;pwned\x07ok", want: "ok"},
		{name: "bell and backspace", in: "a\x07b\x08c", want: "abc"},
		{name: "keeps newline and tab", in: "a\nb\tc", want: "a\nb\tc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestPlainLineCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "Hello world", plainLine("  Hello\n\tworld  ", "x"))
	require.Equal(t, "x", plainLine(" \x1b[0m ", "x"))
}

func TestHTMLToText(t *testing.T) {
	src := `<html><head><title>t</title><style>p{color:red}</style></head>
<body><p>Hello <b>there</b></p><script>alert(1)</script><ul><li>one</li><li>two</li></ul>line<br>break &amp; more</body></html>`

	got := htmlToText(src)

	require.Contains(t, got, "Hello there")
	require.Contains(t, got, "• one")
	require.Contains(t, got, "• two")
	require.Contains(t, got, "line\nbreak & more")
	require.NotContains(t, got, "alert")
	require.NotContains(t, got, "color:red")
	require.NotContains(t, got, "<")
}

func TestBodyTextPrefersHTML(t *testing.T) {
	m := model.Message{HTMLBody: "<p>rich</p>", TextBody: "plain"}
	require.Equal(t, "rich", bodyText(m))

	m = model.Message{TextBody: "plain \x1b[2Jtext"}
	require.Equal(t, "plain text", bodyText(m))

	m = model.Message{HTMLBody: "<script>x</script>"}
	require.Equal(t, noContent, bodyText(m))

	require.Equal(t, noContent, bodyText(model.Message{}))
}

func TestHTMLBodyCannotInjectEscapes(t *testing.T) {
	m := model.Message{HTMLBody: "<p>safe\x1b]52;c;ZXZpbA==\x07</p>"}
	got := bodyText(m)

	require.False(t, strings.ContainsRune(got, '\x1b'))
	require.Equal(t, "safe", got)
}

func TestPlainText(t *testing.T) {
	m := msg("Report")
	m.From = "\x1b[1mboss@example.org"

	got := PlainText(m)

	require.Equal(t, "From:    boss@example.org\n"+
		"Date:    2026-01-02 03:04:05\n"+
		"Subject: Report\n\n"+
		"body of Report\n", got)
}
