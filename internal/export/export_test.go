package export

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempmail/internal/model"
)

var received = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

type part struct {
	contentType string
	body        string
}

func readEML(t *testing.T, r io.Reader) (*mail.Reader, []part) {
	t.Helper()

	mr, err := mail.CreateReader(r)
	require.NoError(t, err)

	var parts []part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		h, ok := p.Header.(*mail.InlineHeader)
		require.True(t, ok)
		ct, _, err := h.ContentType()
		require.NoError(t, err)

		body, err := io.ReadAll(p.Body)
		require.NoError(t, err)
		parts = append(parts, part{contentType: ct, body: string(body)})
	}
	return mr, parts
}

func TestWriteEMLTextOnly(t *testing.T) {
	var buf bytes.Buffer
	m := model.Message{
		From:       "Alice <alice@example.org>",
		Title:      "Hello",
		TextBody:   "plain body",
		ReceivedAt: received,
	}

	require.NoError(t, WriteEML(&buf, "abc123@example.com", m))

	mr, parts := readEML(t, &buf)
	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	require.Equal(t, "Hello", subject)

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	require.Equal(t, "alice@example.org", from[0].Address)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Equal(t, "abc123@example.com", to[0].Address)

	date, err := mr.Header.Date()
	require.NoError(t, err)
	require.True(t, date.Equal(received))

	require.Len(t, parts, 1)
	require.Equal(t, "text/plain", parts[0].contentType)
	require.Equal(t, "plain body", parts[0].body)
}

func TestWriteEMLAlternative(t *testing.T) {
	var buf bytes.Buffer
	m := model.Message{
		From:       "bob@example.org",
		Title:      "Both",
		TextBody:   "text version",
		HTMLBody:   "<p>html version</p>",
		ReceivedAt: received,
	}

	require.NoError(t, WriteEML(&buf, "abc123@example.com", m))

	_, parts := readEML(t, &buf)
	require.Len(t, parts, 2)
	require.Equal(t, "text/plain", parts[0].contentType)
	require.Equal(t, "text version", parts[0].body)
	require.Equal(t, "text/html", parts[1].contentType)
	require.Equal(t, "<p>html version</p>", parts[1].body)
}

func TestWriteEMLUnparseableSender(t *testing.T) {
	var buf bytes.Buffer
	m := model.Message{From: "not an address", Title: "x", HTMLBody: "<b>hi</b>"}

	require.NoError(t, WriteEML(&buf, "abc123@example.com", m))
	require.Contains(t, buf.String(), "From: not an address")

	_, parts := readEML(t, &buf)
	require.Len(t, parts, 1)
	require.Equal(t, "text/html", parts[0].contentType)
}

func TestWriteMboxChronological(t *testing.T) {
	var buf bytes.Buffer
	newestFirst := []model.Message{
		{From: "c@example.org", Title: "third", TextBody: "3", ReceivedAt: received.Add(2 * time.Minute)},
		{From: "b@example.org", Title: "second", TextBody: "2", ReceivedAt: received.Add(time.Minute)},
		{From: "a@example.org", Title: "first", TextBody: "first body", ReceivedAt: received},
	}

	require.NoError(t, WriteMbox(&buf, "abc123@example.com", newestFirst))

	r := mbox.NewReader(&buf)
	var subjects []string
	for {
		msg, err := r.NextMessage()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		mr, parts := readEML(t, msg)
		subject, err := mr.Header.Subject()
		require.NoError(t, err)
		subjects = append(subjects, subject)
		if subject == "first" {
			require.Equal(t, "first body", strings.TrimSpace(parts[0].body))
		}
	}

	require.Equal(t, []string{"first", "second", "third"}, subjects)
}

func TestSaveMessageAndMailbox(t *testing.T) {
	dir := t.TempDir()
	e := New(dir)
	e.now = func() time.Time { return received }

	m := model.Message{From: "a@example.org", Title: "saved", TextBody: "body", ReceivedAt: received}

	path, err := e.SaveMessage("abc123@example.com", m)
	require.NoError(t, err)
	require.Equal(t, "abc123-20260504-103000.eml", path[len(dir)+1:])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Subject: saved")

	path, err = e.SaveMailbox("abc123@example.com", []model.Message{m})
	require.NoError(t, err)
	require.Equal(t, "abc123@example.com-20260504-103000.mbox", path[len(dir)+1:])

	_, err = e.SaveMessage("abc123@example.com", m)
	require.Error(t, err, "existing files are never overwritten")
}

func TestSaveMailboxEmpty(t *testing.T) {
	_, err := New(t.TempDir()).SaveMailbox("abc123@example.com", nil)
	require.True(t, errors.Is(err, ErrNothingToExport))
}

func TestSafeName(t *testing.T) {
	require.Equal(t, "a_b_c@example.com", safeName("a/b c@example.com"))
}
