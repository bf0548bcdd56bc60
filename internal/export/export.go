// Package export writes received messages to disk as RFC 5322 files (.eml)
// or a single mbox file, so they outlive the session.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-mbox"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/tempmail/internal/model"
)

const fileStamp = "20060102-150405"

// ErrNothingToExport is returned when there are no messages.
var ErrNothingToExport = errors.New("no messages to export")

// Exporter writes export files into a directory.
type Exporter struct {
	dir string
	now func() time.Time
}

// New returns an Exporter writing into dir.
func New(dir string) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{dir: dir, now: time.Now}
}

// SaveMessage writes m to a new .eml file and returns its path.
func (e *Exporter) SaveMessage(mb model.Mailbox, m model.Message) (string, error) {
	name := fmt.Sprintf("%s-%s.eml", safeName(mb.Local()), e.now().Format(fileStamp))
	return e.create(name, func(w io.Writer) error {
		return WriteEML(w, mb, m)
	})
}

// SaveMailbox writes msgs, given newest first, to a new mbox file in
// chronological order and returns its path.
func (e *Exporter) SaveMailbox(mb model.Mailbox, msgs []model.Message) (string, error) {
	if len(msgs) == 0 {
		return "", ErrNothingToExport
	}
	name := fmt.Sprintf("%s-%s.mbox", safeName(mb.String()), e.now().Format(fileStamp))
	return e.create(name, func(w io.Writer) error {
		return WriteMbox(w, mb, msgs)
	})
}

func (e *Exporter) create(name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating export directory %s", e.dir)
	}

	path := filepath.Join(e.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %s", path)
	}

	return path, nil
}

// WriteMbox writes msgs, given newest first, as an mbox stream with the
// oldest message first.
func WriteMbox(w io.Writer, mb model.Mailbox, msgs []model.Message) error {
	mw := mbox.NewWriter(w)
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		sender := "MAILER-DAEMON"
		if addr, err := mail.ParseAddress(m.From); err == nil {
			sender = addr.Address
		}

		part, err := mw.CreateMessage(sender, receivedAt(m))
		if err != nil {
			return errors.Wrap(err, "starting mbox message")
		}
		if err := WriteEML(part, mb, m); err != nil {
			return err
		}
	}
	return errors.Wrap(mw.Close(), "closing mbox")
}

// WriteEML writes m as a MIME message addressed to mb. A message with both
// bodies becomes multipart/alternative.
func WriteEML(w io.Writer, mb model.Mailbox, m model.Message) error {
	h := header(mb, m)

	switch {
	case m.HTMLBody != "" && m.TextBody != "":
		mw, err := mail.CreateWriter(w, h)
		if err != nil {
			return errors.Wrap(err, "creating message writer")
		}
		iw, err := mw.CreateInline()
		if err != nil {
			return errors.Wrap(err, "creating inline part")
		}
		if err := writePart(iw, "text/plain", m.TextBody); err != nil {
			return err
		}
		if err := writePart(iw, "text/html", m.HTMLBody); err != nil {
			return err
		}
		if err := iw.Close(); err != nil {
			return errors.Wrap(err, "closing inline part")
		}
		return errors.Wrap(mw.Close(), "closing message")

	default:
		contentType, body := "text/plain", m.TextBody
		if m.HTMLBody != "" {
			contentType, body = "text/html", m.HTMLBody
		}
		h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

		bw, err := mail.CreateSingleInlineWriter(w, h)
		if err != nil {
			return errors.Wrap(err, "creating message writer")
		}
		if _, err := io.WriteString(bw, body); err != nil {
			return errors.Wrap(err, "writing body")
		}
		return errors.Wrap(bw.Close(), "closing message")
	}
}

func header(mb model.Mailbox, m model.Message) mail.Header {
	var h mail.Header
	h.SetDate(receivedAt(m))
	h.SetSubject(m.Title)
	h.SetAddressList("To", []*mail.Address{{Address: mb.String()}})

	if addr, err := mail.ParseAddress(m.From); err == nil {
		h.SetAddressList("From", []*mail.Address{addr})
	} else if m.From != "" {
		h.SetText("From", m.From)
	}

	// Only fails when the system random source does.
	_ = h.GenerateMessageID()
	return h
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	pw, err := iw.CreatePart(ph)
	if err != nil {
		return errors.Wrapf(err, "creating %s part", contentType)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return errors.Wrapf(err, "writing %s part", contentType)
	}
	return errors.Wrapf(pw.Close(), "closing %s part", contentType)
}

func receivedAt(m model.Message) time.Time {
	if m.ReceivedAt.IsZero() {
		return time.Now()
	}
	return m.ReceivedAt
}

// safeName keeps file names portable.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '@' || r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
