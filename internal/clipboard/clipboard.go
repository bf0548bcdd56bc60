// Package clipboard copies text to the system clipboard, falling back to an
// OSC 52 terminal sequence when no clipboard utility is available (for
// example over SSH).
package clipboard

import (
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/cockroachdb/errors"
)

// ErrClipboard marks a copy that failed on every path.
var ErrClipboard = errors.New("clipboard unavailable")

// Copier writes to the system clipboard, then to the terminal.
type Copier struct {
	system func(string) error
	term   io.Writer
	env    func(string) string
}

// New returns a Copier using the system clipboard and stderr.
func New() *Copier {
	return &Copier{
		system: clipboard.WriteAll,
		term:   os.Stderr,
		env:    os.Getenv,
	}
}

// NewWith returns a Copier with the given system writer and terminal. A nil
// terminal disables the fallback.
func NewWith(system func(string) error, term io.Writer) *Copier {
	return &Copier{system: system, term: term, env: func(string) string { return "" }}
}

// Copy puts text on the clipboard.
func (c *Copier) Copy(text string) error {
	sysErr := c.system(text)
	if sysErr == nil {
		return nil
	}
	if c.term == nil {
		return errors.Mark(errors.Wrap(sysErr, "copying to clipboard"), ErrClipboard)
	}

	seq := osc52.New(text)
	switch {
	case c.env("TMUX") != "":
		seq = seq.Tmux()
	case c.env("STY") != "":
		seq = seq.Screen()
	}

	if _, err := seq.WriteTo(c.term); err != nil {
		return errors.Mark(
			errors.WithSecondaryError(errors.Wrap(sysErr, "copying to clipboard"), err),
			ErrClipboard,
		)
	}
	return nil
}
