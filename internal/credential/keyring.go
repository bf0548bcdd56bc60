// Package credential keeps the pinned mailbox in the system keyring so it
// survives restarts without a plaintext file.
package credential

import (
	"github.com/99designs/keyring"
	"github.com/cockroachdb/errors"

	"github.com/nhle/tempmail/internal/model"
)

const (
	serviceName = "tempmail"
	pinnedKey   = "pinned-mailbox"
)

// ErrNotPinned is returned when no mailbox is pinned.
var ErrNotPinned = errors.New("no pinned mailbox")

// Keyring is the subset of keyring.Keyring used here.
type Keyring interface {
	Get(key string) (keyring.Item, error)
	Set(item keyring.Item) error
	Remove(key string) error
}

// Opener opens the keyring lazily so a missing backend only fails the
// actions that need it.
type Opener func() (Keyring, error)

// Pins stores and retrieves the pinned mailbox.
type Pins struct {
	open Opener
}

// NewPins returns Pins backed by the system keyring.
func NewPins() *Pins {
	return &Pins{open: openKeyring}
}

// NewPinsWith returns Pins backed by open.
func NewPinsWith(open Opener) *Pins {
	return &Pins{open: open}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/tempmail/keyring",
		FilePasswordFunc:         keyring.FixedStringPrompt("tempmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return ring, nil
}

// Pinned returns the pinned mailbox, or ErrNotPinned.
func (p *Pins) Pinned() (model.Mailbox, error) {
	ring, err := p.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(pinnedKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotPinned
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting %q", pinnedKey)
	}

	mb := model.Mailbox(item.Data)
	if mb.Local() == "" || mb.Domain() == "" {
		return "", ErrNotPinned
	}
	return mb, nil
}

// Pin stores mb as the pinned mailbox.
func (p *Pins) Pin(mb model.Mailbox) error {
	ring, err := p.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   pinnedKey,
		Data:  []byte(mb.String()),
		Label: "tempmail pinned mailbox",
	})
	if err != nil {
		return errors.Wrapf(err, "setting %q", pinnedKey)
	}

	return nil
}

// Unpin forgets the pinned mailbox. Unpinning when nothing is pinned is not
// an error.
func (p *Pins) Unpin() error {
	ring, err := p.open()
	if err != nil {
		return err
	}

	err = ring.Remove(pinnedKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return errors.Wrapf(err, "deleting %q", pinnedKey)
	}

	return nil
}
