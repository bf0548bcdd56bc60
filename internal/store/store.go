package store

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/nhle/tempmail/internal/model"
)

// ErrNotFound is returned when a mailbox has no history entry.
var ErrNotFound = errors.New("mailbox not in history")

// HistoryFilter controls which history entries are listed.
type HistoryFilter struct {
	Origin *model.Origin
	Query  *string // substring of the address
	Limit  int
}

// Store persists the addresses used in earlier sessions. Message content is
// never written.
type Store interface {
	RecordMailbox(ctx context.Context, address model.Mailbox, origin model.Origin) (model.HistoryEntry, error)
	IncrementReceived(ctx context.Context, address model.Mailbox, n int) error
	GetMailbox(ctx context.Context, address model.Mailbox) (*model.HistoryEntry, error)
	ListMailboxes(ctx context.Context, opts HistoryFilter) ([]model.HistoryEntry, error)
	DeleteMailbox(ctx context.Context, address model.Mailbox) error
	ClearHistory(ctx context.Context) error
	Close() error
}
