package model

import "time"

// Origin records how a mailbox came to be used.
type Origin string

const (
	OriginRandom  Origin = "random"
	OriginCustom  Origin = "custom"
	OriginPinned  Origin = "pinned"
	OriginHistory Origin = "history"
)

// HistoryEntry is a previously used mailbox. Only the address and counters
// are kept; message content is never stored.
type HistoryEntry struct {
	ID            string    `db:"id"`
	Address       Mailbox   `db:"address"`
	Origin        Origin    `db:"origin"`
	ReceivedCount int       `db:"received_count"`
	CreatedAt     time.Time `db:"created_at"`
	LastUsedAt    time.Time `db:"last_used_at"`
}
