package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/tempmail/internal/model"
)

// SQLiteStore implements Store using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite db")
	}

	// A single connection keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling WAL mode")
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "running migrations")
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return errors.Wrap(err, "checking schema_version table")
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return errors.Wrap(err, "reading schema version")
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return errors.Wrapf(err, "applying migration v%d", m.version)
		}
	}

	return nil
}

// RecordMailbox marks address as used now. A new entry keeps origin; an
// existing one keeps its first origin and only moves last_used_at.
func (s *SQLiteStore) RecordMailbox(
	ctx context.Context,
	address model.Mailbox,
	origin model.Origin,
) (model.HistoryEntry, error) {
	now := s.now().UTC()

	const query = `
		INSERT INTO mailboxes (id, address, origin, received_count, created_at, last_used_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(address) DO UPDATE SET last_used_at = excluded.last_used_at`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), address.String(), string(origin), now, now,
	)
	if err != nil {
		return model.HistoryEntry{}, errors.Wrapf(err, "recording mailbox %s", address)
	}

	entry, err := s.GetMailbox(ctx, address)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	return *entry, nil
}

// IncrementReceived adds n to the received counter of address.
func (s *SQLiteStore) IncrementReceived(
	ctx context.Context,
	address model.Mailbox,
	n int,
) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE mailboxes SET received_count = received_count + ? WHERE address = ?",
		n, address.String(),
	)
	if err != nil {
		return errors.Wrapf(err, "updating received count for %s", address)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking rows affected")
	}
	if affected == 0 {
		return errors.Wrapf(ErrNotFound, "mailbox %s", address)
	}

	return nil
}

// GetMailbox returns the history entry for address.
func (s *SQLiteStore) GetMailbox(
	ctx context.Context,
	address model.Mailbox,
) (*model.HistoryEntry, error) {
	var entry model.HistoryEntry
	err := s.db.GetContext(ctx, &entry,
		"SELECT * FROM mailboxes WHERE address = ?", address.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "mailbox %s", address)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting mailbox %s", address)
	}

	return &entry, nil
}

// ListMailboxes returns history entries, most recently used first.
func (s *SQLiteStore) ListMailboxes(
	ctx context.Context,
	opts HistoryFilter,
) ([]model.HistoryEntry, error) {
	var conditions []string
	var args []interface{}

	if opts.Origin != nil {
		conditions = append(conditions, "origin = ?")
		args = append(args, string(*opts.Origin))
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "address LIKE ?")
		args = append(args, "%"+*opts.Query+"%")
	}

	query := "SELECT * FROM mailboxes"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY last_used_at DESC, created_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	entries := []model.HistoryEntry{}
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing mailboxes")
	}

	return entries, nil
}

// DeleteMailbox removes address from the history.
func (s *SQLiteStore) DeleteMailbox(ctx context.Context, address model.Mailbox) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM mailboxes WHERE address = ?", address.String())
	if err != nil {
		return errors.Wrapf(err, "deleting mailbox %s", address)
	}
	return nil
}

// ClearHistory removes every entry.
func (s *SQLiteStore) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM mailboxes"); err != nil {
		return errors.Wrap(err, "clearing history")
	}
	return nil
}
