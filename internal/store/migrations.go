package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mailboxes (
	id             TEXT PRIMARY KEY,
	address        TEXT NOT NULL UNIQUE,
	origin         TEXT NOT NULL DEFAULT 'random',
	received_count INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL,
	last_used_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mailboxes_last_used ON mailboxes(last_used_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
