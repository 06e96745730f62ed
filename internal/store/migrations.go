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

CREATE TABLE IF NOT EXISTS exports (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	mail_id     TEXT NOT NULL,
	subject     TEXT NOT NULL DEFAULT '',
	note_id     TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	exported_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exports_run_id ON exports(run_id);
CREATE INDEX IF NOT EXISTS idx_exports_exported_at ON exports(exported_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
