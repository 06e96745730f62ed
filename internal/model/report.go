package model

import "time"

// TagOutcome records what happened to a single tag candidate. A candidate
// either resolved to exactly one remote tag and was attached, or was
// skipped with a reason.
type TagOutcome struct {
	Candidate string
	Attached  bool
	TagID     string
	Reason    string
}

// MailResult is the terminal outcome of one mail's export pipeline.
// Err is empty on success; tag outcomes are informational and never mark
// the mail as failed.
type MailResult struct {
	MailID  string
	Subject string
	NoteID  string
	Err     string
	Tags    []TagOutcome
}

// Report aggregates the per-mail results of one triggering action into
// the single user facing outcome.
type Report struct {
	RunID   string
	Results []MailResult
	Success bool
	Message string
}

// ExportRecord is one row of the local export history.
type ExportRecord struct {
	ID         string    `db:"id"`
	RunID      string    `db:"run_id"`
	MailID     string    `db:"mail_id"`
	Subject    string    `db:"subject"`
	NoteID     string    `db:"note_id"`
	Error      string    `db:"error"`
	ExportedAt time.Time `db:"exported_at"`
}
