package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS submission_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	attempt_id    TEXT NOT NULL,
	full_name     TEXT,
	outcome       TEXT NOT NULL,
	stage         TEXT NOT NULL,
	message       TEXT,
	locator       TEXT,
	file_name     TEXT,
	payload_hash  TEXT,
	bytes         INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);
`

// Migrate creates the submission_log table if it does not exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate submission log: %w", err)
	}
	return nil
}

// Open opens (or creates) a SQLite database holding only the submission log.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
// #endregion schema

// #region log-submission
// LogSubmission appends an entry to the submission_log table.
func LogSubmission(ctx context.Context, db *sql.DB, entry SubmissionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO submission_log (attempt_id, full_name, outcome, stage, message, locator, file_name, payload_hash, bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.AttemptID,
		nullIfEmpty(entry.FullName),
		string(entry.Outcome),
		entry.Stage,
		nullIfEmpty(entry.Message),
		nullIfEmpty(entry.Locator),
		nullIfEmpty(entry.FileName),
		nullIfEmpty(entry.PayloadHash),
		entry.Bytes,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log submission: %w", err)
	}
	return nil
}
// #endregion log-submission

// #region list-submissions
// ListSubmissions returns the most recent entries, newest first.
func ListSubmissions(ctx context.Context, db *sql.DB, limit int) ([]SubmissionEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT attempt_id, full_name, outcome, stage, message, locator, file_name, payload_hash, bytes, created_at
		 FROM submission_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []SubmissionEntry
	for rows.Next() {
		var e SubmissionEntry
		var outcome, created string
		var fullName, message, locator, fileName, hash sql.NullString
		if err := rows.Scan(&e.AttemptID, &fullName, &outcome, &e.Stage, &message, &locator, &fileName, &hash, &e.Bytes, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.FullName = fullName.String
		e.Message = message.String
		e.Locator = locator.String
		e.FileName = fileName.String
		e.PayloadHash = hash.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-submissions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
