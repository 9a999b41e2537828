package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS draft_versions (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL UNIQUE,
	parent_id     TEXT,
	payload       BLOB NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_draft (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES draft_versions(version_id)
);
`
// #endregion schema

// #region version
// Version is one saved revision of the draft.
type Version struct {
	VersionID string
	ParentID  string
	Payload   []byte
	CreatedAt time.Time
	Active    bool
}
// #endregion version

// #region store-struct
// SQLiteStore keeps every save as a version row and points the draft slot at
// the newest one. Old versions beyond keep are pruned on save.
type SQLiteStore struct {
	db   *sql.DB
	keep int
}
// #endregion store-struct

// #region constructor
// NewSQLiteStore opens a SQLite database and runs migrations. keep <= 0
// retains every version.
func NewSQLiteStore(dbPath string, keep int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db, keep: keep}, nil
}
// #endregion constructor

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB so the submission log can share the file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// #region load
// Load returns the payload of the active version.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	v, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	return v.Payload, nil
}

// Active returns the active version, or ErrNoDraft.
func (s *SQLiteStore) Active(ctx context.Context) (Version, error) {
	id, err := s.activeID(ctx)
	if err != nil {
		return Version{}, err
	}
	if id == "" {
		return Version{}, ErrNoDraft
	}
	return s.GetVersion(ctx, id)
}

func (s *SQLiteStore) activeID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT version_id FROM active_draft WHERE id = 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active: %w", err)
	}
	return id, nil
}
// #endregion load

// #region save
// Save inserts a new version whose parent is the current active version and
// moves the active pointer to it atomically.
func (s *SQLiteStore) Save(ctx context.Context, payload []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT version_id FROM active_draft WHERE id = 1`).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("get active: %w", err)
	}

	id := uuid.New().String()
	var parentPtr interface{}
	if parent.Valid {
		parentPtr = parent.String
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO draft_versions (version_id, parent_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		id, parentPtr, payload, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO active_draft (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	if s.keep > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM draft_versions
			 WHERE seq NOT IN (SELECT seq FROM draft_versions ORDER BY seq DESC LIMIT ?)
			 AND version_id != ?`,
			s.keep, id,
		)
		if err != nil {
			return fmt.Errorf("prune versions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
// #endregion save

// #region clear
// Clear removes the active pointer and the whole version history.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_draft`); err != nil {
		return fmt.Errorf("clear active: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM draft_versions`); err != nil {
		return fmt.Errorf("clear versions: %w", err)
	}
	return tx.Commit()
}
// #endregion clear

// #region get-version
// GetVersion retrieves a specific draft version by ID.
func (s *SQLiteStore) GetVersion(ctx context.Context, id string) (Version, error) {
	var v Version
	var parentID sql.NullString
	var createdStr string

	err := s.db.QueryRowContext(ctx,
		`SELECT v.version_id, v.parent_id, v.payload, v.created_at,
		        EXISTS (SELECT 1 FROM active_draft a WHERE a.version_id = v.version_id)
		 FROM draft_versions v WHERE v.version_id = ?`, id,
	).Scan(&v.VersionID, &parentID, &v.Payload, &createdStr, &v.Active)
	if err != nil {
		return Version{}, fmt.Errorf("get version %s: %w", id, err)
	}
	v.ParentID = parentID.String
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return v, nil
}
// #endregion get-version

// #region rollback
// Rollback points the draft slot at a previous version. The next Save
// branches from it.
func (s *SQLiteStore) Rollback(ctx context.Context, targetVersionID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM draft_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO active_draft (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		targetVersionID,
	)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
// #endregion rollback

// #region list-versions
// ListVersions returns the most recent draft versions, newest first.
func (s *SQLiteStore) ListVersions(ctx context.Context, limit int) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT v.version_id, v.parent_id, v.payload, v.created_at,
		        EXISTS (SELECT 1 FROM active_draft a WHERE a.version_id = v.version_id)
		 FROM draft_versions v ORDER BY v.seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		var parentID sql.NullString
		var createdStr string
		if err := rows.Scan(&v.VersionID, &parentID, &v.Payload, &createdStr, &v.Active); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		v.ParentID = parentID.String
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
// #endregion list-versions
