// Package journal persists write intents ahead of the three collection
// upserts.
//
// The pipeline performs its collection writes independently, without a
// cross-collection transaction. The journal is the compensating record:
// an intent row is written before the upserts and marked committed only
// after all of them succeed, so an update that died halfway leaves a
// pending row behind and can be detected on restart.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS write_intents (
	intent_id    TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	writes_json  TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	created_at   TEXT NOT NULL,
	committed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_write_intents_user
	ON write_intents (user_id, status);
`

// Journal is a SQLite-backed write-ahead intent log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and runs migrations.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("journal pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Begin records a pending intent and returns its id.
func (j *Journal) Begin(ctx context.Context, userID string, strategy string, writes []string) (string, error) {
	writesJSON, err := json.Marshal(writes)
	if err != nil {
		return "", fmt.Errorf("marshal intent writes: %w", err)
	}

	id := uuid.New().String()
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO write_intents (intent_id, user_id, strategy, writes_json, status, created_at)
		 VALUES (?, ?, ?, ?, 'pending', ?)`,
		id, userID, strategy, string(writesJSON), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert intent: %w", err)
	}
	return id, nil
}

// Commit marks an intent as fully applied.
func (j *Journal) Commit(ctx context.Context, intentID string) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE write_intents SET status = 'committed', committed_at = ? WHERE intent_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), intentID,
	)
	if err != nil {
		return fmt.Errorf("commit intent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit intent: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("commit intent: unknown intent id %s", intentID)
	}
	return nil
}

// Intent is one recorded write intent.
type Intent struct {
	ID        string
	UserID    string
	Strategy  string
	Writes    []string
	CreatedAt time.Time
}

// Pending lists intents that were begun but never committed — the
// fingerprint of a partially applied update. An empty userID lists
// pending intents for all users.
func (j *Journal) Pending(ctx context.Context, userID string) ([]Intent, error) {
	query := `SELECT intent_id, user_id, strategy, writes_json, created_at
		FROM write_intents WHERE status = 'pending'`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending intents: %w", err)
	}
	defer rows.Close()

	var intents []Intent
	for rows.Next() {
		var it Intent
		var writesJSON, createdAt string
		if err := rows.Scan(&it.ID, &it.UserID, &it.Strategy, &writesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		if err := json.Unmarshal([]byte(writesJSON), &it.Writes); err != nil {
			return nil, fmt.Errorf("decode intent writes: %w", err)
		}
		it.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		intents = append(intents, it)
	}
	return intents, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
