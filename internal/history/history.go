// Package history keeps a local SQLite record of generated sessions so the
// offline generator can apply the anti-repeat penalty without a server.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claude/volleyplan/internal/models"
	_ "modernc.org/sqlite"
)

// Store is the local session history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at dir/history.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		coach_id     INTEGER NOT NULL,
		ruleset      TEXT NOT NULL,
		request_hash TEXT NOT NULL,
		drill_ids    TEXT NOT NULL,
		session      TEXT NOT NULL,
		created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a generated session and returns its row id.
func (s *Store) Record(ctx context.Context, coachID int, requestHash string, session *models.GeneratedSession) (int64, error) {
	idsJSON, err := json.Marshal(session.DrillIDs())
	if err != nil {
		return 0, fmt.Errorf("encoding drill ids: %w", err)
	}
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return 0, fmt.Errorf("encoding session: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (coach_id, ruleset, request_hash, drill_ids, session) VALUES (?, ?, ?, ?, ?)`,
		coachID, session.Ruleset, requestHash, string(idsJSON), string(sessionJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return res.LastInsertId()
}

// RecentDrillBuckets returns the drill ids of the coach's n most recent
// sessions, most recent first.
func (s *Store) RecentDrillBuckets(ctx context.Context, coachID, n int) ([][]int, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT drill_ids FROM sessions WHERE coach_id = ? ORDER BY id DESC LIMIT ?`,
		coachID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	defer rows.Close()

	var buckets [][]int
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning recent session: %w", err)
		}
		var ids []int
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decoding drill ids: %w", err)
		}
		buckets = append(buckets, ids)
	}
	return buckets, rows.Err()
}

// CountByRequest reports how many sessions were generated from the same
// request body.
func (s *Store) CountByRequest(ctx context.Context, coachID int, requestHash string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE coach_id = ? AND request_hash = ?`,
		coachID, requestHash,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the history database.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashRequest computes the SHA-256 hash of a request body.
func HashRequest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
