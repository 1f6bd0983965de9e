// Package storage persists the dashboard's current session between runs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// SessionStore keeps at most one persisted session in a local SQLite file.
type SessionStore struct {
	conn *sql.DB
}

// Open opens (creating if needed) the session database at path.
func Open(path string) (*SessionStore, error) {
	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	s := &SessionStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) migrate() error {
	_, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS current_session (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		identity_id TEXT NOT NULL,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		saved_at TEXT
	)`)
	return err
}

// Load returns the persisted session, or nil when there is none.
func (s *SessionStore) Load(ctx context.Context) (*backend.Session, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT access_token, refresh_token, expires_at, identity_id, email, name FROM current_session WHERE slot = 1",
	)

	var sess backend.Session
	var expiresAt string
	err := row.Scan(&sess.AccessToken, &sess.RefreshToken, &expiresAt,
		&sess.Identity.ID, &sess.Identity.Email, &sess.Identity.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &sess, nil
}

// Save replaces the persisted session.
func (s *SessionStore) Save(ctx context.Context, sess *backend.Session) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO current_session (slot, access_token, refresh_token, expires_at, identity_id, email, name, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			identity_id = excluded.identity_id,
			email = excluded.email,
			name = excluded.name,
			saved_at = excluded.saved_at`,
		sess.AccessToken, sess.RefreshToken, sess.ExpiresAt.UTC().Format(time.RFC3339Nano),
		sess.Identity.ID, sess.Identity.Email, sess.Identity.Name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Clear removes the persisted session.
func (s *SessionStore) Clear(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM current_session")
	return err
}

// Close closes the database connection.
func (s *SessionStore) Close() error {
	return s.conn.Close()
}
