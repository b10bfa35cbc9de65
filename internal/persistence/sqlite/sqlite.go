// Package sqlite implements the snapshot store on a SQLite database, for
// deployments that prefer a real database file over a JSON document.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/zerollpaper/presence-bot/internal/persistence"
)

// Store persists snapshots in two tables: one row per (person, date) entry
// and a single-row table for the board message reference.
type Store struct {
	db *sql.DB
}

// Open establishes the database connection. The schema is not touched until
// Migrate is called.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY between the dispatcher and the cleanup pass.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Migrate applies the schema, idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS presence_entries (
	person   TEXT NOT NULL,
	date_key TEXT NOT NULL,
	status   TEXT NOT NULL,
	note     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (person, date_key)
);
CREATE TABLE IF NOT EXISTS board_message (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	channel TEXT NOT NULL DEFAULT '',
	ts      TEXT NOT NULL DEFAULT ''
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Load reads the full snapshot.
func (s *Store) Load(ctx context.Context) (persistence.Snapshot, error) {
	snap := persistence.Snapshot{Schedules: map[string]map[string]persistence.Entry{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT person, date_key, status, note
		FROM presence_entries
	`)
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var person, dateKey string
		var entry persistence.Entry
		if err := rows.Scan(&person, &dateKey, &entry.Status, &entry.Note); err != nil {
			return persistence.Snapshot{}, fmt.Errorf("scan entry: %w", err)
		}
		inner, ok := snap.Schedules[person]
		if !ok {
			inner = make(map[string]persistence.Entry)
			snap.Schedules[person] = inner
		}
		inner[dateKey] = entry
	}
	if err := rows.Err(); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("iterate entries: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT channel, ts FROM board_message WHERE id = 1
	`).Scan(&snap.BoardMessage.Channel, &snap.BoardMessage.Timestamp)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return persistence.Snapshot{}, fmt.Errorf("query board message: %w", err)
	}

	return snap, nil
}

// Save replaces the stored snapshot inside one transaction.
func (s *Store) Save(ctx context.Context, snap persistence.Snapshot) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM presence_entries`); err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM board_message`); err != nil {
			return fmt.Errorf("clear board message: %w", err)
		}

		for person, inner := range snap.Schedules {
			for dateKey, entry := range inner {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO presence_entries (person, date_key, status, note)
					VALUES (?, ?, ?, ?)
				`, person, dateKey, entry.Status, entry.Note)
				if err != nil {
					return fmt.Errorf("insert entry for %s on %s: %w", person, dateKey, err)
				}
			}
		}

		if snap.BoardMessage.Channel != "" || snap.BoardMessage.Timestamp != "" {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO board_message (id, channel, ts) VALUES (1, ?, ?)
			`, snap.BoardMessage.Channel, snap.BoardMessage.Timestamp)
			if err != nil {
				return fmt.Errorf("insert board message: %w", err)
			}
		}
		return nil
	})
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
