// Package streamid persists the stream handles participants register with
// the bot. Handles outlive the process and are loaded once at startup.
package streamid

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS stream_handles (
    participant_id TEXT PRIMARY KEY,
    handle         TEXT NOT NULL
)`

// Store implements stream-handle data access over Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the stream_handles table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure stream_handles schema: %w", err)
	}
	return nil
}

// Get returns the handle registered for a participant, reporting absence
// without error.
func (s *Store) Get(ctx context.Context, participantID string) (string, bool, error) {
	var handle string
	err := s.pool.QueryRow(ctx,
		`SELECT handle FROM stream_handles WHERE participant_id = $1`,
		participantID,
	).Scan(&handle)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get stream handle: %w", err)
	}
	return handle, true, nil
}

// Set registers or replaces a participant's handle.
func (s *Store) Set(ctx context.Context, participantID, handle string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stream_handles (participant_id, handle) VALUES ($1, $2)
		 ON CONFLICT (participant_id) DO UPDATE SET handle = EXCLUDED.handle`,
		participantID, handle,
	)
	if err != nil {
		return fmt.Errorf("set stream handle: %w", err)
	}
	return nil
}

// LoadAll returns every registered handle keyed by participant id.
func (s *Store) LoadAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT participant_id, handle FROM stream_handles`)
	if err != nil {
		return nil, fmt.Errorf("load stream handles: %w", err)
	}
	defer rows.Close()

	handles := make(map[string]string)
	for rows.Next() {
		var id, handle string
		if err := rows.Scan(&id, &handle); err != nil {
			return nil, fmt.Errorf("scan stream handle: %w", err)
		}
		handles[id] = handle
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stream handles: %w", err)
	}
	return handles, nil
}
