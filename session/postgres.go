package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/opencourts/pleaflow-go/contracts"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists journey data as a JSONB bag per journey, one row
// per journey ID. Rows are upserted on every Put and swept by ExpireBefore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore opens a connection with the lib/pq driver and ensures
// the journeys table exists.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS journeys (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create journeys table: %w", err)
	}
	return nil
}

// Get loads the journey data for one journey ID.
func (s *PostgresStore) Get(ctx context.Context, journeyID string) (contracts.JourneyData, error) {
	const query = `
SELECT data
FROM journeys
WHERE id = $1`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, journeyID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, journeyID)
	}
	if err != nil {
		return nil, err
	}

	var data contracts.JourneyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journey data: %w", err)
	}
	return data, nil
}

// Put upserts the journey data.
func (s *PostgresStore) Put(ctx context.Context, journeyID string, data contracts.JourneyData) error {
	const query = `
INSERT INTO journeys (id, data, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO UPDATE
SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal journey data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, journeyID, raw, time.Now())
	return err
}

// Delete removes the journey row.
func (s *PostgresStore) Delete(ctx context.Context, journeyID string) error {
	const query = `DELETE FROM journeys WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, journeyID)
	return err
}

// ExpireBefore removes journeys not touched since cutoff, the session TTL
// sweep for abandoned journeys. Returns the number of rows removed.
func (s *PostgresStore) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM journeys WHERE updated_at < $1`

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
