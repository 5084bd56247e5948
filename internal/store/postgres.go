package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevault/medreports/internal/model"
)

// PostgresStore keeps the slot in a single keyed row. The contract is still
// wholesale replace, so the row holds the entire serialized collection rather
// than one row per report.
type PostgresStore struct {
	pool *pgxpool.Pool
	key  string
}

// NewPostgresStore constructs a PostgresStore around an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, key: SlotKey}
}

// Load selects the slot payload.
func (s *PostgresStore) Load(ctx context.Context) (model.Collection, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM report_slots WHERE slot_key=$1`, s.key)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Collection{}, nil
		}
		return nil, fmt.Errorf("select slot: %w", err)
	}
	return decode(payload), nil
}

// Save upserts the slot payload.
func (s *PostgresStore) Save(ctx context.Context, col model.Collection) error {
	data, err := encode(col)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO report_slots (slot_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, s.key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}
