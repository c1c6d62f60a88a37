package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geowave/internal/db"
	"github.com/sells-group/geowave/internal/model"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to connString and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS words (
	id         TEXT PRIMARY KEY,
	count      INTEGER NOT NULL,
	images     JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate implements Store.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Merge implements Store. A transaction-scoped advisory lock on the key
// serializes concurrent merges of the same key, including the first insert
// where there is no row to lock yet.
func (s *PostgresStore) Merge(ctx context.Context, key string, fresh []model.ImageRef) (*model.QueryRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin merge")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return nil, eris.Wrapf(err, "postgres: lock %q", key)
	}

	existing, err := getRecord(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	rec := MergeImages(existing, fresh)
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal images")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO words (id, count, images, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			count = EXCLUDED.count,
			images = EXCLUDED.images,
			updated_at = now()`,
		key, rec.Count, images,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: write %q", key)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit merge")
	}
	return &rec, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (*model.QueryRecord, error) {
	return getRecord(ctx, s.pool, key)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRecord(ctx context.Context, q rowQuerier, key string) (*model.QueryRecord, error) {
	var (
		count int
		raw   []byte
	)
	err := q.QueryRow(ctx, `SELECT count, images FROM words WHERE id = $1`, key).Scan(&count, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read %q", key)
	}

	rec := &model.QueryRecord{Count: count}
	if err := json.Unmarshal(raw, &rec.Images); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal images for %q", key)
	}
	if rec.Images == nil {
		rec.Images = []model.ImageRef{}
	}
	return rec, nil
}
