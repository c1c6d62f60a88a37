package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geowave/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// SQLite allows a single writer; one connection makes every merge
	// transaction wait its turn instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS words (
	id         TEXT PRIMARY KEY,
	count      INTEGER NOT NULL,
	images     TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Merge implements Store.
func (s *SQLiteStore) Merge(ctx context.Context, key string, fresh []model.ImageRef) (*model.QueryRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin merge")
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := s.getRecord(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	rec := MergeImages(existing, fresh)
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal images")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO words (id, count, images, created_at, updated_at)
		VALUES (?, ?, ?, datetime('now'), datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			count = excluded.count,
			images = excluded.images,
			updated_at = datetime('now')`,
		key, rec.Count, string(images),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: write %q", key)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit merge")
	}
	return &rec, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.QueryRecord, error) {
	return s.getRecord(ctx, s.db, key)
}

type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getRecord(ctx context.Context, q sqlQuerier, key string) (*model.QueryRecord, error) {
	var (
		count int
		raw   string
	)
	err := q.QueryRowContext(ctx, `SELECT count, images FROM words WHERE id = ?`, key).Scan(&count, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read %q", key)
	}

	rec := &model.QueryRecord{Count: count}
	if err := json.Unmarshal([]byte(raw), &rec.Images); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal images for %q", key)
	}
	if rec.Images == nil {
		rec.Images = []model.ImageRef{}
	}
	return rec, nil
}
