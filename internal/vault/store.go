// Package vault persists encrypted mapping blobs in Postgres together
// with run metadata. Blobs arrive already encrypted; the vault never
// sees a plaintext mapping.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no record exists for a run ID.
var ErrNotFound = errors.New("mapping record not found")

// Config contains database configuration.
type Config struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Record is one stored anonymization run.
type Record struct {
	ID          string    `db:"id" json:"id"`
	Filename    string    `db:"filename" json:"filename"`
	ColumnCount int       `db:"column_count" json:"column_count"`
	Blob        []byte    `db:"blob" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Store handles encrypted-mapping persistence.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS mapping_blobs (
	id           UUID PRIMARY KEY,
	filename     TEXT NOT NULL,
	column_count INTEGER NOT NULL,
	blob         BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewStore connects to Postgres and ensures the schema exists.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("mapping vault initialized",
		zap.Int("max_open_conns", config.MaxOpenConns),
	)
	return store, nil
}

// Save inserts an encrypted mapping blob and returns its run ID.
func (s *Store) Save(ctx context.Context, filename string, columnCount int, blob []byte) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO mapping_blobs (id, filename, column_count, blob)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, id, filename, columnCount, blob); err != nil {
		s.logger.Error("failed to save mapping blob",
			zap.Error(err),
			zap.String("filename", filename),
		)
		return "", fmt.Errorf("failed to save mapping blob: %w", err)
	}

	s.logger.Info("mapping blob saved",
		zap.String("run_id", id),
		zap.String("filename", filename),
		zap.Int("column_count", columnCount),
		zap.Int("blob_bytes", len(blob)),
	)
	return id, nil
}

// Get fetches one record by run ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var record Record
	query := `SELECT id, filename, column_count, blob, created_at FROM mapping_blobs WHERE id = $1`
	if err := s.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch mapping blob: %w", err)
	}
	return &record, nil
}

// List returns the most recent records, without blobs.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []Record
	query := `
		SELECT id, filename, column_count, ''::BYTEA AS blob, created_at
		FROM mapping_blobs
		ORDER BY created_at DESC
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list mapping blobs: %w", err)
	}
	return records, nil
}

// Delete removes a record by run ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mapping_blobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping blob: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
