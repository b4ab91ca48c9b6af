// Package store persists API keys and custom voices in Postgres. Voice
// reference clips live on disk next to the database rows, one directory
// per voice.
package store

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps the connection pool plus the audio blob directory.
type Store struct {
	pool     *pgxpool.Pool
	audioDir string
}

// Open connects, migrates and returns a ready store. audioDir is created
// if missing.
func Open(ctx context.Context, databaseURL, audioDir string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: audio dir: %w", err)
	}

	return &Store{pool: pool, audioDir: audioDir}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
