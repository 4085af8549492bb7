package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/arugifa/websync/internal/config"
)

// DB wraps the database connection pool
type DB struct {
	Pool   *pgxpool.Pool
	config *config.DatabaseConfig
}

// New creates a new database connection pool
func New(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database",
		"host", cfg.Host,
		"database", cfg.Database)

	return &DB{
		Pool:   pool,
		config: cfg,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		slog.Info("database connection closed")
	}
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// RunMigrations executes all pending database migrations
func (db *DB) RunMigrations(ctx context.Context, migrationsDir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	stdDB, err := sql.Open("pgx", db.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open stdlib connection: %w", err)
	}
	defer stdDB.Close()

	if err := goose.Up(stdDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("migrations completed successfully")
	return nil
}

// MigrationStatus returns the current migration status
func (db *DB) MigrationStatus(migrationsDir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	stdDB, err := sql.Open("pgx", db.config.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open stdlib connection: %w", err)
	}
	defer stdDB.Close()

	return goose.Status(stdDB, migrationsDir)
}

// ContentStatus summarizes what is currently persisted.
type ContentStatus struct {
	Connected  bool
	Documents  map[string]int
	Categories int
	Tags       int
	LastUpdate *time.Time
}

// GetStatus returns document counts per kind, plus catalog sizes.
func (db *DB) GetStatus(ctx context.Context) (*ContentStatus, error) {
	status := &ContentStatus{
		Connected: true,
		Documents: make(map[string]int),
	}

	rows, err := db.Pool.Query(ctx,
		"SELECT kind, COUNT(*) FROM documents GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		status.Documents[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM categories").Scan(&status.Categories); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	if err := db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM tags").Scan(&status.Tags); err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}

	var lastUpdate *time.Time
	err = db.Pool.QueryRow(ctx, `
		SELECT MAX(d) FROM (
			SELECT MAX(publication_date) AS d FROM documents
			UNION ALL
			SELECT MAX(last_update) FROM documents
		) t
	`).Scan(&lastUpdate)
	if err != nil {
		slog.Warn("failed to get last update time", "error", err)
	}
	status.LastUpdate = lastUpdate

	return status, nil
}
