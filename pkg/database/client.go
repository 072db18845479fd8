// Client owns the connection pool shared by the triangle, event, and
// account repositories, plus the migration runner that brings a fresh
// Postgres instance up to the schema those repositories expect.

package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/stepnetwork/mesh-validator/pkg/config"
)

//go:embed migrations/*.sql
var meshSchemaMigrations embed.FS

// Client wraps a pooled *sql.DB sized from config and shared across the
// triangle, event, and account repositories.
type Client struct {
	db     *sql.DB
	config *config.Config
	logger *log.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger overrides the client's default stderr logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient opens and pings a pooled connection to the mesh database,
// sized from cfg's pool settings.
func NewClient(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mesh database: config cannot be nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("mesh database: DATABASE_URL cannot be empty")
	}

	c := &Client{
		config: cfg,
		logger: log.New(log.Writer(), "[mesh-db] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("mesh database: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.DatabaseMaxConns)
	db.SetMaxIdleConns(cfg.DatabaseMinConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.DatabaseMaxIdleTime) * time.Second)
	db.SetConnMaxLifetime(time.Duration(cfg.DatabaseMaxLifetime) * time.Second)
	c.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mesh database: initial ping: %w", err)
	}

	c.logger.Printf("connected to mesh database (max_conns=%d, min_conns=%d)", cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	return c, nil
}

// DB exposes the underlying pool for callers that need raw *sql.DB access.
func (c *Client) DB() *sql.DB { return c.db }

// Close drains and closes the pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Println("closing mesh database pool")
	return c.db.Close()
}

// Ping checks that the pool can still reach Postgres.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// HealthStatus is the database snapshot the /health endpoint reports on:
// pool occupancy plus whatever version string Postgres reports.
type HealthStatus struct {
	Healthy            bool          `json:"healthy"`
	Error              string        `json:"error,omitempty"`
	Version            string        `json:"version,omitempty"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxOpenConnections int           `json:"max_open_connections"`
	CheckedAt          time.Time     `json:"checked_at"`
}

// Health pings the pool and, on success, folds in pool-occupancy stats and
// the server version string. A failed ping is reported in the returned
// status rather than as an error, so callers can serve it as a 200 with
// healthy=false instead of a 500.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{CheckedAt: time.Now()}

	if err := c.db.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.Healthy = true

	poolStats := c.db.Stats()
	status.OpenConnections = poolStats.OpenConnections
	status.InUse = poolStats.InUse
	status.Idle = poolStats.Idle
	status.WaitCount = poolStats.WaitCount
	status.WaitDuration = poolStats.WaitDuration
	status.MaxOpenConnections = poolStats.MaxOpenConnections

	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err == nil {
		status.Version = version
	}
	return status, nil
}

// Migration is one embedded migrations/*.sql file, keyed by the
// filename stem (e.g. "001_initial_schema").
type Migration struct {
	Version  string
	Filename string
	SQL      string
}

// MigrationInfo is the applied/pending state of a single Migration, as
// reported by MigrationStatus.
type MigrationInfo struct {
	Version string `json:"version"`
	Applied bool   `json:"applied"`
}

// loadEmbeddedMigrations reads every *.sql file under migrations/ and
// sorts them by filename stem so "002_..." never runs before "001_...".
func loadEmbeddedMigrations() ([]Migration, error) {
	var out []Migration
	err := fs.WalkDir(meshSchemaMigrations, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := meshSchemaMigrations.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, Migration{
			Version:  strings.TrimSuffix(d.Name(), ".sql"),
			Filename: d.Name(),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// appliedVersions reports which migration versions schema_migrations
// already lists. A missing table (first run against a blank database) is
// treated as "nothing applied yet" rather than an error.
func (c *Client) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// MigrateUp applies every embedded migration not yet recorded in
// schema_migrations, each inside its own transaction. Migration SQL is
// expected to record its own version via INSERT ... ON CONFLICT DO
// NOTHING, so MigrateUp itself never writes to schema_migrations.
func (c *Client) MigrateUp(ctx context.Context) error {
	c.logger.Println("applying mesh schema migrations")

	migrations, err := loadEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("mesh database: loading migrations: %w", err)
	}
	applied, err := c.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("mesh database: checking applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			c.logger.Printf("  %s: already applied, skipping", m.Version)
			continue
		}
		c.logger.Printf("  %s: applying", m.Version)
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("mesh database: migration %s: begin: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("mesh database: migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("mesh database: migration %s: commit: %w", m.Version, err)
		}
		c.logger.Printf("  %s: applied", m.Version)
	}

	c.logger.Println("mesh schema up to date")
	return nil
}

// MigrationStatus reports every embedded migration alongside whether it
// has been applied, for a diagnostics/ops endpoint.
func (c *Client) MigrationStatus(ctx context.Context) ([]MigrationInfo, error) {
	migrations, err := loadEmbeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("mesh database: loading migrations: %w", err)
	}
	applied, err := c.appliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("mesh database: checking applied migrations: %w", err)
	}

	status := make([]MigrationInfo, len(migrations))
	for i, m := range migrations {
		status[i] = MigrationInfo{Version: m.Version, Applied: applied[m.Version]}
	}
	return status, nil
}

// Tx is a thin handle around *sql.Tx for callers that need to span
// several repository calls atomically but don't want to reach past the
// Client for a raw *sql.Tx.
type Tx struct {
	tx *sql.Tx
}

// BeginTx starts a transaction against the pool.
func (c *Client) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mesh database: begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction. Safe to call after Commit; the second
// call is a no-op error from database/sql that callers typically discard
// via defer.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Tx exposes the underlying *sql.Tx for repository methods that take one
// directly (see CommitClick's multi-table write).
func (t *Tx) Tx() *sql.Tx { return t.tx }

// ExecContext runs a statement that returns no rows.
func (c *Client) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a statement that returns zero or more rows.
func (c *Client) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a statement expected to return at most one row.
func (c *Client) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}
