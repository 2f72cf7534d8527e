// Package archive persists assembled KPI contracts to Postgres for
// longitudinal audit trails across batch runs. Archiving is optional and
// disabled by default, matching the teacher's persistence manager
// (internal/infrastructure/db): the core decision pipeline never depends
// on this package succeeding.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/muniheat/dhcore/internal/contract"
)

// Config configures the archive's Postgres connection pool.
type Config struct {
	DSN             string        `yaml:"dsn"`
	Enabled         bool          `yaml:"enabled"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns a disabled-by-default archive configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    10 * time.Second,
	}
}

// Store is a contract archive backed by Postgres. A nil *sqlx.DB means
// archiving is disabled; Store's methods become no-ops in that case so
// callers don't need to branch on Config.Enabled themselves.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to Postgres per cfg. When cfg.Enabled is false, Open
// returns a Store with no underlying connection — safe to use, every
// call a no-op.
func Open(cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return &Store{}, nil
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive: DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	return &Store{db: db, timeout: cfg.QueryTimeout}, nil
}

// Enabled reports whether this store holds a live connection.
func (s *Store) Enabled() bool { return s != nil && s.db != nil }

// Close releases the underlying connection pool, if any.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.db.Close()
}

// Save upserts a contract by (cluster_id, version, input_digest) so
// re-running an unchanged cluster never creates a duplicate archive row
// (§3's content-addressable identity carries directly into storage).
func (s *Store) Save(ctx context.Context, c *contract.Contract) error {
	if !s.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("archive: marshal contract: %w", err)
	}

	query := `
		INSERT INTO contracts (cluster_id, version, input_digest, created_utc, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cluster_id, version, input_digest) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		c.ClusterID, c.Version, c.Metadata.InputDigest, c.Metadata.CreatedUTC, body)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("archive: insert contract (pq code %s): %w", pqErr.Code, err)
		}
		return fmt.Errorf("archive: insert contract: %w", err)
	}
	return nil
}

// Latest returns the most recently created contract archived for
// clusterID, or nil if archiving is disabled or none exists.
func (s *Store) Latest(ctx context.Context, clusterID string) (*contract.Contract, error) {
	if !s.Enabled() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT body FROM contracts
		WHERE cluster_id = $1
		ORDER BY created_utc DESC
		LIMIT 1`

	var body []byte
	err := s.db.QueryRowxContext(ctx, query, clusterID).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: query latest: %w", err)
	}

	var c contract.Contract
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("archive: unmarshal contract: %w", err)
	}
	return &c, nil
}

// CountByCluster returns archived-contract counts grouped by cluster, for
// batch-run dashboards.
func (s *Store) CountByCluster(ctx context.Context) (map[string]int64, error) {
	if !s.Enabled() {
		return map[string]int64{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT cluster_id, COUNT(*) FROM contracts GROUP BY cluster_id ORDER BY cluster_id`
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("archive: count by cluster: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var clusterID string
		var count int64
		if err := rows.Scan(&clusterID, &count); err != nil {
			return nil, fmt.Errorf("archive: scan cluster count: %w", err)
		}
		counts[clusterID] = count
	}
	return counts, rows.Err()
}
