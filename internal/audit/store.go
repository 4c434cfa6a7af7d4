// Package audit keeps a PostgreSQL history of generated deprovisioning runs.
//
// Only summaries are stored: the identity, counts and a checksum of the
// checklist. Uploaded exports are never persisted, and nothing here is read
// back by the engine.
package audit

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/deprov/internal/config"
	"github.com/JonMunkholm/deprov/internal/core"
)

// ErrHistoryDisabled is returned by front ends when no database is set.
var ErrHistoryDisabled = errors.New("run history disabled")

// DefaultListLimit applies when ListRuns is called with a non-positive limit.
const DefaultListLimit = 50

// DBTX is the subset of pgxpool.Pool the store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Run is one stored history entry.
type Run struct {
	ID              string    `json:"id"`
	Identity        string    `json:"identity"`
	External        bool      `json:"external"`
	ChecklistSHA256 string    `json:"checklist_sha256"`
	Steps           int       `json:"steps"`
	Warnings        int       `json:"warnings"`
	Notices         int       `json:"notices"`
	DeviceExported  bool      `json:"device_exported"`
	IPAddress       string    `json:"ip_address,omitempty"`
	UserAgent       string    `json:"user_agent,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store records and lists runs. It implements core.RunRecorder.
type Store struct {
	db    DBTX
	pool  *pgxpool.Pool
	newID func() uuid.UUID
}

var _ core.RunRecorder = (*Store)(nil)

// New wraps an existing connection.
func New(db DBTX) *Store {
	return &Store{db: db, newID: uuid.New}
}

// Open connects to cfg.URL with the configured pool sizes and verifies the
// connection.
func Open(ctx context.Context, cfg config.AuditConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(pool)
	s.pool = pool
	return s, nil
}

// Close releases the pool opened by Open. It is a no-op for stores built
// with New.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS deprovision_runs (
	id               UUID PRIMARY KEY,
	identity         TEXT NOT NULL,
	external         BOOLEAN NOT NULL DEFAULT FALSE,
	checklist_sha256 TEXT NOT NULL,
	steps            INTEGER NOT NULL,
	warnings         INTEGER NOT NULL,
	notices          INTEGER NOT NULL,
	device_exported  BOOLEAN NOT NULL DEFAULT FALSE,
	ip_address       INET,
	user_agent       TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS deprovision_runs_created_at_idx ON deprovision_runs (created_at DESC);
`

// EnsureSchema creates the history table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertRunSQL = `INSERT INTO deprovision_runs
	(id, identity, external, checklist_sha256, steps, warnings, notices, device_exported, ip_address, user_agent, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// RecordRun stores one summary.
func (s *Store) RecordRun(ctx context.Context, run core.RunSummary) error {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, insertRunSQL,
		pgtype.UUID{Bytes: s.newID(), Valid: true},
		run.Identity,
		run.External,
		run.ChecklistSHA256,
		run.Steps,
		run.Warnings,
		run.Notices,
		run.DeviceExported,
		parseIP(run.IPAddress),
		toText(run.UserAgent),
		pgtype.Timestamptz{Time: createdAt, Valid: true},
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const listRunsSQL = `SELECT id, identity, external, checklist_sha256, steps, warnings, notices,
	device_exported, ip_address, user_agent, created_at
	FROM deprovision_runs ORDER BY created_at DESC LIMIT $1`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func scanRun(rows pgx.Rows) (Run, error) {
	var (
		id        pgtype.UUID
		ip        *netip.Addr
		userAgent pgtype.Text
		createdAt pgtype.Timestamptz
		run       Run
	)

	err := rows.Scan(
		&id, &run.Identity, &run.External, &run.ChecklistSHA256,
		&run.Steps, &run.Warnings, &run.Notices, &run.DeviceExported,
		&ip, &userAgent, &createdAt,
	)
	if err != nil {
		return Run{}, err
	}

	if id.Valid {
		run.ID = uuid.UUID(id.Bytes).String()
	}
	if ip != nil {
		run.IPAddress = ip.String()
	}
	if userAgent.Valid {
		run.UserAgent = userAgent.String
	}
	run.CreatedAt = createdAt.Time
	return run, nil
}

// parseIP returns nil for addresses the inet column cannot hold, such as an
// unparsed "host:port" fallback.
func parseIP(s string) *netip.Addr {
	if s == "" {
		return nil
	}
	if ap, err := netip.ParseAddrPort(s); err == nil {
		addr := ap.Addr()
		return &addr
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return &addr
}

func toText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
