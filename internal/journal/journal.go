// Package journal keeps a per-cycle record of each agent's decisions in
// Postgres or SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one decision cycle.
type Entry struct {
	Team        string
	Unum        int
	Cycle       int
	Stage       string
	NodeIndex   int
	Nodes       int
	Remote      string
	RemoteErr   string
	Committed   string
	HoldAndScan bool
	CreatedAt   time.Time
}

type dialect int

const (
	postgres dialect = iota
	sqlite
)

// Store writes and reads journal entries.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn. postgres:// and postgresql:// URLs use lib/pq;
// sqlite://path, file: URIs and :memory: use the pure Go SQLite driver.
func Open(dsn string) (*Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		return &Store{db: db, dialect: postgres}, nil
	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		db, err := sql.Open("sqlite", strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		// One writer; a second connection to :memory: would see an empty database.
		db.SetMaxOpenConns(1)
		return &Store{db: db, dialect: sqlite}, nil
	}
	return nil, fmt.Errorf("unsupported journal dsn %q", dsn)
}

// NewStore wraps an open database. Used by tests.
func NewStore(db *sql.DB, postgresDialect bool) *Store {
	d := sqlite
	if postgresDialect {
		d = postgres
	}
	return &Store{db: db, dialect: d}
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites $N placeholders for SQLite.
func (s *Store) rebind(q string) string {
	if s.dialect == postgres {
		return q
	}
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		if q[i] != '$' {
			b.WriteByte(q[i])
			continue
		}
		j := i + 1
		for j < len(q) && q[j] >= '0' && q[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(q[i])
			continue
		}
		b.WriteString("?" + q[i+1:j])
		i = j - 1
	}
	return b.String()
}

// Migrate creates the journal table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	ts := "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if s.dialect == postgres {
		id = "BIGSERIAL PRIMARY KEY"
		ts = "TIMESTAMPTZ NOT NULL DEFAULT now()"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id ` + id + `,
			team TEXT NOT NULL,
			unum INTEGER NOT NULL,
			cycle INTEGER NOT NULL,
			stage TEXT NOT NULL,
			node_index INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			remote TEXT NOT NULL,
			remote_err TEXT NOT NULL DEFAULT '',
			committed TEXT NOT NULL,
			hold_and_scan BOOLEAN NOT NULL,
			created_at ` + ts + `
		)`,
		`CREATE INDEX IF NOT EXISTS decisions_agent_idx ON decisions (team, unum, cycle)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	return nil
}

// Record inserts one entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO decisions (team, unum, cycle, stage, node_index, nodes, remote, remote_err, committed, hold_and_scan)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`),
		e.Team, e.Unum, e.Cycle, e.Stage, e.NodeIndex, e.Nodes, e.Remote, e.RemoteErr, e.Committed, e.HoldAndScan,
	)
	if err != nil {
		return fmt.Errorf("record cycle %d: %w", e.Cycle, err)
	}
	return nil
}

// Recent returns an agent's latest entries, newest first.
func (s *Store) Recent(ctx context.Context, team string, unum, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT team, unum, cycle, stage, node_index, nodes, remote, remote_err, committed, hold_and_scan, created_at
		 FROM decisions
		 WHERE team = $1 AND unum = $2
		 ORDER BY cycle DESC, id DESC
		 LIMIT $3`), team, unum, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Team, &e.Unum, &e.Cycle, &e.Stage, &e.NodeIndex, &e.Nodes, &e.Remote, &e.RemoteErr, &e.Committed, &e.HoldAndScan, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StageCounts returns how many of a team's cycles ended at each stage.
func (s *Store) StageCounts(ctx context.Context, team string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT stage, COUNT(*) FROM decisions WHERE team = $1 GROUP BY stage`), team)
	if err != nil {
		return nil, fmt.Errorf("count stages: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		counts[stage] = n
	}
	return counts, rows.Err()
}
