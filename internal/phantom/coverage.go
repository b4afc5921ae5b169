package phantom

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// CoverageStore persists phantom coverage across evaluations in SQLite so
// the fuzzer can query targets between campaigns. The shape mirrors the
// coverage files the reducer exchanges: origin -> pid -> status, where an
// origin is one input program and the status says whether the phantom's
// branch was eventually taken ("hit") or remains a target ("miss").
type CoverageStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// StatusHit marks a phantom whose branch some evaluation entered.
const StatusHit = "hit"

// StatusMiss marks a phantom that is still a fuzzing target.
const StatusMiss = "miss"

// OpenCoverage opens (creating if needed) the coverage database at path.
func OpenCoverage(path string) (*CoverageStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("coverage: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("coverage: open %s: %w", path, err)
	}
	s := &CoverageStore{db: db, dbPath: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CoverageStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		origin     TEXT NOT NULL,
		relation   TEXT NOT NULL,
		failed     INTEGER NOT NULL DEFAULT 0,
		error      TEXT,
		started_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS phantoms (
		origin TEXT NOT NULL,
		pid    INTEGER NOT NULL,
		status TEXT NOT NULL,
		run_id TEXT,
		PRIMARY KEY (origin, pid)
	);
	CREATE INDEX IF NOT EXISTS idx_phantoms_status ON phantoms(status);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("coverage: migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *CoverageStore) Close() error { return s.db.Close() }

// Path reports where the store lives.
func (s *CoverageStore) Path() string { return s.dbPath }

// RecordReport stores one evaluation's outcome: the run row plus a miss
// entry per recorded phantom. A phantom already marked hit for this origin
// stays hit; coverage only ever improves.
func (s *CoverageStore) RecordReport(r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("coverage: begin: %w", err)
	}
	defer tx.Rollback()

	failed := 0
	if r.Failed {
		failed = 1
	}
	if _, err := tx.Exec(
		`INSERT INTO runs (id, origin, relation, failed, error, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Origin, r.Relation, failed, r.Error, r.When,
	); err != nil {
		return fmt.Errorf("coverage: record run: %w", err)
	}
	for _, m := range r.Misses {
		if _, err := tx.Exec(
			`INSERT INTO phantoms (origin, pid, status, run_id) VALUES (?, ?, ?, ?)
			 ON CONFLICT (origin, pid) DO NOTHING`,
			r.Origin, m.PID, StatusMiss, r.RunID,
		); err != nil {
			return fmt.Errorf("coverage: record miss: %w", err)
		}
	}
	return tx.Commit()
}

// MarkHit promotes a phantom to hit for an origin, typically after the
// fuzzer found an input that takes the branch.
func (s *CoverageStore) MarkHit(origin string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO phantoms (origin, pid, status) VALUES (?, ?, ?)
		 ON CONFLICT (origin, pid) DO UPDATE SET status = excluded.status`,
		origin, pid, StatusHit,
	)
	if err != nil {
		return fmt.Errorf("coverage: mark hit: %w", err)
	}
	return nil
}

// Misses lists the phantom ids still marked miss for an origin, ascending.
func (s *CoverageStore) Misses(origin string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT pid FROM phantoms WHERE origin = ? AND status = ? ORDER BY pid`,
		origin, StatusMiss,
	)
	if err != nil {
		return nil, fmt.Errorf("coverage: query misses: %w", err)
	}
	defer rows.Close()
	var pids []int
	for rows.Next() {
		var pid int
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("coverage: scan: %w", err)
		}
		pids = append(pids, pid)
	}
	return pids, rows.Err()
}

// Origins lists the known origins, ascending.
func (s *CoverageStore) Origins() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT DISTINCT origin FROM phantoms ORDER BY origin`)
	if err != nil {
		return nil, fmt.Errorf("coverage: query origins: %w", err)
	}
	defer rows.Close()
	var origins []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("coverage: scan: %w", err)
		}
		origins = append(origins, o)
	}
	return origins, rows.Err()
}

// Union merges another store into this one with hit-wins semantics: a
// phantom hit anywhere is hit, a miss is kept only while no store saw the
// branch taken. Matches the reducer's union of coverage files.
func (s *CoverageStore) Union(other *CoverageStore) error {
	other.mu.Lock()
	rows, err := other.db.Query(`SELECT origin, pid, status FROM phantoms`)
	if err != nil {
		other.mu.Unlock()
		return fmt.Errorf("coverage: union read: %w", err)
	}
	type entry struct {
		origin string
		pid    int
		status string
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.origin, &e.pid, &e.status); err != nil {
			rows.Close()
			other.mu.Unlock()
			return fmt.Errorf("coverage: union scan: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("coverage: union begin: %w", err)
	}
	defer tx.Rollback()
	for _, e := range entries {
		if e.status == StatusHit {
			_, err = tx.Exec(
				`INSERT INTO phantoms (origin, pid, status) VALUES (?, ?, ?)
				 ON CONFLICT (origin, pid) DO UPDATE SET status = excluded.status`,
				e.origin, e.pid, StatusHit,
			)
		} else {
			_, err = tx.Exec(
				`INSERT INTO phantoms (origin, pid, status) VALUES (?, ?, ?)
				 ON CONFLICT (origin, pid) DO NOTHING`,
				e.origin, e.pid, StatusMiss,
			)
		}
		if err != nil {
			return fmt.Errorf("coverage: union write: %w", err)
		}
	}
	return tx.Commit()
}

// Stats summarizes the store for the CLI.
type Stats struct {
	Origins int
	Hits    int
	Misses  int
	Runs    int
}

// Summary computes store-wide counts.
func (s *CoverageStore) Summary() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	row := s.db.QueryRow(`SELECT COUNT(DISTINCT origin) FROM phantoms`)
	if err := row.Scan(&st.Origins); err != nil {
		return st, fmt.Errorf("coverage: summary: %w", err)
	}
	row = s.db.QueryRow(`SELECT COUNT(*) FROM phantoms WHERE status = ?`, StatusHit)
	if err := row.Scan(&st.Hits); err != nil {
		return st, fmt.Errorf("coverage: summary: %w", err)
	}
	row = s.db.QueryRow(`SELECT COUNT(*) FROM phantoms WHERE status = ?`, StatusMiss)
	if err := row.Scan(&st.Misses); err != nil {
		return st, fmt.Errorf("coverage: summary: %w", err)
	}
	row = s.db.QueryRow(`SELECT COUNT(*) FROM runs`)
	if err := row.Scan(&st.Runs); err != nil {
		return st, fmt.Errorf("coverage: summary: %w", err)
	}
	return st, nil
}
