// Package audit persists the per-variant flag decisions of a run to a
// DuckDB database so results can be queried and summarised across
// runs.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for recording flag decisions.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path. Use an
// empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the decisions table if it does not exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS flag_decisions (
		run_at TIMESTAMP,
		sample VARCHAR,
		panel VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		gene VARCHAR,
		moi VARCHAR,
		flag VARCHAR,
		reason VARCHAR
	)`)
	return err
}

// Decision is one flag assignment to be recorded.
type Decision struct {
	Sample string
	Panel  string
	Chrom  string
	Pos    int64
	Ref    string
	Alt    string
	Gene   string
	MOI    string
	Flag   string
	Reason string
}

// WriteDecisions inserts the decisions of one run in a single
// transaction, all stamped with the same run time.
func (s *Store) WriteDecisions(decisions []Decision) error {
	if len(decisions) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO flag_decisions
		(run_at, sample, panel, chrom, pos, ref, alt, gene, moi, flag, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	runAt := time.Now().UTC()
	for _, d := range decisions {
		if _, err := stmt.Exec(
			runAt, d.Sample, d.Panel, d.Chrom, d.Pos, d.Ref, d.Alt,
			d.Gene, d.MOI, d.Flag, d.Reason,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert decision: %w", err)
		}
	}

	return tx.Commit()
}

// FlagCount is the number of decisions carrying one flag.
type FlagCount struct {
	Flag  string
	Count int
}

// FlagSummary returns decision counts per flag, most frequent first.
func (s *Store) FlagSummary() ([]FlagCount, error) {
	rows, err := s.db.Query(`SELECT flag, COUNT(*) AS n
		FROM flag_decisions
		GROUP BY flag
		ORDER BY n DESC, flag`)
	if err != nil {
		return nil, fmt.Errorf("query flag summary: %w", err)
	}
	defer rows.Close()

	var out []FlagCount
	for rows.Next() {
		var fc FlagCount
		if err := rows.Scan(&fc.Flag, &fc.Count); err != nil {
			return nil, fmt.Errorf("scan flag summary: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// GeneCount is the number of prioritised decisions in one gene.
type GeneCount struct {
	Gene  string
	MOI   string
	Count int
}

// PrioritisedByGene returns prioritised-variant counts per gene.
func (s *Store) PrioritisedByGene() ([]GeneCount, error) {
	rows, err := s.db.Query(`SELECT gene, moi, COUNT(*) AS n
		FROM flag_decisions
		WHERE flag = 'PRIORITISED'
		GROUP BY gene, moi
		ORDER BY n DESC, gene`)
	if err != nil {
		return nil, fmt.Errorf("query gene summary: %w", err)
	}
	defer rows.Close()

	var out []GeneCount
	for rows.Next() {
		var gc GeneCount
		if err := rows.Scan(&gc.Gene, &gc.MOI, &gc.Count); err != nil {
			return nil, fmt.Errorf("scan gene summary: %w", err)
		}
		out = append(out, gc)
	}
	return out, rows.Err()
}

// DecisionCount returns the total number of recorded decisions.
func (s *Store) DecisionCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM flag_decisions`).Scan(&n)
	return n, err
}
