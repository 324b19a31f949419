// Package store persists the engine's durable state in SQLite: thought
// cycles and their artifacts, the versioned prime-directive history,
// unresolved ideas, beliefs, sleep sessions and the energy scalar.
// Persisted snapshots are the source of truth across restarts.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"yui/internal/dpd"
	"yui/internal/logging"
	"yui/internal/types"
)

// Store wraps the SQLite handle. Safe for concurrent use; SQLite access is
// serialized through a single connection.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the database at the given path and applies migrations.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("failed to enable foreign keys: %v", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("opened %s", path)
	return &Store{db: db, dbPath: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordThoughtCycle persists a finished cycle with its thoughts,
// reflections and unresolved ideas in one transaction. Failed cycles are
// not persisted; the caller enforces that policy.
func (s *Store) RecordThoughtCycle(c *types.ThoughtCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryStore, "RecordThoughtCycle")
	defer timer.StopWithThreshold(time.Second)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO thought_cycles
		(id, trigger_id, question, category, importance, source, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Trigger.ID, c.Trigger.Question, string(c.Trigger.Category),
		c.Trigger.Importance, string(c.Trigger.Source), string(c.Status), c.Timestamp)
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", c.ID, err)
	}

	for _, t := range c.Thoughts {
		_, err = tx.Exec(`INSERT INTO thoughts
			(id, cycle_id, persona_id, content, confidence, category, trigger_ref, tags, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, c.ID, t.PersonaID, t.Content, t.Confidence,
			string(t.Category), t.TriggerRef, strings.Join(t.Tags, ","), t.Timestamp)
		if err != nil {
			return fmt.Errorf("insert thought %s: %w", t.ID, err)
		}
	}

	for _, r := range c.Reflections {
		_, err = tx.Exec(`INSERT INTO reflections
			(id, cycle_id, kind, persona_id, content, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, c.ID, string(r.Kind), r.PersonaID, r.Content, r.Score, r.Timestamp)
		if err != nil {
			return fmt.Errorf("insert reflection %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cycle %s: %w", c.ID, err)
	}

	logging.Store("recorded cycle %s (%d thoughts, %d reflections)",
		c.ID, len(c.Thoughts), len(c.Reflections))
	return nil
}

// SaveUnresolved stores carry-forward questions identified after a cycle
// was committed; they seed context injection for future cycles.
func (s *Store) SaveUnresolved(cycleID string, questions []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		if _, err := tx.Exec(`INSERT INTO unresolved_ideas (cycle_id, question, created_at)
			VALUES (?, ?, ?)`, cycleID, q, time.Now()); err != nil {
			return fmt.Errorf("insert unresolved idea: %w", err)
		}
	}
	return tx.Commit()
}

// RecordDPDWeights appends one versioned weight entry.
func (s *Store) RecordDPDWeights(entry dpd.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR IGNORE INTO dpd_history
		(version, empathy, coherence, dissonance, trigger_category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Version, entry.Weights.Empathy, entry.Weights.Coherence,
		entry.Weights.Dissonance, string(entry.TriggerCategory), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert dpd v%d: %w", entry.Version, err)
	}
	return nil
}

// QueryDPDHistory returns entries by limit and sampling strategy,
// strictly version-ordered.
func (s *Store) QueryDPDHistory(limit int, strategy dpd.SampleStrategy) ([]dpd.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM dpd_history").Scan(&total); err != nil {
		return nil, fmt.Errorf("count dpd history: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	query := "SELECT version, empathy, coherence, dissonance, trigger_category, created_at FROM dpd_history ORDER BY version"
	args := []interface{}{}

	if limit > 0 && limit < total {
		switch strategy {
		case dpd.SampleStride:
			// Even stride over the version range keeps the shape of the
			// series for visualization consumers.
			query = `SELECT version, empathy, coherence, dissonance, trigger_category, created_at
				FROM dpd_history WHERE version % ? = 0 OR version = 1
				ORDER BY version LIMIT ?`
			stride := total / limit
			if stride < 1 {
				stride = 1
			}
			args = append(args, stride, limit)
		default: // tail
			query = `SELECT * FROM (
				SELECT version, empathy, coherence, dissonance, trigger_category, created_at
				FROM dpd_history ORDER BY version DESC LIMIT ?
			) ORDER BY version`
			args = append(args, limit)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dpd history: %w", err)
	}
	defer rows.Close()

	var entries []dpd.HistoryEntry
	for rows.Next() {
		var e dpd.HistoryEntry
		var cat string
		if err := rows.Scan(&e.Version, &e.Weights.Empathy, &e.Weights.Coherence,
			&e.Weights.Dissonance, &cat, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan dpd entry: %w", err)
		}
		e.TriggerCategory = types.Category(cat)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UnresolvedIdeas returns up to n open carry-forward questions, newest first.
func (s *Store) UnresolvedIdeas(n int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT question FROM unresolved_ideas
		WHERE resolved = 0 ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query unresolved ideas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SignificantThoughts returns the n highest-confidence thoughts.
func (s *Store) SignificantThoughts(n int) ([]types.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, persona_id, content, confidence, category, trigger_ref, tags, created_at
		FROM thoughts ORDER BY confidence DESC, created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query significant thoughts: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

// RecentThoughts returns the n most recent thoughts in time order
// (oldest first), for the growth analyzer.
func (s *Store) RecentThoughts(n int) ([]types.Thought, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT * FROM (
			SELECT id, persona_id, content, confidence, category, trigger_ref, tags, created_at
			FROM thoughts ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent thoughts: %w", err)
	}
	defer rows.Close()
	return scanThoughts(rows)
}

func scanThoughts(rows *sql.Rows) ([]types.Thought, error) {
	var out []types.Thought
	for rows.Next() {
		var t types.Thought
		var cat, tags string
		if err := rows.Scan(&t.ID, &t.PersonaID, &t.Content, &t.Confidence,
			&cat, &t.TriggerRef, &tags, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		t.Category = types.Category(cat)
		if tags != "" {
			t.Tags = strings.Split(tags, ",")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordBelief upserts a distilled belief. Beliefs are keyed by statement:
// re-consolidating the same claim only raises its significance.
func (s *Store) RecordBelief(statement string, significance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO beliefs (statement, significance, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(statement) DO UPDATE SET
			significance = MAX(significance, excluded.significance)`,
		statement, significance, time.Now())
	if err != nil {
		return fmt.Errorf("insert belief: %w", err)
	}
	return nil
}

// CoreBeliefs returns the n most significant beliefs.
func (s *Store) CoreBeliefs(n int) ([]Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT statement, significance, created_at
		FROM beliefs ORDER BY significance DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query beliefs: %w", err)
	}
	defer rows.Close()

	var out []Belief
	for rows.Next() {
		var b Belief
		if err := rows.Scan(&b.Statement, &b.Significance, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Belief is a distilled recurring conviction.
type Belief struct {
	Statement    string
	Significance float64
	CreatedAt    time.Time
}

// SleepRecord captures one sleep session.
type SleepRecord struct {
	ID           string
	StartedAt    time.Time
	CompletedAt  *time.Time
	EnergyBefore float64
	EnergyAfter  *float64
	LastPhase    string
	Error        string
}

// RecordSleepSession upserts a sleep session row.
func (s *Store) RecordSleepSession(rec SleepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO sleep_sessions
		(id, started_at, completed_at, energy_before, energy_after, last_phase, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			energy_after = excluded.energy_after,
			last_phase   = excluded.last_phase,
			error        = excluded.error`,
		rec.ID, rec.StartedAt, rec.CompletedAt, rec.EnergyBefore,
		rec.EnergyAfter, rec.LastPhase, rec.Error)
	if err != nil {
		return fmt.Errorf("record sleep session %s: %w", rec.ID, err)
	}
	return nil
}

// SaveEnergy persists the current energy scalar.
func (s *Store) SaveEnergy(current float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO energy (id, current, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET current = excluded.current, updated_at = excluded.updated_at`,
		current, time.Now())
	if err != nil {
		return fmt.Errorf("save energy: %w", err)
	}
	return nil
}

// LoadEnergy returns the persisted energy scalar, or ok=false if never saved.
func (s *Store) LoadEnergy() (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current float64
	err := s.db.QueryRow("SELECT current FROM energy WHERE id = 1").Scan(&current)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load energy: %w", err)
	}
	return current, true, nil
}

// CycleCounts reports lifetime persisted totals for state queries.
// Failed cycles are never persisted, so the scheduler tracks those
// separately in memory.
func (s *Store) CycleCounts() (cycles, thoughts int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err = s.db.QueryRow("SELECT COUNT(*) FROM thought_cycles").Scan(&cycles); err != nil {
		return 0, 0, fmt.Errorf("count cycles: %w", err)
	}
	if err = s.db.QueryRow("SELECT COUNT(*) FROM thoughts").Scan(&thoughts); err != nil {
		return 0, 0, fmt.Errorf("count thoughts: %w", err)
	}
	return cycles, thoughts, nil
}
