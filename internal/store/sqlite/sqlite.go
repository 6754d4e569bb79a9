// Package sqlite provides SQLite-backed persistence for the simulation.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// DB wraps a SQLite connection implementing store.Store.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

var _ store.Store = (*DB)(nil)

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS npcs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		race INTEGER NOT NULL,
		age INTEGER NOT NULL,
		phase INTEGER NOT NULL,
		region TEXT NOT NULL,
		status INTEGER NOT NULL,
		traits_json TEXT NOT NULL,
		last_interaction INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tier_status (
		npc_id TEXT PRIMARY KEY,
		tier INTEGER NOT NULL,
		detail_level TEXT NOT NULL,
		last_reviewed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emotional_states (
		npc_id TEXT PRIMARY KEY,
		current_emotion INTEGER NOT NULL,
		intensity REAL NOT NULL,
		stability REAL NOT NULL,
		happiness REAL NOT NULL,
		energy REAL NOT NULL,
		stress REAL NOT NULL,
		confidence REAL NOT NULL,
		sociability REAL NOT NULL,
		optimism REAL NOT NULL,
		volatility REAL NOT NULL,
		recovery_rate REAL NOT NULL,
		weather_sensitivity REAL NOT NULL,
		stress_tolerance REAL NOT NULL,
		baseline_emotion INTEGER NOT NULL,
		days_in_state INTEGER NOT NULL,
		last_event INTEGER NOT NULL,
		last_updated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emotional_triggers (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		trigger_type INTEGER NOT NULL,
		description TEXT NOT NULL,
		severity REAL NOT NULL,
		previous_emotion INTEGER NOT NULL,
		resulting_emotion INTEGER NOT NULL,
		change_magnitude REAL NOT NULL,
		expected_days INTEGER NOT NULL,
		occurred_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emotional_memories (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		class INTEGER NOT NULL,
		description TEXT NOT NULL,
		emotion INTEGER NOT NULL,
		intensity REAL NOT NULL,
		clarity REAL NOT NULL,
		charge REAL NOT NULL,
		recall_count INTEGER NOT NULL,
		occurred_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS emotional_influences (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		source TEXT NOT NULL,
		description TEXT NOT NULL,
		strength REAL NOT NULL,
		duration_days INTEGER NOT NULL,
		applied_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS personality_evolutions (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		change_type INTEGER NOT NULL,
		event_type INTEGER NOT NULL,
		description TEXT NOT NULL,
		severity REAL NOT NULL,
		changes_json TEXT NOT NULL,
		magnitude REAL NOT NULL,
		resistance REAL NOT NULL,
		progress REAL NOT NULL,
		adaptation_days INTEGER NOT NULL,
		adaptation_complete INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS personality_snapshots (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		traits_json TEXT NOT NULL,
		age_days INTEGER NOT NULL,
		taken_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS learned_memories (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		event_type INTEGER NOT NULL,
		description TEXT NOT NULL,
		lesson TEXT NOT NULL,
		importance REAL NOT NULL,
		strength REAL NOT NULL,
		recall_count INTEGER NOT NULL,
		formed_at INTEGER NOT NULL,
		last_recall INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS crisis_responses (
		id TEXT PRIMARY KEY,
		npc_id TEXT NOT NULL,
		crisis_type INTEGER NOT NULL,
		response_type INTEGER NOT NULL,
		description TEXT NOT NULL,
		severity REAL NOT NULL,
		score REAL NOT NULL,
		effectiveness REAL NOT NULL,
		status INTEGER NOT NULL,
		duration_days INTEGER NOT NULL,
		immediate_json TEXT NOT NULL DEFAULT '',
		outcome_json TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		completed_at INTEGER NOT NULL,
		last_processed_day INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS economic_cycles (
		region TEXT PRIMARY KEY,
		phase INTEGER NOT NULL,
		strength REAL NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_npcs_region ON npcs(region);
	CREATE INDEX IF NOT EXISTS idx_npcs_status ON npcs(status);
	CREATE INDEX IF NOT EXISTS idx_triggers_npc ON emotional_triggers(npc_id);
	CREATE INDEX IF NOT EXISTS idx_emo_memories_npc ON emotional_memories(npc_id);
	CREATE INDEX IF NOT EXISTS idx_influences_npc ON emotional_influences(npc_id);
	CREATE INDEX IF NOT EXISTS idx_evolutions_npc ON personality_evolutions(npc_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_npc ON personality_snapshots(npc_id);
	CREATE INDEX IF NOT EXISTS idx_learned_npc ON learned_memories(npc_id);
	CREATE INDEX IF NOT EXISTS idx_crises_npc ON crisis_responses(npc_id);
	CREATE INDEX IF NOT EXISTS idx_crises_status ON crisis_responses(status);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Times are stored as unix nanoseconds; zero means unset.

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return npc.NotFoundf(format, args...)
	}
	return err
}
