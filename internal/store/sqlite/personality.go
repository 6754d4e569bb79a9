package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

type evolutionRow struct {
	ID                 string  `db:"id"`
	NpcID              string  `db:"npc_id"`
	ChangeType         uint8   `db:"change_type"`
	EventType          uint8   `db:"event_type"`
	Description        string  `db:"description"`
	Severity           float64 `db:"severity"`
	ChangesJSON        string  `db:"changes_json"`
	Magnitude          float64 `db:"magnitude"`
	Resistance         float64 `db:"resistance"`
	Progress           float64 `db:"progress"`
	AdaptationDays     int     `db:"adaptation_days"`
	AdaptationComplete int     `db:"adaptation_complete"`
	StartedAt          int64   `db:"started_at"`
	CompletedAt        int64   `db:"completed_at"`
}

func (r *evolutionRow) toEvolution() (*npc.PersonalityEvolution, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse evolution id %q: %w", r.ID, err)
	}
	nid, err := uuid.Parse(r.NpcID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
	}
	ev := &npc.PersonalityEvolution{
		ID:                 id,
		NpcID:              nid,
		Type:               npc.ChangeType(r.ChangeType),
		Event:              npc.EventType(r.EventType),
		Description:        r.Description,
		Severity:           r.Severity,
		Magnitude:          r.Magnitude,
		Resistance:         r.Resistance,
		Progress:           r.Progress,
		AdaptationDays:     r.AdaptationDays,
		AdaptationComplete: r.AdaptationComplete != 0,
		StartedAt:          fromNanos(r.StartedAt),
		CompletedAt:        fromNanos(r.CompletedAt),
	}
	if err := json.Unmarshal([]byte(r.ChangesJSON), &ev.Changes); err != nil {
		return nil, fmt.Errorf("decode changes for evolution %s: %w", r.ID, err)
	}
	return ev, nil
}

func (db *DB) putEvolution(ctx context.Context, ev *npc.PersonalityEvolution) error {
	changesJSON, err := json.Marshal(ev.Changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	complete := 0
	if ev.AdaptationComplete {
		complete = 1
	}
	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO personality_evolutions
		(id, npc_id, change_type, event_type, description, severity,
		 changes_json, magnitude, resistance, progress,
		 adaptation_days, adaptation_complete, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID.String(), ev.NpcID.String(), ev.Type, ev.Event, ev.Description, ev.Severity,
		string(changesJSON), ev.Magnitude, ev.Resistance, ev.Progress,
		ev.AdaptationDays, complete, toNanos(ev.StartedAt), toNanos(ev.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("put evolution %s: %w", ev.ID, err)
	}
	return nil
}

func (db *DB) AddEvolution(ctx context.Context, ev *npc.PersonalityEvolution) error {
	return db.putEvolution(ctx, ev)
}

func (db *DB) PutEvolution(ctx context.Context, ev *npc.PersonalityEvolution) error {
	return db.putEvolution(ctx, ev)
}

func (db *DB) ListEvolutions(ctx context.Context, npcID uuid.UUID) ([]*npc.PersonalityEvolution, error) {
	var rows []evolutionRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM personality_evolutions WHERE npc_id = ? ORDER BY started_at", npcID.String())
	if err != nil {
		return nil, fmt.Errorf("list evolutions: %w", err)
	}
	out := make([]*npc.PersonalityEvolution, 0, len(rows))
	for i := range rows {
		ev, err := rows[i].toEvolution()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

type snapshotRow struct {
	ID         string `db:"id"`
	NpcID      string `db:"npc_id"`
	TraitsJSON string `db:"traits_json"`
	AgeDays    int    `db:"age_days"`
	TakenAt    int64  `db:"taken_at"`
}

func (db *DB) AddSnapshot(ctx context.Context, s *npc.PersonalitySnapshot) error {
	traitsJSON, err := json.Marshal(s.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT INTO personality_snapshots
		(id, npc_id, traits_json, age_days, taken_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID.String(), s.NpcID.String(), string(traitsJSON), s.AgeDays, toNanos(s.TakenAt),
	)
	if err != nil {
		return fmt.Errorf("add snapshot %s: %w", s.ID, err)
	}
	return nil
}

func (db *DB) LatestSnapshot(ctx context.Context, npcID uuid.UUID) (*npc.PersonalitySnapshot, error) {
	var r snapshotRow
	err := db.conn.GetContext(ctx, &r,
		"SELECT * FROM personality_snapshots WHERE npc_id = ? ORDER BY taken_at DESC LIMIT 1",
		npcID.String())
	if err != nil {
		return nil, notFound(err, "snapshots for npc %s", npcID)
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot id %q: %w", r.ID, err)
	}
	nid, err := uuid.Parse(r.NpcID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
	}
	s := &npc.PersonalitySnapshot{
		ID:      id,
		NpcID:   nid,
		AgeDays: r.AgeDays,
		TakenAt: fromNanos(r.TakenAt),
	}
	if err := json.Unmarshal([]byte(r.TraitsJSON), &s.Traits); err != nil {
		return nil, fmt.Errorf("decode traits for snapshot %s: %w", r.ID, err)
	}
	return s, nil
}

type memoryRow struct {
	ID          string  `db:"id"`
	NpcID       string  `db:"npc_id"`
	EventType   uint8   `db:"event_type"`
	Description string  `db:"description"`
	Lesson      string  `db:"lesson"`
	Importance  float64 `db:"importance"`
	Strength    float64 `db:"strength"`
	RecallCount int     `db:"recall_count"`
	FormedAt    int64   `db:"formed_at"`
	LastRecall  int64   `db:"last_recall"`
}

func (db *DB) putMemory(ctx context.Context, m *npc.Memory) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO learned_memories
		(id, npc_id, event_type, description, lesson, importance, strength, recall_count, formed_at, last_recall)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.NpcID.String(), m.Event, m.Description, m.Lesson,
		m.Importance, m.Strength, m.RecallCount, toNanos(m.FormedAt), toNanos(m.LastRecall),
	)
	if err != nil {
		return fmt.Errorf("put memory %s: %w", m.ID, err)
	}
	return nil
}

func (db *DB) AddMemory(ctx context.Context, m *npc.Memory) error {
	return db.putMemory(ctx, m)
}

func (db *DB) PutMemory(ctx context.Context, m *npc.Memory) error {
	return db.putMemory(ctx, m)
}

func (db *DB) ListMemories(ctx context.Context, npcID uuid.UUID) ([]*npc.Memory, error) {
	var rows []memoryRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM learned_memories WHERE npc_id = ? ORDER BY formed_at", npcID.String())
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	out := make([]*npc.Memory, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse memory id %q: %w", r.ID, err)
		}
		nid, err := uuid.Parse(r.NpcID)
		if err != nil {
			return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
		}
		out = append(out, &npc.Memory{
			ID:          id,
			NpcID:       nid,
			Event:       npc.EventType(r.EventType),
			Description: r.Description,
			Lesson:      r.Lesson,
			Importance:  r.Importance,
			Strength:    r.Strength,
			RecallCount: r.RecallCount,
			FormedAt:    fromNanos(r.FormedAt),
			LastRecall:  fromNanos(r.LastRecall),
		})
	}
	return out, nil
}
