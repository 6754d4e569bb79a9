package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

type stateRow struct {
	NpcID              string  `db:"npc_id"`
	CurrentEmotion     uint8   `db:"current_emotion"`
	Intensity          float64 `db:"intensity"`
	Stability          float64 `db:"stability"`
	Happiness          float64 `db:"happiness"`
	Energy             float64 `db:"energy"`
	Stress             float64 `db:"stress"`
	Confidence         float64 `db:"confidence"`
	Sociability        float64 `db:"sociability"`
	Optimism           float64 `db:"optimism"`
	Volatility         float64 `db:"volatility"`
	RecoveryRate       float64 `db:"recovery_rate"`
	WeatherSensitivity float64 `db:"weather_sensitivity"`
	StressTolerance    float64 `db:"stress_tolerance"`
	BaselineEmotion    uint8   `db:"baseline_emotion"`
	DaysInState        int     `db:"days_in_state"`
	LastEvent          int64   `db:"last_event"`
	LastUpdated        int64   `db:"last_updated"`
}

func (db *DB) GetEmotionalState(ctx context.Context, npcID uuid.UUID) (*npc.EmotionalState, error) {
	var r stateRow
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM emotional_states WHERE npc_id = ?", npcID.String())
	if err != nil {
		return nil, notFound(err, "emotional state for npc %s", npcID)
	}
	id, err := uuid.Parse(r.NpcID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
	}
	return &npc.EmotionalState{
		NpcID:              id,
		Current:            npc.Emotion(r.CurrentEmotion),
		Intensity:          r.Intensity,
		Stability:          r.Stability,
		Happiness:          r.Happiness,
		Energy:             r.Energy,
		Stress:             r.Stress,
		Confidence:         r.Confidence,
		Sociability:        r.Sociability,
		Optimism:           r.Optimism,
		Volatility:         r.Volatility,
		RecoveryRate:       r.RecoveryRate,
		WeatherSensitivity: r.WeatherSensitivity,
		StressTolerance:    r.StressTolerance,
		Baseline:           npc.Emotion(r.BaselineEmotion),
		DaysInState:        r.DaysInState,
		LastEvent:          fromNanos(r.LastEvent),
		LastUpdated:        fromNanos(r.LastUpdated),
	}, nil
}

func (db *DB) PutEmotionalState(ctx context.Context, s *npc.EmotionalState) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO emotional_states
		(npc_id, current_emotion, intensity, stability,
		 happiness, energy, stress, confidence, sociability, optimism,
		 volatility, recovery_rate, weather_sensitivity, stress_tolerance,
		 baseline_emotion, days_in_state, last_event, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.NpcID.String(), s.Current, s.Intensity, s.Stability,
		s.Happiness, s.Energy, s.Stress, s.Confidence, s.Sociability, s.Optimism,
		s.Volatility, s.RecoveryRate, s.WeatherSensitivity, s.StressTolerance,
		s.Baseline, s.DaysInState, toNanos(s.LastEvent), toNanos(s.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("put emotional state %s: %w", s.NpcID, err)
	}
	return nil
}

type triggerRow struct {
	ID               string  `db:"id"`
	NpcID            string  `db:"npc_id"`
	TriggerType      uint8   `db:"trigger_type"`
	Description      string  `db:"description"`
	Severity         float64 `db:"severity"`
	PreviousEmotion  uint8   `db:"previous_emotion"`
	ResultingEmotion uint8   `db:"resulting_emotion"`
	ChangeMagnitude  float64 `db:"change_magnitude"`
	ExpectedDays     int     `db:"expected_days"`
	OccurredAt       int64   `db:"occurred_at"`
}

func (db *DB) AddTrigger(ctx context.Context, t *npc.EmotionalTrigger) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO emotional_triggers
		(id, npc_id, trigger_type, description, severity,
		 previous_emotion, resulting_emotion, change_magnitude, expected_days, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.NpcID.String(), t.Type, t.Description, t.Severity,
		t.PreviousEmotion, t.ResultingEmotion, t.ChangeMagnitude,
		t.ExpectedDurationDays, toNanos(t.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("add trigger %s: %w", t.ID, err)
	}
	return nil
}

func (db *DB) ListTriggers(ctx context.Context, npcID uuid.UUID, limit int) ([]*npc.EmotionalTrigger, error) {
	q := "SELECT * FROM emotional_triggers WHERE npc_id = ? ORDER BY occurred_at DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	var rows []triggerRow
	if err := db.conn.SelectContext(ctx, &rows, q, npcID.String()); err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	out := make([]*npc.EmotionalTrigger, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse trigger id %q: %w", r.ID, err)
		}
		nid, err := uuid.Parse(r.NpcID)
		if err != nil {
			return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
		}
		out = append(out, &npc.EmotionalTrigger{
			ID:                   id,
			NpcID:                nid,
			Type:                 npc.TriggerType(r.TriggerType),
			Description:          r.Description,
			Severity:             r.Severity,
			PreviousEmotion:      npc.Emotion(r.PreviousEmotion),
			ResultingEmotion:     npc.Emotion(r.ResultingEmotion),
			ChangeMagnitude:      r.ChangeMagnitude,
			ExpectedDurationDays: r.ExpectedDays,
			OccurredAt:           fromNanos(r.OccurredAt),
		})
	}
	return out, nil
}

type emoMemoryRow struct {
	ID          string  `db:"id"`
	NpcID       string  `db:"npc_id"`
	Class       uint8   `db:"class"`
	Description string  `db:"description"`
	Emotion     uint8   `db:"emotion"`
	Intensity   float64 `db:"intensity"`
	Clarity     float64 `db:"clarity"`
	Charge      float64 `db:"charge"`
	RecallCount int     `db:"recall_count"`
	OccurredAt  int64   `db:"occurred_at"`
}

func (db *DB) putEmotionalMemory(ctx context.Context, m *npc.EmotionalMemory) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO emotional_memories
		(id, npc_id, class, description, emotion, intensity, clarity, charge, recall_count, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.NpcID.String(), m.Class, m.Description, m.Emotion,
		m.Intensity, m.Clarity, m.Charge, m.RecallCount, toNanos(m.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("put emotional memory %s: %w", m.ID, err)
	}
	return nil
}

func (db *DB) AddEmotionalMemory(ctx context.Context, m *npc.EmotionalMemory) error {
	return db.putEmotionalMemory(ctx, m)
}

func (db *DB) PutEmotionalMemory(ctx context.Context, m *npc.EmotionalMemory) error {
	return db.putEmotionalMemory(ctx, m)
}

func (db *DB) ListEmotionalMemories(ctx context.Context, npcID uuid.UUID) ([]*npc.EmotionalMemory, error) {
	var rows []emoMemoryRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM emotional_memories WHERE npc_id = ? ORDER BY occurred_at", npcID.String())
	if err != nil {
		return nil, fmt.Errorf("list emotional memories: %w", err)
	}
	out := make([]*npc.EmotionalMemory, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse memory id %q: %w", r.ID, err)
		}
		nid, err := uuid.Parse(r.NpcID)
		if err != nil {
			return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
		}
		out = append(out, &npc.EmotionalMemory{
			ID:          id,
			NpcID:       nid,
			Class:       npc.MemoryClass(r.Class),
			Description: r.Description,
			Emotion:     npc.Emotion(r.Emotion),
			Intensity:   r.Intensity,
			Clarity:     r.Clarity,
			Charge:      r.Charge,
			RecallCount: r.RecallCount,
			OccurredAt:  fromNanos(r.OccurredAt),
		})
	}
	return out, nil
}

type influenceRow struct {
	ID           string  `db:"id"`
	NpcID        string  `db:"npc_id"`
	Source       string  `db:"source"`
	Description  string  `db:"description"`
	Strength     float64 `db:"strength"`
	DurationDays int     `db:"duration_days"`
	AppliedAt    int64   `db:"applied_at"`
}

func (db *DB) AddInfluence(ctx context.Context, in *npc.EmotionalInfluence) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO emotional_influences
		(id, npc_id, source, description, strength, duration_days, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID.String(), in.NpcID.String(), in.Source, in.Description,
		in.Strength, in.DurationDays, toNanos(in.AppliedAt),
	)
	if err != nil {
		return fmt.Errorf("add influence %s: %w", in.ID, err)
	}
	return nil
}

func (db *DB) ListInfluences(ctx context.Context, npcID uuid.UUID) ([]*npc.EmotionalInfluence, error) {
	var rows []influenceRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM emotional_influences WHERE npc_id = ? ORDER BY applied_at", npcID.String())
	if err != nil {
		return nil, fmt.Errorf("list influences: %w", err)
	}
	out := make([]*npc.EmotionalInfluence, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parse influence id %q: %w", r.ID, err)
		}
		nid, err := uuid.Parse(r.NpcID)
		if err != nil {
			return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
		}
		out = append(out, &npc.EmotionalInfluence{
			ID:           id,
			NpcID:        nid,
			Source:       r.Source,
			Description:  r.Description,
			Strength:     r.Strength,
			DurationDays: r.DurationDays,
			AppliedAt:    fromNanos(r.AppliedAt),
		})
	}
	return out, nil
}
