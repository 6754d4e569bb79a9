package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

type crisisRow struct {
	ID               string  `db:"id"`
	NpcID            string  `db:"npc_id"`
	CrisisType       uint8   `db:"crisis_type"`
	ResponseType     uint8   `db:"response_type"`
	Description      string  `db:"description"`
	Severity         float64 `db:"severity"`
	Score            float64 `db:"score"`
	Effectiveness    float64 `db:"effectiveness"`
	Status           uint8   `db:"status"`
	DurationDays     int     `db:"duration_days"`
	ImmediateJSON    string  `db:"immediate_json"`
	OutcomeJSON      string  `db:"outcome_json"`
	StartedAt        int64   `db:"started_at"`
	CompletedAt      int64   `db:"completed_at"`
	LastProcessedDay int     `db:"last_processed_day"`
}

func (r *crisisRow) toResponse() (*npc.CrisisResponse, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse crisis id %q: %w", r.ID, err)
	}
	nid, err := uuid.Parse(r.NpcID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
	}
	c := &npc.CrisisResponse{
		ID:               id,
		NpcID:            nid,
		Type:             npc.CrisisType(r.CrisisType),
		Response:         npc.ResponseType(r.ResponseType),
		Description:      r.Description,
		Severity:         r.Severity,
		Score:            r.Score,
		Effectiveness:    r.Effectiveness,
		Status:           npc.CrisisStatus(r.Status),
		DurationDays:     r.DurationDays,
		StartedAt:        fromNanos(r.StartedAt),
		CompletedAt:      fromNanos(r.CompletedAt),
		LastProcessedDay: r.LastProcessedDay,
	}
	if r.ImmediateJSON != "" {
		c.Immediate = &npc.ImmediateResults{}
		if err := json.Unmarshal([]byte(r.ImmediateJSON), c.Immediate); err != nil {
			return nil, fmt.Errorf("decode immediate results for crisis %s: %w", r.ID, err)
		}
	}
	if r.OutcomeJSON != "" {
		c.Outcome = &npc.CrisisOutcome{}
		if err := json.Unmarshal([]byte(r.OutcomeJSON), c.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome for crisis %s: %w", r.ID, err)
		}
	}
	return c, nil
}

func (db *DB) GetCrisisResponse(ctx context.Context, id uuid.UUID) (*npc.CrisisResponse, error) {
	var r crisisRow
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM crisis_responses WHERE id = ?", id.String())
	if err != nil {
		return nil, notFound(err, "crisis response %s", id)
	}
	return r.toResponse()
}

func (db *DB) putCrisisResponse(ctx context.Context, c *npc.CrisisResponse) error {
	immediateJSON := ""
	if c.Immediate != nil {
		raw, err := json.Marshal(c.Immediate)
		if err != nil {
			return fmt.Errorf("encode immediate results: %w", err)
		}
		immediateJSON = string(raw)
	}
	outcomeJSON := ""
	if c.Outcome != nil {
		raw, err := json.Marshal(c.Outcome)
		if err != nil {
			return fmt.Errorf("encode outcome: %w", err)
		}
		outcomeJSON = string(raw)
	}
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO crisis_responses
		(id, npc_id, crisis_type, response_type, description, severity,
		 score, effectiveness, status, duration_days, immediate_json,
		 outcome_json, started_at, completed_at, last_processed_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.NpcID.String(), c.Type, c.Response, c.Description, c.Severity,
		c.Score, c.Effectiveness, c.Status, c.DurationDays, immediateJSON,
		outcomeJSON, toNanos(c.StartedAt), toNanos(c.CompletedAt), c.LastProcessedDay,
	)
	if err != nil {
		return fmt.Errorf("put crisis response %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) AddCrisisResponse(ctx context.Context, c *npc.CrisisResponse) error {
	return db.putCrisisResponse(ctx, c)
}

func (db *DB) PutCrisisResponse(ctx context.Context, c *npc.CrisisResponse) error {
	return db.putCrisisResponse(ctx, c)
}

func (db *DB) ListCrisisResponses(ctx context.Context, f store.CrisisFilter) ([]*npc.CrisisResponse, error) {
	var clauses []string
	var args []any
	if f.NpcID != uuid.Nil {
		clauses = append(clauses, "npc_id = ?")
		args = append(args, f.NpcID.String())
	}
	if f.ActiveOnly {
		clauses = append(clauses, "status IN (?, ?)")
		args = append(args, npc.CrisisTriggered, npc.CrisisOngoing)
	}
	q := "SELECT * FROM crisis_responses"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY started_at"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []crisisRow
	if err := db.conn.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list crisis responses: %w", err)
	}
	out := make([]*npc.CrisisResponse, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toResponse()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type cycleRow struct {
	Region    string  `db:"region"`
	Phase     uint8   `db:"phase"`
	Strength  float64 `db:"strength"`
	UpdatedAt int64   `db:"updated_at"`
}

func (db *DB) GetEconomicCycle(ctx context.Context, region string) (*npc.EconomicCycle, error) {
	var r cycleRow
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM economic_cycles WHERE region = ?", region)
	if err != nil {
		return nil, notFound(err, "economic cycle for region %q", region)
	}
	return &npc.EconomicCycle{
		Region:    r.Region,
		Phase:     npc.EconomicPhase(r.Phase),
		Strength:  r.Strength,
		UpdatedAt: fromNanos(r.UpdatedAt),
	}, nil
}

func (db *DB) PutEconomicCycle(ctx context.Context, c *npc.EconomicCycle) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO economic_cycles
		(region, phase, strength, updated_at) VALUES (?, ?, ?, ?)`,
		c.Region, c.Phase, c.Strength, toNanos(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put economic cycle %q: %w", c.Region, err)
	}
	return nil
}

func (db *DB) ListEconomicCycles(ctx context.Context) ([]*npc.EconomicCycle, error) {
	var rows []cycleRow
	err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM economic_cycles ORDER BY region")
	if err != nil {
		return nil, fmt.Errorf("list economic cycles: %w", err)
	}
	out := make([]*npc.EconomicCycle, 0, len(rows))
	for _, r := range rows {
		out = append(out, &npc.EconomicCycle{
			Region:    r.Region,
			Phase:     npc.EconomicPhase(r.Phase),
			Strength:  r.Strength,
			UpdatedAt: fromNanos(r.UpdatedAt),
		})
	}
	return out, nil
}
