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

type npcRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	Race            uint8  `db:"race"`
	Age             int    `db:"age"`
	Phase           uint8  `db:"phase"`
	Region          string `db:"region"`
	Status          uint8  `db:"status"`
	TraitsJSON      string `db:"traits_json"`
	LastInteraction int64  `db:"last_interaction"`
}

func (r *npcRow) toNPC() (*npc.NPC, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.ID, err)
	}
	n := &npc.NPC{
		ID:              id,
		Name:            r.Name,
		Race:            npc.Race(r.Race),
		Age:             r.Age,
		Phase:           npc.LifecyclePhase(r.Phase),
		Region:          r.Region,
		Status:          npc.Status(r.Status),
		LastInteraction: fromNanos(r.LastInteraction),
	}
	if err := json.Unmarshal([]byte(r.TraitsJSON), &n.Traits); err != nil {
		return nil, fmt.Errorf("decode traits for npc %s: %w", r.ID, err)
	}
	return n, nil
}

func (db *DB) GetNPC(ctx context.Context, id uuid.UUID) (*npc.NPC, error) {
	var r npcRow
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM npcs WHERE id = ?", id.String())
	if err != nil {
		return nil, notFound(err, "npc %s", id)
	}
	return r.toNPC()
}

func (db *DB) PutNPC(ctx context.Context, n *npc.NPC) error {
	traitsJSON, err := json.Marshal(n.Traits)
	if err != nil {
		return fmt.Errorf("encode traits: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO npcs
		(id, name, race, age, phase, region, status, traits_json, last_interaction)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(), n.Name, n.Race, n.Age, n.Phase, n.Region, n.Status,
		string(traitsJSON), toNanos(n.LastInteraction),
	)
	if err != nil {
		return fmt.Errorf("put npc %s: %w", n.ID, err)
	}
	return nil
}

func npcWhere(f store.NPCFilter) (string, []any) {
	var clauses []string
	var args []any
	if f.Region != "" {
		clauses = append(clauses, "region = ?")
		args = append(args, f.Region)
	}
	if f.Race != nil {
		clauses = append(clauses, "race = ?")
		args = append(args, *f.Race)
	}
	if f.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *f.Status)
	}
	if f.AgeAtLeast > 0 {
		clauses = append(clauses, "age >= ?")
		args = append(args, f.AgeAtLeast)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (db *DB) ListNPCs(ctx context.Context, f store.NPCFilter) ([]*npc.NPC, error) {
	where, args := npcWhere(f)
	q := "SELECT * FROM npcs" + where + " ORDER BY id"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	var rows []npcRow
	if err := db.conn.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	out := make([]*npc.NPC, 0, len(rows))
	for i := range rows {
		n, err := rows[i].toNPC()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (db *DB) CountNPCs(ctx context.Context, f store.NPCFilter) (int, error) {
	where, args := npcWhere(f)
	var count int
	err := db.conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM npcs"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("count npcs: %w", err)
	}
	return count, nil
}

type tierRow struct {
	NpcID        string `db:"npc_id"`
	Tier         uint8  `db:"tier"`
	DetailLevel  string `db:"detail_level"`
	LastReviewed int64  `db:"last_reviewed"`
}

func (db *DB) GetTierStatus(ctx context.Context, npcID uuid.UUID) (*npc.TierStatus, error) {
	var r tierRow
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM tier_status WHERE npc_id = ?", npcID.String())
	if err != nil {
		return nil, notFound(err, "tier status for npc %s", npcID)
	}
	id, err := uuid.Parse(r.NpcID)
	if err != nil {
		return nil, fmt.Errorf("parse npc id %q: %w", r.NpcID, err)
	}
	return &npc.TierStatus{
		NpcID:        id,
		CurrentTier:  npc.Tier(r.Tier),
		DetailLevel:  r.DetailLevel,
		LastReviewed: fromNanos(r.LastReviewed),
	}, nil
}

func (db *DB) PutTierStatus(ctx context.Context, ts *npc.TierStatus) error {
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO tier_status
		(npc_id, tier, detail_level, last_reviewed) VALUES (?, ?, ?, ?)`,
		ts.NpcID.String(), ts.CurrentTier, ts.DetailLevel, toNanos(ts.LastReviewed),
	)
	if err != nil {
		return fmt.Errorf("put tier status %s: %w", ts.NpcID, err)
	}
	return nil
}

func (db *DB) CountByTier(ctx context.Context) (map[npc.Tier]int, error) {
	rows, err := db.conn.QueryxContext(ctx, "SELECT tier, COUNT(*) FROM tier_status GROUP BY tier")
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}
	defer rows.Close()

	counts := make(map[npc.Tier]int)
	for rows.Next() {
		var tier uint8
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[npc.Tier(tier)] = n
	}
	return counts, rows.Err()
}
