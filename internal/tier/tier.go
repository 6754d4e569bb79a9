// Package tier assigns each NPC a simulation fidelity tier. Tier 1 is fully
// detailed, tier 4 is background population processed only as aggregates.
package tier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// defaultTiers maps race and lifecycle phase to a starting tier. Phases with
// no entry fall through to tier 4, the cheapest processing.
var defaultTiers = map[npc.Race]map[npc.LifecyclePhase]npc.Tier{
	npc.RaceHuman: {
		npc.PhaseChild:      npc.Tier3,
		npc.PhaseAdolescent: npc.Tier3,
		npc.PhaseYoungAdult: npc.Tier2,
		npc.PhaseAdult:      npc.Tier2,
		npc.PhaseMiddleAged: npc.Tier2,
		npc.PhaseElder:      npc.Tier3,
	},
	npc.RaceElf: {
		npc.PhaseYoungAdult: npc.Tier2,
		npc.PhaseAdult:      npc.Tier2,
		npc.PhaseMiddleAged: npc.Tier3,
		npc.PhaseElder:      npc.Tier3,
		npc.PhaseAncient:    npc.Tier3,
	},
	npc.RaceDwarf: {
		npc.PhaseAdolescent: npc.Tier3,
		npc.PhaseYoungAdult: npc.Tier2,
		npc.PhaseAdult:      npc.Tier2,
		npc.PhaseMiddleAged: npc.Tier2,
		npc.PhaseElder:      npc.Tier3,
	},
	npc.RaceOrc: {
		npc.PhaseAdolescent: npc.Tier2,
		npc.PhaseYoungAdult: npc.Tier2,
		npc.PhaseAdult:      npc.Tier2,
		npc.PhaseMiddleAged: npc.Tier3,
	},
	npc.RaceHalfling: {
		npc.PhaseYoungAdult: npc.Tier3,
		npc.PhaseAdult:      npc.Tier2,
		npc.PhaseMiddleAged: npc.Tier3,
		npc.PhaseElder:      npc.Tier3,
	},
}

// Activity recency windows that promote an NPC above its default tier.
const (
	tier1Window = time.Hour
	tier2Window = 12 * time.Hour
	tier3Window = 7 * 24 * time.Hour
)

// Classifier computes and persists tier assignments. It is the only writer
// of tier status records.
type Classifier struct {
	store store.Store
	now   func() time.Time
}

// New returns a classifier over the given store.
func New(st store.Store) *Classifier {
	return &Classifier{store: st, now: time.Now}
}

// WithClock overrides the classifier clock.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify computes the tier for an NPC without persisting anything.
// Recent interaction promotes; otherwise the race/phase default applies,
// falling back to tier 4 when no mapping exists.
func (c *Classifier) Classify(n *npc.NPC) npc.Tier {
	if !n.LastInteraction.IsZero() {
		since := c.now().Sub(n.LastInteraction)
		switch {
		case since <= tier1Window:
			return npc.Tier1
		case since <= tier2Window:
			return npc.Tier2
		case since <= tier3Window:
			if def := c.defaultFor(n); def < npc.Tier3 {
				return def
			}
			return npc.Tier3
		}
	}
	return c.defaultFor(n)
}

func (c *Classifier) defaultFor(n *npc.NPC) npc.Tier {
	if phases, ok := defaultTiers[n.Race]; ok {
		if t, ok := phases[n.Phase]; ok {
			return t
		}
	}
	return npc.Tier4
}

// Review classifies an NPC and persists its tier status, creating the status
// on first processing. It returns the assigned tier.
func (c *Classifier) Review(ctx context.Context, npcID uuid.UUID) (npc.Tier, error) {
	n, err := c.store.GetNPC(ctx, npcID)
	if err != nil {
		return 0, err
	}
	t := c.Classify(n)
	ts := &npc.TierStatus{
		NpcID:        npcID,
		CurrentTier:  t,
		DetailLevel:  t.DetailLevel(),
		LastReviewed: c.now(),
	}
	if err := c.store.PutTierStatus(ctx, ts); err != nil {
		return 0, fmt.Errorf("persist tier status: %w", err)
	}
	return t, nil
}

// ReviewAll re-classifies the whole active population. Individual failures
// are logged and skipped; the review never aborts mid-population.
func (c *Classifier) ReviewAll(ctx context.Context) (map[npc.Tier]int, error) {
	active := npc.StatusActive
	npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	counts := make(map[npc.Tier]int)
	for _, n := range npcs {
		t, err := c.Review(ctx, n.ID)
		if err != nil {
			slog.Warn("tier review failed", "npc", n.ID, "error", err)
			continue
		}
		counts[t]++
	}
	return counts, nil
}

// GroupByTier buckets the active population by current tier, classifying any
// NPC that has no tier status yet.
func (c *Classifier) GroupByTier(ctx context.Context) (map[npc.Tier][]*npc.NPC, error) {
	active := npc.StatusActive
	npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("list npcs: %w", err)
	}
	groups := make(map[npc.Tier][]*npc.NPC)
	for _, n := range npcs {
		ts, err := c.store.GetTierStatus(ctx, n.ID)
		var t npc.Tier
		switch {
		case err == nil:
			t = ts.CurrentTier
		case npc.KindOf(err) == npc.KindNotFound:
			if t, err = c.Review(ctx, n.ID); err != nil {
				slog.Warn("tier classification failed", "npc", n.ID, "error", err)
				t = npc.Tier4
			}
		default:
			return nil, err
		}
		groups[t] = append(groups[t], n)
	}
	return groups, nil
}
