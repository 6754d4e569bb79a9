package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/perf"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// BulkReport summarizes one bulk engine operation. Item-level failures are
// keyed by NPC so callers can report them individually.
type BulkReport struct {
	Requested int                  `json:"requested"`
	Succeeded int                  `json:"succeeded"`
	Skipped   int                  `json:"skipped"`
	Failed    int                  `json:"failed"`
	Failures  map[uuid.UUID]string `json:"failures,omitempty"`
}

// BulkProcessEmotionalDecay runs the daily decay step for the given NPCs,
// or for the whole active population when ids is empty.
func (c *Coordinator) BulkProcessEmotionalDecay(ctx context.Context, ids []uuid.UUID) (*BulkReport, error) {
	return c.bulk(ctx, ids, func(ctx context.Context, id uuid.UUID) error {
		return c.emotion.ProcessDailyDecay(ctx, id)
	})
}

// BulkProcessPersonalityEvolution runs the daily evolution step for the
// given NPCs, or for the whole active population when ids is empty.
func (c *Coordinator) BulkProcessPersonalityEvolution(ctx context.Context, ids []uuid.UUID) (*BulkReport, error) {
	return c.bulk(ctx, ids, func(ctx context.Context, id uuid.UUID) error {
		return c.persona.ProcessDaily(ctx, id)
	})
}

func (c *Coordinator) bulk(ctx context.Context, ids []uuid.UUID, op func(context.Context, uuid.UUID) error) (*BulkReport, error) {
	if len(ids) == 0 {
		active := npc.StatusActive
		npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
		if err != nil {
			return nil, fmt.Errorf("list active population: %w", err)
		}
		for _, n := range npcs {
			ids = append(ids, n.ID)
		}
	}

	report := &BulkReport{Requested: len(ids), Failures: map[uuid.UUID]string{}}
	var mu sync.Mutex

	executor := perf.NewExecutor(perf.BatchStrategyFor(npc.Tier1, c.tun))
	tasks := make([]perf.Task, 0, len(ids))
	for _, id := range ids {
		id := id
		tasks = append(tasks, func(ctx context.Context) error {
			err := op(ctx, id)
			if err != nil && npc.KindOf(err) != npc.KindThresholdNotMet {
				mu.Lock()
				report.Failures[id] = err.Error()
				mu.Unlock()
			}
			return err
		})
	}
	res := executor.Run(ctx, tasks)
	report.Succeeded, report.Skipped, report.Failed = res.Succeeded, res.Skipped, res.Failed
	return report, nil
}

// MassCrisisReport aggregates a population-wide crisis trigger. One NPC's
// failure never aborts the rest; both counts are always populated.
type MassCrisisReport struct {
	Type               npc.CrisisType       `json:"type"`
	Severity           float64              `json:"severity"`
	Selected           int                  `json:"selected"`
	SuccessfulTriggers int                  `json:"successful_triggers"`
	FailedTriggers     int                  `json:"failed_triggers"`
	SkippedTriggers    int                  `json:"skipped_triggers"`
	Failures           map[uuid.UUID]string `json:"failures,omitempty"`
}

// TriggerMassCrisisEvent triggers one crisis across a population subset.
// Regions narrow by residence; criteria is an optional boolean expression
// over name, race, region, age, lifecycle phase, and the trait fields.
func (c *Coordinator) TriggerMassCrisisEvent(ctx context.Context, typ npc.CrisisType, description string, severity float64, regions []string, criteria string) (*MassCrisisReport, error) {
	selected, err := c.selectPopulation(ctx, regions, criteria)
	if err != nil {
		return nil, err
	}

	report := &MassCrisisReport{
		Type:     typ,
		Severity: severity,
		Selected: len(selected),
		Failures: map[uuid.UUID]string{},
	}
	for _, n := range selected {
		_, err := c.crisis.Trigger(ctx, n.ID, typ, description, severity)
		switch {
		case err == nil:
			report.SuccessfulTriggers++
		case npc.KindOf(err) == npc.KindThresholdNotMet:
			report.SkippedTriggers++
		default:
			report.FailedTriggers++
			report.Failures[n.ID] = err.Error()
		}
	}

	slog.Info("mass crisis event",
		"crisis", typ.Name(), "severity", severity, "selected", report.Selected,
		"triggered", report.SuccessfulTriggers, "failed", report.FailedTriggers)
	return report, nil
}

// selectPopulation filters the active population by region membership and an
// optional criteria expression.
func (c *Coordinator) selectPopulation(ctx context.Context, regions []string, criteria string) ([]*npc.NPC, error) {
	active := npc.StatusActive
	npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("list active population: %w", err)
	}

	var inRegion map[string]bool
	if len(regions) > 0 {
		inRegion = make(map[string]bool, len(regions))
		for _, r := range regions {
			inRegion[r] = true
		}
	}

	var program *vm.Program
	if criteria != "" {
		program, err = expr.Compile(criteria, expr.AsBool())
		if err != nil {
			return nil, npc.InvalidStatef("bad selection criteria: %v", err)
		}
	}

	var out []*npc.NPC
	for _, n := range npcs {
		if inRegion != nil && !inRegion[n.Region] {
			continue
		}
		if program != nil {
			match, err := evalCriteria(program, n)
			if err != nil {
				slog.Warn("selection criteria failed for npc", "npc", n.ID, "error", err)
				continue
			}
			if !match {
				continue
			}
		}
		out = append(out, n)
	}
	return out, nil
}

func evalCriteria(program *vm.Program, n *npc.NPC) (bool, error) {
	out, err := expr.Run(program, map[string]any{
		"name":        n.Name,
		"race":        n.Race.Name(),
		"age":         n.Age,
		"region":      n.Region,
		"phase":       n.Phase.Name(),
		"resilience":  n.Traits.Resilience,
		"ambition":    n.Traits.Ambition,
		"integrity":   n.Traits.Integrity,
		"discipline":  n.Traits.Discipline,
		"pragmatism":  n.Traits.Pragmatism,
		"impulsivity": n.Traits.Impulsivity,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("criteria yielded %T, want bool", out)
	}
	return b, nil
}
