// Package coordinator orchestrates whole-population simulation passes:
// tier grouping, per-tier batch dispatch, the per-NPC engine sequence, and
// the aggregated health and statistics views.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/perf"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// EmotionEngine is the slice of the emotional state engine a pass needs.
type EmotionEngine interface {
	ProcessDailyDecay(ctx context.Context, npcID uuid.UUID) error
}

// PersonalityEngine is the slice of the personality evolution engine a pass
// needs.
type PersonalityEngine interface {
	ProcessDaily(ctx context.Context, npcID uuid.UUID) error
}

// CrisisEngine covers ongoing crisis processing and population-wide
// triggering.
type CrisisEngine interface {
	ProcessAllOngoing(ctx context.Context, npcID uuid.UUID) (int, error)
	Trigger(ctx context.Context, npcID uuid.UUID, typ npc.CrisisType, description string, severity float64) (*npc.CrisisResponse, error)
}

// TierClassifier groups the population for dispatch.
type TierClassifier interface {
	GroupByTier(ctx context.Context) (map[npc.Tier][]*npc.NPC, error)
}

// Lifecycle is the external aging/birth/death collaborator, run only for
// tiers 1 and 2.
type Lifecycle interface {
	ProcessDaily(ctx context.Context, n *npc.NPC) error
}

// EconomyService feeds system-wide crash detection.
type EconomyService interface {
	DetectCrashes(ctx context.Context) ([]string, error)
}

// TierReport summarizes one tier's share of a pass.
type TierReport struct {
	Tier       npc.Tier         `json:"tier"`
	Population int              `json:"population"`
	Succeeded  int              `json:"succeeded"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Statistics *perf.Statistics `json:"statistics,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// PassReport summarizes one full daily pass.
type PassReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Tiers           []TierReport  `json:"tiers"`
	TotalProcessed  int           `json:"total_processed"`
	TotalSkipped    int           `json:"total_skipped"`
	TotalFailed     int           `json:"total_failed"`
	EconomicCrashes []string      `json:"economic_crashes,omitempty"`
}

// Coordinator owns pass orchestration. Engine collaborators are injected as
// narrow interfaces; the optimizer's caches and executors do the dispatch.
type Coordinator struct {
	store     store.Store
	tiers     TierClassifier
	emotion   EmotionEngine
	persona   PersonalityEngine
	crisis    CrisisEngine
	economy   EconomyService
	lifecycle Lifecycle
	opt       *perf.Optimizer
	tun       config.Tuning
	now       func() time.Time

	mu      sync.Mutex
	history []*PassReport
}

// historyCap bounds the retained pass reports for the statistics view.
const historyCap = 90

// New returns a coordinator over the given collaborators.
func New(st store.Store, tiers TierClassifier, emo EmotionEngine, per PersonalityEngine, cri CrisisEngine, eco EconomyService, opt *perf.Optimizer, tun config.Tuning) *Coordinator {
	return &Coordinator{
		store:   st,
		tiers:   tiers,
		emotion: emo,
		persona: per,
		crisis:  cri,
		economy: eco,
		opt:     opt,
		tun:     tun,
		now:     time.Now,
	}
}

// WithLifecycle attaches the external lifecycle collaborator.
func (c *Coordinator) WithLifecycle(l Lifecycle) *Coordinator {
	c.lifecycle = l
	return c
}

// WithClock overrides the coordinator clock.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// passOrder runs high-fidelity tiers first.
var passOrder = []npc.Tier{npc.Tier1, npc.Tier2, npc.Tier3, npc.Tier4}

// RunDailyPass processes the whole population once. Each NPC runs its engine
// sequence in strict order (decay, personality step, ongoing crises, then
// lifecycle for tiers 1-2) and belongs to exactly one batch. Per-NPC errors
// are counted, never fatal; the pass fails only when the population cannot
// be grouped at all.
func (c *Coordinator) RunDailyPass(ctx context.Context, batchSize int) (*PassReport, error) {
	if batchSize <= 0 {
		batchSize = c.tun.BatchSize
	}
	started := c.now()
	report := &PassReport{StartedAt: started}

	groups, err := c.tiers.GroupByTier(ctx)
	if err != nil {
		return nil, fmt.Errorf("group population by tier: %w", err)
	}

	for _, tier := range passOrder {
		group := groups[tier]
		tr := TierReport{Tier: tier, Population: len(group)}
		tierStart := c.now()

		if tier == npc.Tier4 {
			stats := c.processStatistically(group)
			tr.Statistics = &stats
		} else {
			res := c.processTier(ctx, tier, group, batchSize)
			tr.Succeeded, tr.Skipped, tr.Failed = res.Succeeded, res.Skipped, res.Failed
			for _, err := range res.Errors {
				slog.Warn("npc processing failed", "tier", tier, "error", err)
			}
		}

		tr.Duration = c.now().Sub(tierStart)
		report.Tiers = append(report.Tiers, tr)
		report.TotalProcessed += tr.Succeeded
		report.TotalSkipped += tr.Skipped
		report.TotalFailed += tr.Failed
	}

	crashes, err := c.detectEconomicCrises(ctx)
	if err != nil {
		slog.Warn("economic crash detection failed", "error", err)
	}
	report.EconomicCrashes = crashes

	report.Duration = c.now().Sub(started)
	c.recordPass(report)

	slog.Info("daily pass complete",
		"processed", report.TotalProcessed, "skipped", report.TotalSkipped,
		"failed", report.TotalFailed, "duration", report.Duration)
	return report, nil
}

// processTier batches one tier's NPCs through its dispatch strategy.
func (c *Coordinator) processTier(ctx context.Context, tier npc.Tier, group []*npc.NPC, batchSize int) perf.BatchResult {
	strategy := perf.BatchStrategyFor(tier, c.tun)
	executor := perf.NewExecutor(strategy)

	var total perf.BatchResult
	for start := 0; start < len(group); start += batchSize {
		end := start + batchSize
		if end > len(group) {
			end = len(group)
		}
		tasks := make([]perf.Task, 0, end-start)
		for _, n := range group[start:end] {
			c.opt.CacheNpcData(n.ID, tier, n)
			tasks = append(tasks, c.npcTask(tier, n))
		}
		res := executor.Run(ctx, tasks)
		total.Succeeded += res.Succeeded
		total.Skipped += res.Skipped
		total.Failed += res.Failed
		total.Errors = append(total.Errors, res.Errors...)
	}
	return total
}

// npcTask builds one NPC's engine sequence. Order matters: later steps read
// state written by earlier ones.
func (c *Coordinator) npcTask(tier npc.Tier, n *npc.NPC) perf.Task {
	id := n.ID
	return func(ctx context.Context) error {
		if err := c.emotion.ProcessDailyDecay(ctx, id); err != nil {
			return fmt.Errorf("emotional decay for %s: %w", id, err)
		}
		if err := c.persona.ProcessDaily(ctx, id); err != nil {
			return fmt.Errorf("personality step for %s: %w", id, err)
		}
		if _, err := c.crisis.ProcessAllOngoing(ctx, id); err != nil {
			return fmt.Errorf("ongoing crises for %s: %w", id, err)
		}
		if tier <= npc.Tier2 && c.lifecycle != nil {
			if err := c.lifecycle.ProcessDaily(ctx, n); err != nil {
				return fmt.Errorf("lifecycle for %s: %w", id, err)
			}
		}
		return nil
	}
}

// processStatistically handles tier 4: no per-NPC work, just demographics.
func (c *Coordinator) processStatistically(group []*npc.NPC) perf.Statistics {
	counts := make(map[npc.Race]int)
	for _, n := range group {
		counts[n.Race]++
	}
	stats := perf.DeriveStatistics(counts)
	c.opt.CacheAggregate("tier4_statistics", stats)
	return stats
}

// CachedNPC returns the copy of an NPC stored by the most recent pass, if
// the optimizer still holds one in a live layer.
func (c *Coordinator) CachedNPC(id uuid.UUID) (*npc.NPC, bool) {
	data, _, ok := c.opt.LookupNpcData(id)
	if !ok {
		return nil, false
	}
	n, ok := data.(*npc.NPC)
	return n, ok
}

// detectEconomicCrises raises a mass economic-collapse event for every
// crashed region.
func (c *Coordinator) detectEconomicCrises(ctx context.Context) ([]string, error) {
	crashed, err := c.economy.DetectCrashes(ctx)
	if err != nil {
		return nil, err
	}
	for _, region := range crashed {
		desc := fmt.Sprintf("economic collapse sweeping %s", region)
		rep, err := c.TriggerMassCrisisEvent(ctx, npc.CrisisEconomicCollapse, desc, 7.0, []string{region}, "")
		if err != nil {
			slog.Warn("mass economic crisis failed", "region", region, "error", err)
			continue
		}
		slog.Info("economic crash response",
			"region", region, "triggered", rep.SuccessfulTriggers, "failed", rep.FailedTriggers)
	}
	return crashed, nil
}

func (c *Coordinator) recordPass(r *PassReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, r)
	if len(c.history) > historyCap {
		c.history = c.history[len(c.history)-historyCap:]
	}
}

func (c *Coordinator) lastPass() *PassReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return nil
	}
	return c.history[len(c.history)-1]
}

func (c *Coordinator) passesSince(cutoff time.Time) []*PassReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*PassReport
	for _, r := range c.history {
		if !r.StartedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}
