package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/perf"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// HealthStatus is the read-only monitoring view of the running simulation.
type HealthStatus struct {
	Status       string         `json:"status"`
	Population   int            `json:"population"`
	ByTier       map[string]int `json:"by_tier"`
	ByRace       map[string]int `json:"by_race"`
	ByPhase      map[string]int `json:"by_phase"`
	ActiveCrises int            `json:"active_crises"`
	Alerts       []string       `json:"alerts,omitempty"`
	LastPass     *PassReport    `json:"last_pass,omitempty"`
	CheckedAt    time.Time      `json:"checked_at"`
}

// GetSystemHealthStatus reports population composition, active crisis load,
// and alert conditions. Degraded status means at least one alert fired.
func (c *Coordinator) GetSystemHealthStatus(ctx context.Context) (*HealthStatus, error) {
	active := npc.StatusActive
	npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("list active population: %w", err)
	}
	tierCounts, err := c.store.CountByTier(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}
	crises, err := c.store.ListCrisisResponses(ctx, store.CrisisFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list active crises: %w", err)
	}

	hs := &HealthStatus{
		Status:       "healthy",
		Population:   len(npcs),
		ByTier:       map[string]int{},
		ByRace:       map[string]int{},
		ByPhase:      map[string]int{},
		ActiveCrises: len(crises),
		LastPass:     c.lastPass(),
		CheckedAt:    c.now(),
	}
	for tier, n := range tierCounts {
		hs.ByTier[fmt.Sprintf("tier%d", tier)] = n
	}
	for _, n := range npcs {
		hs.ByRace[n.Race.Name()]++
		hs.ByPhase[n.Phase.Name()]++
	}

	if hs.Population == 0 {
		hs.Alerts = append(hs.Alerts, "no active population")
	}
	if live := tierCounts[npc.Tier1]; live > c.tun.Tier1CacheCeiling {
		hs.Alerts = append(hs.Alerts,
			fmt.Sprintf("tier1 population %d exceeds live cache ceiling %d", live, c.tun.Tier1CacheCeiling))
	}
	if hs.Population > 0 && hs.ActiveCrises*2 > hs.Population {
		hs.Alerts = append(hs.Alerts,
			fmt.Sprintf("over half the population is in crisis (%d of %d)", hs.ActiveCrises, hs.Population))
	}
	if last := hs.LastPass; last != nil {
		total := last.TotalProcessed + last.TotalFailed
		if total > 0 && last.TotalFailed*10 > total {
			hs.Alerts = append(hs.Alerts,
				fmt.Sprintf("last pass failure rate above 10%% (%d of %d)", last.TotalFailed, total))
		}
	}
	if len(hs.Alerts) > 0 {
		hs.Status = "degraded"
	}
	return hs, nil
}

// CrisisStatistics summarizes crisis throughput inside the window.
type CrisisStatistics struct {
	Active               int     `json:"active"`
	CompletedInWindow    int     `json:"completed_in_window"`
	AverageEffectiveness float64 `json:"average_effectiveness"`
}

// PassStatistics summarizes the retained daily passes inside the window.
type PassStatistics struct {
	Passes          int           `json:"passes"`
	TotalProcessed  int           `json:"total_processed"`
	TotalFailed     int           `json:"total_failed"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Statistics is the comprehensive read-only view over a trailing window.
// Tier4Pool is the statistical-pool model cached by the latest pass; it is
// absent until a pass has run.
type Statistics struct {
	WindowDays   int              `json:"window_days"`
	Demographics perf.Statistics  `json:"demographics"`
	Tier4Pool    *perf.Statistics `json:"tier4_pool,omitempty"`
	ByTier       map[string]int   `json:"by_tier"`
	Crises       CrisisStatistics `json:"crises"`
	Passes       PassStatistics   `json:"passes"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// GetComprehensiveStatistics aggregates demographics, crisis throughput, and
// pass history over the trailing number of days.
func (c *Coordinator) GetComprehensiveStatistics(ctx context.Context, days int) (*Statistics, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := c.now().Add(-time.Duration(days) * 24 * time.Hour)

	active := npc.StatusActive
	npcs, err := c.store.ListNPCs(ctx, store.NPCFilter{Status: &active})
	if err != nil {
		return nil, fmt.Errorf("list active population: %w", err)
	}
	raceCounts := make(map[npc.Race]int)
	for _, n := range npcs {
		raceCounts[n.Race]++
	}

	tierCounts, err := c.store.CountByTier(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}

	crises, err := c.store.ListCrisisResponses(ctx, store.CrisisFilter{})
	if err != nil {
		return nil, fmt.Errorf("list crises: %w", err)
	}

	stats := &Statistics{
		WindowDays:   days,
		Demographics: perf.DeriveStatistics(raceCounts),
		ByTier:       map[string]int{},
		GeneratedAt:  c.now(),
	}
	for tier, n := range tierCounts {
		stats.ByTier[fmt.Sprintf("tier%d", tier)] = n
	}
	if data, ok := c.opt.GetAggregate("tier4_statistics"); ok {
		if pool, ok := data.(perf.Statistics); ok {
			stats.Tier4Pool = &pool
		}
	}

	var effSum float64
	for _, cr := range crises {
		if cr.Active() {
			stats.Crises.Active++
			continue
		}
		if cr.CompletedAt.Before(cutoff) {
			continue
		}
		stats.Crises.CompletedInWindow++
		effSum += cr.Effectiveness
	}
	if stats.Crises.CompletedInWindow > 0 {
		stats.Crises.AverageEffectiveness = effSum / float64(stats.Crises.CompletedInWindow)
	}

	var durSum time.Duration
	for _, r := range c.passesSince(cutoff) {
		stats.Passes.Passes++
		stats.Passes.TotalProcessed += r.TotalProcessed
		stats.Passes.TotalFailed += r.TotalFailed
		durSum += r.Duration
	}
	if stats.Passes.Passes > 0 {
		stats.Passes.AverageDuration = durSum / time.Duration(stats.Passes.Passes)
	}
	return stats, nil
}
