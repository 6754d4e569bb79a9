// Package economy maintains regional economic cycles and exposes the
// resource-availability modifier the crisis engine consults.
package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// phaseModifier maps a cycle phase to its resource-availability multiplier.
var phaseModifier = map[npc.EconomicPhase]float64{
	npc.PhaseBoom:       1.2,
	npc.PhaseStable:     1.0,
	npc.PhaseRecovery:   0.9,
	npc.PhaseRecession:  0.8,
	npc.PhaseDepression: 0.6,
}

// nextPhase is the forward step of the cycle state machine.
var nextPhase = map[npc.EconomicPhase]npc.EconomicPhase{
	npc.PhaseBoom:       npc.PhaseStable,
	npc.PhaseStable:     npc.PhaseRecession,
	npc.PhaseRecession:  npc.PhaseDepression,
	npc.PhaseDepression: npc.PhaseRecovery,
	npc.PhaseRecovery:   npc.PhaseBoom,
}

// Service tracks per-region cycles.
type Service struct {
	store          store.EconomyStore
	crashThreshold float64
	rng            *rand.Rand
	now            func() time.Time
}

// New returns an economy service. rng drives phase transitions; now is the
// clock, overridable in tests.
func New(st store.EconomyStore, crashThreshold float64, rng *rand.Rand) *Service {
	return &Service{
		store:          st,
		crashThreshold: crashThreshold,
		rng:            rng,
		now:            time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CycleModifier returns the resource-availability multiplier for a region.
// Unknown regions read as stable; a missing economy never blocks a crisis
// response.
func (s *Service) CycleModifier(ctx context.Context, region string) (float64, error) {
	c, err := s.store.GetEconomicCycle(ctx, region)
	if err != nil {
		if npc.KindOf(err) == npc.KindNotFound {
			return phaseModifier[npc.PhaseStable], nil
		}
		return 0, fmt.Errorf("economic cycle for %q: %w", region, err)
	}
	return phaseModifier[c.Phase], nil
}

// Advance moves every region one step through its cycle with 30% probability
// and drifts strength toward the phase's character. Run monthly.
func (s *Service) Advance(ctx context.Context) error {
	cycles, err := s.store.ListEconomicCycles(ctx)
	if err != nil {
		return fmt.Errorf("list cycles: %w", err)
	}
	for _, c := range cycles {
		if s.rng.Float64() < 0.3 {
			c.Phase = nextPhase[c.Phase]
		}
		drift := (s.rng.Float64() - 0.5) * 1.0
		switch c.Phase {
		case npc.PhaseBoom, npc.PhaseRecovery:
			drift += 0.5
		case npc.PhaseRecession, npc.PhaseDepression:
			drift -= 0.5
		}
		c.Strength = sim.Clamp(c.Strength+drift, 0, 10)
		c.UpdatedAt = s.now()
		if err := s.store.PutEconomicCycle(ctx, c); err != nil {
			return fmt.Errorf("update cycle %q: %w", c.Region, err)
		}
		slog.Debug("economic cycle advanced",
			"region", c.Region, "phase", c.Phase.Name(), "strength", c.Strength)
	}
	return nil
}

// DetectCrashes returns regions whose economy has collapsed: strength under
// the crash threshold while in recession or depression.
func (s *Service) DetectCrashes(ctx context.Context) ([]string, error) {
	cycles, err := s.store.ListEconomicCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	var crashed []string
	for _, c := range cycles {
		contracting := c.Phase == npc.PhaseRecession || c.Phase == npc.PhaseDepression
		if contracting && c.Strength < s.crashThreshold {
			crashed = append(crashed, c.Region)
		}
	}
	return crashed, nil
}

// EnsureRegion seeds a stable cycle for a region if none exists yet.
func (s *Service) EnsureRegion(ctx context.Context, region string) error {
	_, err := s.store.GetEconomicCycle(ctx, region)
	if err == nil {
		return nil
	}
	if npc.KindOf(err) != npc.KindNotFound {
		return err
	}
	return s.store.PutEconomicCycle(ctx, &npc.EconomicCycle{
		Region:    region,
		Phase:     npc.PhaseStable,
		Strength:  5,
		UpdatedAt: s.now(),
	})
}
