package economy

import (
	"context"
	"testing"
	"time"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

func TestCycleModifierUnknownRegionIsStable(t *testing.T) {
	svc := New(store.NewMemory(), 2.0, sim.NewRand(1))
	mod, err := svc.CycleModifier(context.Background(), "nowhere")
	if err != nil {
		t.Fatal(err)
	}
	if mod != 1.0 {
		t.Errorf("modifier = %g, want 1.0", mod)
	}
}

func TestCycleModifierByPhase(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, 2.0, sim.NewRand(1))
	ctx := context.Background()

	m.PutEconomicCycle(ctx, &npc.EconomicCycle{Region: "docks", Phase: npc.PhaseDepression, Strength: 3})
	mod, err := svc.CycleModifier(ctx, "docks")
	if err != nil {
		t.Fatal(err)
	}
	if mod != 0.6 {
		t.Errorf("depression modifier = %g, want 0.6", mod)
	}
}

func TestDetectCrashes(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, 2.0, sim.NewRand(1))
	ctx := context.Background()

	m.PutEconomicCycle(ctx, &npc.EconomicCycle{Region: "a", Phase: npc.PhaseDepression, Strength: 1.5})
	m.PutEconomicCycle(ctx, &npc.EconomicCycle{Region: "b", Phase: npc.PhaseBoom, Strength: 1.5})
	m.PutEconomicCycle(ctx, &npc.EconomicCycle{Region: "c", Phase: npc.PhaseRecession, Strength: 5})

	crashed, err := svc.DetectCrashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(crashed) != 1 || crashed[0] != "a" {
		t.Errorf("crashed = %v, want [a]", crashed)
	}
}

func TestAdvanceKeepsStrengthBounded(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, 2.0, sim.NewRand(99)).WithClock(func() time.Time { return time.Unix(0, 0) })
	ctx := context.Background()

	m.PutEconomicCycle(ctx, &npc.EconomicCycle{Region: "x", Phase: npc.PhaseStable, Strength: 9.8})
	for i := 0; i < 50; i++ {
		if err := svc.Advance(ctx); err != nil {
			t.Fatal(err)
		}
		c, _ := m.GetEconomicCycle(ctx, "x")
		if c.Strength < 0 || c.Strength > 10 {
			t.Fatalf("strength out of bounds: %g", c.Strength)
		}
	}
}

func TestEnsureRegionIdempotent(t *testing.T) {
	m := store.NewMemory()
	svc := New(m, 2.0, sim.NewRand(1))
	ctx := context.Background()

	if err := svc.EnsureRegion(ctx, "vale"); err != nil {
		t.Fatal(err)
	}
	c, _ := m.GetEconomicCycle(ctx, "vale")
	c.Strength = 8
	m.PutEconomicCycle(ctx, c)

	if err := svc.EnsureRegion(ctx, "vale"); err != nil {
		t.Fatal(err)
	}
	again, _ := m.GetEconomicCycle(ctx, "vale")
	if again.Strength != 8 {
		t.Error("EnsureRegion overwrote an existing cycle")
	}
}
