package perf

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

func newTestOptimizer(t *testing.T) (*Optimizer, *time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	o := NewOptimizer(config.DefaultTuning()).
		WithClock(func() time.Time { return now })
	return o, &now
}

func TestCacheTierIsolation(t *testing.T) {
	o, now := newTestOptimizer(t)
	x, y := uuid.New(), uuid.New()

	o.CacheNpcData(x, npc.Tier1, "live")
	o.CacheNpcData(y, npc.Tier3, "dormant")

	if got, ok := o.GetCachedNpcData(x, npc.Tier1); !ok || got != "live" {
		t.Errorf("tier1 lookup = %v, %v", got, ok)
	}
	if got, ok := o.GetCachedNpcData(y, npc.Tier3); !ok || got != "dormant" {
		t.Errorf("tier3 lookup = %v, %v", got, ok)
	}
	// The same NPC is absent from a layer it was never written to.
	if _, ok := o.GetCachedNpcData(x, npc.Tier3); ok {
		t.Error("tier1 write leaked into tier3")
	}

	// Past the tier3 TTL the dormant entry is gone; the live one is not.
	*now = now.Add(25 * time.Hour)
	if _, ok := o.GetCachedNpcData(y, npc.Tier3); ok {
		t.Error("expired tier3 entry still served")
	}
	if _, ok := o.GetCachedNpcData(x, npc.Tier1); !ok {
		t.Error("tier1 entry expired; it must only leave via the LRU cap")
	}
}

func TestLookupNpcDataSearchesLiveLayers(t *testing.T) {
	o, now := newTestOptimizer(t)
	id := uuid.New()

	if _, _, ok := o.LookupNpcData(id); ok {
		t.Fatal("lookup hit on an empty cache")
	}
	o.CacheNpcData(id, npc.Tier2, "background")
	data, tier, ok := o.LookupNpcData(id)
	if !ok || tier != npc.Tier2 || data != "background" {
		t.Fatalf("lookup = %v, %v, %v", data, tier, ok)
	}

	// Expiry applies to tierless lookups too.
	*now = now.Add(2 * time.Hour)
	if _, _, ok := o.LookupNpcData(id); ok {
		t.Error("expired tier2 entry served through lookup")
	}
}

func TestExpiredEntryEvictedOnRead(t *testing.T) {
	o, now := newTestOptimizer(t)
	id := uuid.New()

	o.CacheNpcData(id, npc.Tier2, 42)
	*now = now.Add(2 * time.Hour)
	if _, ok := o.GetCachedNpcData(id, npc.Tier2); ok {
		t.Fatal("expired tier2 entry still served")
	}
	if n := o.Len(npc.Tier2); n != 0 {
		t.Errorf("tier2 entries after expired read = %d, want 0", n)
	}
}

func TestTier4NeverCachesPerNPC(t *testing.T) {
	o, _ := newTestOptimizer(t)
	id := uuid.New()

	o.CacheNpcData(id, npc.Tier4, "aggregate-only")
	if _, ok := o.GetCachedNpcData(id, npc.Tier4); ok {
		t.Error("tier4 served a per-NPC entry")
	}

	o.CacheAggregate("vale_stats", Statistics{Population: 1200})
	got, ok := o.GetAggregate("vale_stats")
	if !ok {
		t.Fatal("aggregate missing")
	}
	if got.(Statistics).Population != 1200 {
		t.Errorf("aggregate = %+v", got)
	}
}

func TestCleanupCapsTier1ByLRU(t *testing.T) {
	o, now := newTestOptimizer(t)
	ceiling := config.DefaultTuning().Tier1CacheCeiling

	oldest := make([]uuid.UUID, 0, ceiling/2)
	for i := 0; i < ceiling+100; i++ {
		id := uuid.New()
		o.CacheNpcData(id, npc.Tier1, i)
		if i < 100 {
			oldest = append(oldest, id)
		}
		*now = now.Add(time.Second)
	}

	evicted := o.Cleanup()
	want := (ceiling + 100) / 5
	if evicted != want {
		t.Errorf("evicted = %d, want %d (20%% of %d)", evicted, want, ceiling+100)
	}
	if n := o.Len(npc.Tier1); n != ceiling+100-want {
		t.Errorf("remaining = %d", n)
	}
	// The least recently used entries are the ones that left.
	for _, id := range oldest {
		if _, ok := o.GetCachedNpcData(id, npc.Tier1); ok {
			t.Fatal("an old entry survived the LRU eviction")
		}
	}
}

func TestCleanupBelowCeilingKeepsTier1(t *testing.T) {
	o, _ := newTestOptimizer(t)
	for i := 0; i < 10; i++ {
		o.CacheNpcData(uuid.New(), npc.Tier1, i)
	}
	if evicted := o.Cleanup(); evicted != 0 {
		t.Errorf("evicted = %d below the ceiling, want 0", evicted)
	}
}

func TestBatchStrategyByTier(t *testing.T) {
	tun := config.DefaultTuning()
	cases := []struct {
		tier npc.Tier
		mode Mode
	}{
		{npc.Tier1, ModeConcurrent},
		{npc.Tier2, ModeConcurrent},
		{npc.Tier3, ModeSequential},
		{npc.Tier4, ModeAnalytic},
	}
	for _, c := range cases {
		s := BatchStrategyFor(c.tier, tun)
		if s.Mode != c.mode {
			t.Errorf("tier %d mode = %s, want %s", c.tier, s.Mode.Name(), c.mode.Name())
		}
	}
	if s := BatchStrategyFor(npc.Tier1, tun); s.Workers != tun.MaxWorkers {
		t.Errorf("tier1 workers = %d, want %d", s.Workers, tun.MaxWorkers)
	}
	if s := BatchStrategyFor(npc.Tier3, tun); s.PerSecond != tun.Tier3PerSecond {
		t.Errorf("tier3 pacing = %g, want %g", s.PerSecond, tun.Tier3PerSecond)
	}
}

func TestPoolExecutorAggregatesOutcomes(t *testing.T) {
	tun := config.DefaultTuning()
	ex := NewExecutor(BatchStrategyFor(npc.Tier1, tun))

	tasks := []Task{
		func(context.Context) error { return nil },
		func(context.Context) error { return nil },
		func(context.Context) error { return errors.New("store closed") },
		func(context.Context) error { return npc.ThresholdNotMetf("too mild") },
	}
	res := ex.Run(context.Background(), tasks)
	if res.Succeeded != 2 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 2 ok / 1 failed / 1 skipped", res)
	}
	if len(res.Errors) != 1 {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestPoolExecutorTimesOutSlowTask(t *testing.T) {
	tun := config.DefaultTuning()
	tun.TaskTimeout = 10 * time.Millisecond
	ex := NewExecutor(BatchStrategyFor(npc.Tier2, tun))

	var completed atomic.Int32
	tasks := []Task{
		func(ctx context.Context) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		func(context.Context) error {
			completed.Add(1)
			return nil
		},
	}
	res := ex.Run(context.Background(), tasks)
	if res.Failed != 1 {
		t.Fatalf("failed = %d, want the slow task counted", res.Failed)
	}
	if npc.KindOf(res.Errors[0]) != npc.KindTimeout {
		t.Errorf("error kind = %v, want timeout", res.Errors[0])
	}
	if completed.Load() != 1 || res.Succeeded != 1 {
		t.Error("a slow task must not block the rest of the batch")
	}
}

func TestPoolExecutorBoundsConcurrency(t *testing.T) {
	tun := config.DefaultTuning()
	tun.MaxWorkers = 2
	ex := NewExecutor(BatchStrategyFor(npc.Tier1, tun))

	var inFlight, peak atomic.Int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			return nil
		}
	}
	res := ex.Run(context.Background(), tasks)
	if res.Succeeded != 20 {
		t.Fatalf("succeeded = %d", res.Succeeded)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestPacedExecutorRunsSequentially(t *testing.T) {
	tun := config.DefaultTuning()
	tun.Tier3PerSecond = 1000
	ex := NewExecutor(BatchStrategyFor(npc.Tier3, tun))

	var order []int
	tasks := make([]Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = func(context.Context) error {
			order = append(order, i)
			return nil
		}
	}
	res := ex.Run(context.Background(), tasks)
	if res.Succeeded != 5 {
		t.Fatalf("succeeded = %d", res.Succeeded)
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want in-submission order", order)
		}
	}
}

func TestAnalyticExecutorDispatchesNothing(t *testing.T) {
	ex := NewExecutor(BatchStrategyFor(npc.Tier4, config.DefaultTuning()))
	ran := false
	res := ex.Run(context.Background(), []Task{
		func(context.Context) error { ran = true; return nil },
	})
	if ran {
		t.Error("tier4 executed a per-entity task")
	}
	if res.Succeeded != 0 || res.Failed != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestDeriveStatistics(t *testing.T) {
	counts := map[npc.Race]int{
		npc.RaceHuman: 1000,
		npc.RaceElf:   1000,
	}
	s := DeriveStatistics(counts)
	if s.Population != 2000 {
		t.Fatalf("population = %d", s.Population)
	}
	// Human 35/1000 and elf 4/1000 average to 19.5 across equal counts.
	if s.BirthRate != 19.5 {
		t.Errorf("birth rate = %g, want 19.5", s.BirthRate)
	}
	if s.DeathRate != 16.5 {
		t.Errorf("death rate = %g, want 16.5", s.DeathRate)
	}
	if s.DailyBirths <= 0 || s.DailyBirths >= 1 {
		t.Errorf("daily births = %g, want a small positive expectation", s.DailyBirths)
	}

	empty := DeriveStatistics(nil)
	if empty.Population != 0 || empty.BirthRate != 0 {
		t.Errorf("empty population stats = %+v", empty)
	}
}

func TestStatisticsSkipNonPositiveCounts(t *testing.T) {
	s := DeriveStatistics(map[npc.Race]int{npc.RaceDwarf: 0, npc.RaceOrc: -5})
	if s.Population != 0 {
		t.Errorf("population = %d, want 0", s.Population)
	}
}
