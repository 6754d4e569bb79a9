package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/perf"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// recorder tracks the engine-step sequence per NPC across goroutines.
type recorder struct {
	mu    sync.Mutex
	steps map[uuid.UUID][]string
}

func newRecorder() *recorder {
	return &recorder{steps: map[uuid.UUID][]string{}}
}

func (r *recorder) record(id uuid.UUID, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[id] = append(r.steps[id], step)
}

type fakeEmotion struct {
	rec  *recorder
	fail map[uuid.UUID]error
}

func (f *fakeEmotion) ProcessDailyDecay(_ context.Context, id uuid.UUID) error {
	if err := f.fail[id]; err != nil {
		return err
	}
	f.rec.record(id, "decay")
	return nil
}

type fakePersonality struct{ rec *recorder }

func (f *fakePersonality) ProcessDaily(_ context.Context, id uuid.UUID) error {
	f.rec.record(id, "personality")
	return nil
}

type fakeCrisis struct {
	rec  *recorder
	fail map[uuid.UUID]error
}

func (f *fakeCrisis) ProcessAllOngoing(_ context.Context, id uuid.UUID) (int, error) {
	f.rec.record(id, "crisis")
	return 0, nil
}

func (f *fakeCrisis) Trigger(_ context.Context, id uuid.UUID, _ npc.CrisisType, _ string, _ float64) (*npc.CrisisResponse, error) {
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	f.rec.record(id, "trigger")
	return &npc.CrisisResponse{ID: uuid.New(), NpcID: id}, nil
}

type fakeLifecycle struct{ rec *recorder }

func (f *fakeLifecycle) ProcessDaily(_ context.Context, n *npc.NPC) error {
	f.rec.record(n.ID, "lifecycle")
	return nil
}

type fakeTiers struct{ groups map[npc.Tier][]*npc.NPC }

func (f *fakeTiers) GroupByTier(context.Context) (map[npc.Tier][]*npc.NPC, error) {
	return f.groups, nil
}

type fakeEconomy struct{ crashed []string }

func (f *fakeEconomy) DetectCrashes(context.Context) ([]string, error) {
	return f.crashed, nil
}

type fixture struct {
	coord *Coordinator
	store *store.Memory
	rec   *recorder
	emo   *fakeEmotion
	cri   *fakeCrisis
	tiers *fakeTiers
	eco   *fakeEconomy
	opt   *perf.Optimizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tun := config.DefaultTuning()
	rec := newRecorder()
	f := &fixture{
		store: store.NewMemory(),
		rec:   rec,
		emo:   &fakeEmotion{rec: rec, fail: map[uuid.UUID]error{}},
		cri:   &fakeCrisis{rec: rec, fail: map[uuid.UUID]error{}},
		tiers: &fakeTiers{groups: map[npc.Tier][]*npc.NPC{}},
		eco:   &fakeEconomy{},
		opt:   perf.NewOptimizer(tun),
	}
	f.coord = New(f.store, f.tiers, f.emo, &fakePersonality{rec: rec}, f.cri, f.eco, f.opt, tun).
		WithLifecycle(&fakeLifecycle{rec: rec}).
		WithClock(func() time.Time { return testNow })
	return f
}

func (f *fixture) seedNPC(t *testing.T, tier npc.Tier, region string, age int) *npc.NPC {
	t.Helper()
	n := &npc.NPC{
		ID:     uuid.New(),
		Name:   "Wren",
		Race:   npc.RaceHuman,
		Age:    age,
		Phase:  npc.PhaseAdult,
		Region: region,
		Status: npc.StatusActive,
		Traits: npc.DefaultTraits(),
	}
	if err := f.store.PutNPC(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	f.tiers.groups[tier] = append(f.tiers.groups[tier], n)
	return n
}

func TestRunDailyPassEngineOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t1 := f.seedNPC(t, npc.Tier1, "vale", 30)
	t3 := f.seedNPC(t, npc.Tier3, "vale", 40)

	report, err := f.coord.RunDailyPass(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalProcessed != 2 || report.TotalFailed != 0 {
		t.Fatalf("report = %+v", report)
	}

	// Tier 1 gets the full sequence including lifecycle.
	want := []string{"decay", "personality", "crisis", "lifecycle"}
	got := f.rec.steps[t1.ID]
	if len(got) != len(want) {
		t.Fatalf("tier1 steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tier1 steps = %v, want %v", got, want)
		}
	}

	// Tier 3 skips lifecycle.
	got = f.rec.steps[t3.ID]
	if len(got) != 3 || got[2] != "crisis" {
		t.Fatalf("tier3 steps = %v, want decay/personality/crisis", got)
	}
}

func TestRunDailyPassProcessesEachNPCOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 25)
	for i := 0; i < 25; i++ {
		ids = append(ids, f.seedNPC(t, npc.Tier2, "vale", 30).ID)
	}

	// Batch size smaller than the group forces multiple batches.
	if _, err := f.coord.RunDailyPass(ctx, 10); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if n := len(f.rec.steps[id]); n != 4 {
			t.Fatalf("npc %s ran %d steps, want exactly one full sequence", id, n)
		}
	}
}

func TestRunDailyPassPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := f.seedNPC(t, npc.Tier1, "vale", 30)
	f.seedNPC(t, npc.Tier1, "vale", 30)
	f.emo.fail[bad.ID] = errors.New("store closed")

	report, err := f.coord.RunDailyPass(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalProcessed != 1 || report.TotalFailed != 1 {
		t.Errorf("report = processed %d failed %d, want 1/1", report.TotalProcessed, report.TotalFailed)
	}
}

func TestRunDailyPassTier4Statistical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dormant := f.seedNPC(t, npc.Tier4, "vale", 50)

	report, err := f.coord.RunDailyPass(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.rec.steps[dormant.ID]) != 0 {
		t.Error("tier4 NPC received per-entity processing")
	}
	var t4 *TierReport
	for i := range report.Tiers {
		if report.Tiers[i].Tier == npc.Tier4 {
			t4 = &report.Tiers[i]
		}
	}
	if t4 == nil || t4.Statistics == nil || t4.Statistics.Population != 1 {
		t.Fatalf("tier4 report = %+v, want analytic statistics", t4)
	}
	if _, ok := f.opt.GetAggregate("tier4_statistics"); !ok {
		t.Error("tier4 statistics not cached as an aggregate")
	}

	stats, err := f.coord.GetComprehensiveStatistics(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Tier4Pool == nil || stats.Tier4Pool.Population != 1 {
		t.Errorf("tier4 pool = %+v, want the cached aggregate", stats.Tier4Pool)
	}
}

func TestCachedNPCServedAfterPass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := f.seedNPC(t, npc.Tier1, "vale", 30)
	if _, ok := f.coord.CachedNPC(n.ID); ok {
		t.Fatal("cache hit before any pass ran")
	}

	if _, err := f.coord.RunDailyPass(ctx, 10); err != nil {
		t.Fatal(err)
	}
	cached, ok := f.coord.CachedNPC(n.ID)
	if !ok || cached.ID != n.ID {
		t.Fatalf("cached = %+v, ok = %v, want the processed NPC", cached, ok)
	}
}

func TestMassCrisisPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		ids = append(ids, f.seedNPC(t, npc.Tier1, "vale", 30).ID)
	}
	f.cri.fail[ids[0]] = npc.NotFoundf("npc %s gone", ids[0])
	f.cri.fail[ids[1]] = npc.NotFoundf("npc %s gone", ids[1])

	report, err := f.coord.TriggerMassCrisisEvent(ctx, npc.CrisisPlagueOutbreak, "fever spreads", 7.0, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if report.Selected != 10 {
		t.Fatalf("selected = %d, want 10", report.Selected)
	}
	if report.SuccessfulTriggers != 8 || report.FailedTriggers != 2 {
		t.Errorf("triggers = %d ok / %d failed, want 8/2", report.SuccessfulTriggers, report.FailedTriggers)
	}
	if len(report.Failures) != 2 {
		t.Errorf("failures = %v", report.Failures)
	}
}

func TestMassCrisisRegionAndCriteriaSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	young := f.seedNPC(t, npc.Tier1, "vale", 20)
	old := f.seedNPC(t, npc.Tier1, "vale", 60)
	elsewhere := f.seedNPC(t, npc.Tier1, "coast", 60)

	report, err := f.coord.TriggerMassCrisisEvent(ctx, npc.CrisisWarThreat, "levy called", 6.0,
		[]string{"vale"}, "age >= 40")
	if err != nil {
		t.Fatal(err)
	}
	if report.Selected != 1 || report.SuccessfulTriggers != 1 {
		t.Fatalf("report = %+v, want exactly the old vale resident", report)
	}
	if len(f.rec.steps[old.ID]) == 0 {
		t.Error("selected NPC never triggered")
	}
	for _, id := range []uuid.UUID{young.ID, elsewhere.ID} {
		if len(f.rec.steps[id]) != 0 {
			t.Error("excluded NPC was triggered")
		}
	}
}

func TestMassCrisisBadCriteria(t *testing.T) {
	f := newFixture(t)
	f.seedNPC(t, npc.Tier1, "vale", 30)

	_, err := f.coord.TriggerMassCrisisEvent(context.Background(), npc.CrisisWarThreat, "x", 5.0, nil, "age >>> 3")
	if npc.KindOf(err) != npc.KindInvalidState {
		t.Fatalf("err = %v, want invalid-state", err)
	}
}

func TestBulkDecayExplicitIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.seedNPC(t, npc.Tier1, "vale", 30)
	f.seedNPC(t, npc.Tier1, "vale", 30)
	missing := uuid.New()
	f.emo.fail[missing] = npc.NotFoundf("npc %s gone", missing)

	report, err := f.coord.BulkProcessEmotionalDecay(ctx, []uuid.UUID{a.ID, missing})
	if err != nil {
		t.Fatal(err)
	}
	if report.Requested != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if _, ok := report.Failures[missing]; !ok {
		t.Error("failure not reported per NPC")
	}
}

func TestBulkDecayDefaultsToWholePopulation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.seedNPC(t, npc.Tier2, "vale", 30)
	}
	report, err := f.coord.BulkProcessEmotionalDecay(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Requested != 3 || report.Succeeded != 3 {
		t.Fatalf("report = %+v", report)
	}
}

func TestHealthStatusAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hs, err := f.coord.GetSystemHealthStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hs.Status != "degraded" || len(hs.Alerts) == 0 {
		t.Errorf("empty population health = %+v, want degraded", hs)
	}

	f.seedNPC(t, npc.Tier1, "vale", 30)
	hs, err = f.coord.GetSystemHealthStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if hs.Status != "healthy" {
		t.Errorf("health = %+v, want healthy", hs)
	}
	if hs.Population != 1 || hs.ByRace["human"] != 1 {
		t.Errorf("population views = %+v", hs)
	}
}

func TestComprehensiveStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := f.seedNPC(t, npc.Tier1, "vale", 30)
	completed := &npc.CrisisResponse{
		ID:            uuid.New(),
		NpcID:         n.ID,
		Type:          npc.CrisisBanditRaids,
		Severity:      5,
		Effectiveness: 8,
		Status:        npc.CrisisCompleted,
		StartedAt:     testNow.Add(-10 * 24 * time.Hour),
		CompletedAt:   testNow.Add(-24 * time.Hour),
	}
	if err := f.store.AddCrisisResponse(ctx, completed); err != nil {
		t.Fatal(err)
	}
	if _, err := f.coord.RunDailyPass(ctx, 10); err != nil {
		t.Fatal(err)
	}

	stats, err := f.coord.GetComprehensiveStatistics(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Demographics.Population != 1 {
		t.Errorf("demographics = %+v", stats.Demographics)
	}
	if stats.Crises.CompletedInWindow != 1 || stats.Crises.AverageEffectiveness != 8 {
		t.Errorf("crisis stats = %+v", stats.Crises)
	}
	if stats.Passes.Passes != 1 {
		t.Errorf("pass stats = %+v", stats.Passes)
	}
}

func TestEconomicCrashRaisesMassCrisis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resident := f.seedNPC(t, npc.Tier1, "vale", 30)
	f.seedNPC(t, npc.Tier1, "coast", 30)
	f.eco.crashed = []string{"vale"}

	report, err := f.coord.RunDailyPass(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.EconomicCrashes) != 1 || report.EconomicCrashes[0] != "vale" {
		t.Fatalf("crashes = %v", report.EconomicCrashes)
	}
	found := false
	for _, step := range f.rec.steps[resident.ID] {
		if step == "trigger" {
			found = true
		}
	}
	if !found {
		t.Error("crashed region's resident never got a crisis trigger")
	}
}
