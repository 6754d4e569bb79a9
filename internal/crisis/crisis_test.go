package crisis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/economy"
	"github.com/sharronesofer/visual-dm-sub009/internal/emotion"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/personality"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// testClock is a movable clock shared by every engine under test.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advanceDays(d int) {
	c.now = c.now.Add(time.Duration(d) * 24 * time.Hour)
}

func newTestEngine(t *testing.T, seed int64) (*Engine, *store.Memory, *testClock) {
	t.Helper()
	m := store.NewMemory()
	clk := &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	tun := config.DefaultTuning()
	emo := emotion.New(m, tun, sim.NewRand(seed)).WithClock(clk.Now)
	per := personality.New(m, tun, sim.NewRand(seed)).WithClock(clk.Now)
	eco := economy.New(m, tun.EconomicCrashThreshold, sim.NewRand(seed)).WithClock(clk.Now)
	e := New(m, emo, per, eco, tun, sim.NewRand(seed)).WithClock(clk.Now)
	return e, m, clk
}

func seedNPC(t *testing.T, m *store.Memory, traits npc.TraitProfile) *npc.NPC {
	t.Helper()
	n := &npc.NPC{
		ID:     uuid.New(),
		Name:   "Bram",
		Race:   npc.RaceHuman,
		Age:    35,
		Phase:  npc.PhaseAdult,
		Region: "vale",
		Status: npc.StatusActive,
		Traits: traits,
	}
	if err := m.PutNPC(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestTriggerCreatesResponse(t *testing.T) {
	e, m, clk := newTestEngine(t, 1)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	resp, err := e.Trigger(ctx, n.ID, npc.CrisisEconomicCollapse, "the guild banks failed", 5.0)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != npc.CrisisTriggered {
		t.Errorf("status = %s, want triggered", resp.Status.Name())
	}
	if resp.DurationDays < 1 {
		t.Errorf("duration = %d days, want >= 1", resp.DurationDays)
	}
	if resp.Score <= config.DefaultTuning().CrisisFeasibilityFloor {
		t.Errorf("chosen score %g not above feasibility floor", resp.Score)
	}
	if resp.Effectiveness < 1 || resp.Effectiveness > 10 {
		t.Errorf("effectiveness out of bounds: %g", resp.Effectiveness)
	}
	if resp.Outcome != nil {
		t.Error("outcome must stay empty until completion")
	}
	if resp.Immediate == nil {
		t.Fatal("trigger must apply first-order results")
	}
	if !resp.StartedAt.Equal(clk.Now()) {
		t.Errorf("started at %v, want %v", resp.StartedAt, clk.Now())
	}

	got, err := m.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: n.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("persisted responses = %d, want 1", len(got))
	}

	// The crisis itself registers emotionally.
	trigs, err := m.ListTriggers(ctx, n.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trigs) != 1 || trigs[0].Type != npc.TriggerCrisisEvent {
		t.Errorf("emotional trigger log = %+v, want one crisis_event", trigs)
	}
}

func TestImmediateResultsByResponse(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)

	flee := e.immediateResults(npc.ResponseFleeArea, 5)
	if c := flee.ResourceChanges["coin"]; c < -500 || c > -100 {
		t.Errorf("fleeing coin change = %g, want in [-500,-100]", c)
	}
	if flee.ResourceChanges["property"] != -1 {
		t.Errorf("fleeing must forfeit property: %+v", flee.ResourceChanges)
	}

	// Militia service only pays off socially when it goes well.
	good := e.immediateResults(npc.ResponseJoinMilitia, 8)
	if good.RelationshipChanges["community_reputation"] != 2 {
		t.Errorf("effective militia service results = %+v", good)
	}
	bad := e.immediateResults(npc.ResponseJoinMilitia, 4)
	if bad.ResourceChanges["health"] >= 0 {
		t.Errorf("ineffective militia service must cost health: %+v", bad.ResourceChanges)
	}

	help := e.immediateResults(npc.ResponseHelpOthers, 5)
	if help.RelationshipChanges["community_bonds"] != 3 || help.ResourceChanges["coin"] >= 0 {
		t.Errorf("helping results = %+v / %+v", help.RelationshipChanges, help.ResourceChanges)
	}

	exploit := e.immediateResults(npc.ResponseProfitOpportunity, 8)
	if exploit.ResourceChanges["coin"] <= 0 || exploit.RelationshipChanges["moral_reputation"] != -2 {
		t.Errorf("profiteering results = %+v / %+v", exploit.ResourceChanges, exploit.RelationshipChanges)
	}

	adapt := e.immediateResults(npc.ResponseAdaptLifestyle, 7)
	if len(adapt.NewGoals) != 1 {
		t.Errorf("effective adaptation should set a goal: %+v", adapt)
	}
}

func TestTriggerMissingNPC(t *testing.T) {
	e, m, _ := newTestEngine(t, 1)
	ctx := context.Background()
	id := uuid.New()

	_, err := e.Trigger(ctx, id, npc.CrisisWarThreat, "war drums", 6.0)
	if npc.KindOf(err) != npc.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
	if got, _ := m.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: id}); len(got) != 0 {
		t.Error("failed trigger must not persist a response")
	}
}

func TestTriggerNoFeasibleResponse(t *testing.T) {
	e, m, _ := newTestEngine(t, 1)
	ctx := context.Background()
	// Zeroed traits score every candidate at zero.
	n := seedNPC(t, m, npc.TraitProfile{})

	_, err := e.Trigger(ctx, n.ID, npc.CrisisPlagueOutbreak, "fever in the quarter", 8.0)
	if npc.KindOf(err) != npc.KindThresholdNotMet {
		t.Fatalf("err = %v, want threshold-not-met", err)
	}
	if got, _ := m.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: n.ID}); len(got) != 0 {
		t.Error("infeasible trigger must not persist a response")
	}
}

func TestProcessOngoingSameDayIdempotent(t *testing.T) {
	e, m, clk := newTestEngine(t, 3)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	resp, err := e.Trigger(ctx, n.ID, npc.CrisisEconomicCollapse, "the guild banks failed", 5.0)
	if err != nil {
		t.Fatal(err)
	}
	clk.advanceDays(1)

	first, err := e.ProcessOngoing(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != npc.CrisisOngoing {
		t.Errorf("status = %s, want ongoing", first.Status.Name())
	}
	if first.LastProcessedDay != 1 {
		t.Errorf("last processed day = %d, want 1", first.LastProcessedDay)
	}
	if first.Effectiveness <= resp.Effectiveness {
		t.Errorf("effectiveness %g did not adapt upward from %g", first.Effectiveness, resp.Effectiveness)
	}

	second, err := e.ProcessOngoing(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Effectiveness != first.Effectiveness {
		t.Errorf("same-day repeat adapted again: %g -> %g", first.Effectiveness, second.Effectiveness)
	}
}

func TestProcessOngoingWeeklyStress(t *testing.T) {
	e, m, clk := newTestEngine(t, 3)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	resp, err := e.Trigger(ctx, n.ID, npc.CrisisEconomicCollapse, "the guild banks failed", 5.0)
	if err != nil {
		t.Fatal(err)
	}
	clk.advanceDays(7)

	if _, err := e.ProcessOngoing(ctx, resp.ID); err != nil {
		t.Fatal(err)
	}
	trigs, err := m.ListTriggers(ctx, n.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	var stress int
	for _, tr := range trigs {
		if tr.Type == npc.TriggerOngoingCrisisStress {
			stress++
		}
	}
	if stress != 1 {
		t.Errorf("stress triggers = %d, want 1 at the week boundary", stress)
	}
}

func TestCompletionHappensOnce(t *testing.T) {
	e, m, clk := newTestEngine(t, 5)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	resp, err := e.Trigger(ctx, n.ID, npc.CrisisNaturalDisaster, "the river broke its banks", 5.0)
	if err != nil {
		t.Fatal(err)
	}
	clk.advanceDays(resp.DurationDays + 1)

	done, err := e.ProcessOngoing(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != npc.CrisisCompleted {
		t.Fatalf("status = %s, want completed", done.Status.Name())
	}
	if done.Outcome == nil {
		t.Fatal("completed response lacks an outcome")
	}
	if done.CompletedAt.IsZero() {
		t.Error("completed at not set")
	}

	if _, err := e.ProcessOngoing(ctx, resp.ID); npc.KindOf(err) != npc.KindInvalidState {
		t.Fatalf("repeat completion err = %v, want invalid-state", err)
	}

	mems, err := m.ListEmotionalMemories(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) == 0 {
		t.Error("completion must leave an emotional memory")
	}
}

func TestOutcomeMargins(t *testing.T) {
	e, m, clk := newTestEngine(t, 1)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	completeWith := func(rt npc.ResponseType, severity, effectiveness float64) *npc.CrisisOutcome {
		t.Helper()
		c := &npc.CrisisResponse{
			ID:            uuid.New(),
			NpcID:         n.ID,
			Type:          npc.CrisisEconomicCollapse,
			Response:      rt,
			Description:   "weathering the collapse",
			Severity:      severity,
			Score:         5,
			Effectiveness: effectiveness,
			Status:        npc.CrisisTriggered,
			DurationDays:  1,
			StartedAt:     clk.Now().Add(-48 * time.Hour),
		}
		if err := m.AddCrisisResponse(ctx, c); err != nil {
			t.Fatal(err)
		}
		done, err := e.ProcessOngoing(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		return done.Outcome
	}

	strong := completeWith(npc.ResponseHelpOthers, 5, 9)
	if len(strong.Gains) == 0 || len(strong.Losses) != 0 {
		t.Errorf("wide positive margin outcome = %+v, want gains only", strong)
	}

	costly := completeWith(npc.ResponseProfitOpportunity, 5, 9)
	found := false
	for _, l := range costly.Losses {
		if l == "reputation stained by profiteering" {
			found = true
		}
	}
	if !found {
		t.Errorf("costly response outcome lacks the reputation loss: %+v", costly)
	}
}

func TestSevereIneffectiveCompletionLeavesTrauma(t *testing.T) {
	e, m, clk := newTestEngine(t, 9)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	c := &npc.CrisisResponse{
		ID:            uuid.New(),
		NpcID:         n.ID,
		Type:          npc.CrisisWarThreat,
		Response:      npc.ResponseFleeArea,
		Description:   "fleeing the advancing front",
		Severity:      9,
		Score:         4,
		Effectiveness: 2,
		Status:        npc.CrisisTriggered,
		DurationDays:  1,
		StartedAt:     clk.Now().Add(-48 * time.Hour),
	}
	if err := m.AddCrisisResponse(ctx, c); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProcessOngoing(ctx, c.ID); err != nil {
		t.Fatal(err)
	}

	mems, err := m.ListEmotionalMemories(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 {
		t.Fatalf("emotional memories = %d, want 1", len(mems))
	}
	if mems[0].Class != npc.MemoryTrauma {
		t.Errorf("memory class = %s, want trauma", mems[0].Class.Name())
	}
	if mems[0].Emotion != npc.EmotionBitter {
		t.Errorf("memory emotion = %s, want bitter", mems[0].Emotion.Name())
	}
}

func TestProcessAllOngoing(t *testing.T) {
	e, m, clk := newTestEngine(t, 11)
	ctx := context.Background()
	n := seedNPC(t, m, npc.DefaultTraits())

	if _, err := e.Trigger(ctx, n.ID, npc.CrisisEconomicCollapse, "the guild banks failed", 5.0); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Trigger(ctx, n.ID, npc.CrisisBanditRaids, "riders on the east road", 4.0); err != nil {
		t.Fatal(err)
	}
	clk.advanceDays(1)

	processed, err := e.ProcessAllOngoing(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 2 {
		t.Errorf("processed = %d, want 2", processed)
	}
	active, _ := m.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: n.ID, ActiveOnly: true})
	for _, c := range active {
		if c.Status != npc.CrisisOngoing {
			t.Errorf("%s still %s after the daily pass", c.Type.Name(), c.Status.Name())
		}
	}
}
