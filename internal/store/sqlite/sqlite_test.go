package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNPCRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	n := &npc.NPC{
		ID:              uuid.New(),
		Name:            "Mira Thornfield",
		Race:            npc.RaceElf,
		Age:             112,
		Phase:           npc.PhaseAdult,
		Region:          "westmarch",
		Status:          npc.StatusActive,
		Traits:          npc.DefaultTraits(),
		LastInteraction: time.Now().Truncate(time.Millisecond),
	}
	n.Traits.Resilience = 7.5

	if err := db.PutNPC(ctx, n); err != nil {
		t.Fatalf("PutNPC: %v", err)
	}
	got, err := db.GetNPC(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNPC: %v", err)
	}
	if got.Name != n.Name || got.Race != n.Race || got.Region != n.Region {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
	if got.Traits.Resilience != 7.5 {
		t.Errorf("traits resilience = %g, want 7.5", got.Traits.Resilience)
	}
	if !got.LastInteraction.Equal(n.LastInteraction) {
		t.Errorf("last interaction = %v, want %v", got.LastInteraction, n.LastInteraction)
	}
}

func TestGetNPCNotFound(t *testing.T) {
	db := openTest(t)
	_, err := db.GetNPC(context.Background(), uuid.New())
	if npc.KindOf(err) != npc.KindNotFound {
		t.Errorf("kind = %v, want not_found (err: %v)", npc.KindOf(err), err)
	}
}

func TestListNPCsFilter(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	regions := []string{"north", "north", "south"}
	for _, region := range regions {
		n := &npc.NPC{
			ID:     uuid.New(),
			Name:   "villager",
			Race:   npc.RaceHuman,
			Age:    30,
			Phase:  npc.PhaseAdult,
			Region: region,
			Status: npc.StatusActive,
			Traits: npc.DefaultTraits(),
		}
		if err := db.PutNPC(ctx, n); err != nil {
			t.Fatal(err)
		}
	}

	north, err := db.ListNPCs(ctx, store.NPCFilter{Region: "north"})
	if err != nil {
		t.Fatal(err)
	}
	if len(north) != 2 {
		t.Errorf("north count = %d, want 2", len(north))
	}
	count, err := db.CountNPCs(ctx, store.NPCFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("total count = %d, want 3", count)
	}
}

func TestEmotionalStateRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	id := uuid.New()
	s := &npc.EmotionalState{
		NpcID:        id,
		Current:      npc.EmotionAnxious,
		Intensity:    6.2,
		Stability:    4.0,
		Happiness:    -2.5,
		Stress:       7.1,
		RecoveryRate: 5.0,
		Baseline:     npc.EmotionNeutral,
		DaysInState:  3,
		LastUpdated:  time.Now(),
	}
	if err := db.PutEmotionalState(ctx, s); err != nil {
		t.Fatalf("PutEmotionalState: %v", err)
	}
	got, err := db.GetEmotionalState(ctx, id)
	if err != nil {
		t.Fatalf("GetEmotionalState: %v", err)
	}
	if got.Current != npc.EmotionAnxious || got.Stress != 7.1 || got.DaysInState != 3 {
		t.Errorf("roundtrip mismatch: got %+v", got)
	}
}

func TestEvolutionChangesSurviveRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	ev := &npc.PersonalityEvolution{
		ID:    uuid.New(),
		NpcID: uuid.New(),
		Type:  npc.ChangeTraumaticShift,
		Event: npc.EventBetrayalEvent,
		Changes: map[string]npc.AttributeChange{
			"integrity":  {From: 5.0, To: 3.5},
			"resilience": {From: 5.0, To: 6.0},
		},
		Resistance:     1.2,
		AdaptationDays: 60,
		StartedAt:      time.Now(),
	}
	if err := db.AddEvolution(ctx, ev); err != nil {
		t.Fatalf("AddEvolution: %v", err)
	}
	list, err := db.ListEvolutions(ctx, ev.NpcID)
	if err != nil {
		t.Fatalf("ListEvolutions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("evolutions = %d, want 1", len(list))
	}
	got := list[0]
	if got.Changes["integrity"].To != 3.5 {
		t.Errorf("integrity change = %+v", got.Changes["integrity"])
	}
	if got.AdaptationComplete {
		t.Error("adaptation should start incomplete")
	}

	got.AdaptationComplete = true
	got.CompletedAt = time.Now()
	if err := db.PutEvolution(ctx, got); err != nil {
		t.Fatalf("PutEvolution: %v", err)
	}
	list, _ = db.ListEvolutions(ctx, ev.NpcID)
	if !list[0].AdaptationComplete {
		t.Error("completion flag did not persist")
	}
}

func TestCrisisResponseFilter(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	npcID := uuid.New()
	statuses := []npc.CrisisStatus{npc.CrisisTriggered, npc.CrisisOngoing, npc.CrisisCompleted}
	for i, st := range statuses {
		c := &npc.CrisisResponse{
			ID:        uuid.New(),
			NpcID:     npcID,
			Type:      npc.CrisisPlagueOutbreak,
			Response:  npc.ResponseHelpOthers,
			Severity:  6,
			Status:    st,
			StartedAt: time.Now().Add(time.Duration(i) * time.Minute),
			Immediate: &npc.ImmediateResults{
				ResourceChanges:     map[string]float64{"coin": -350},
				RelationshipChanges: map[string]float64{"community_bonds": 3},
			},
		}
		if err := db.AddCrisisResponse(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	active, err := db.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: npcID, ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Errorf("active responses = %d, want 2", len(active))
	}
	all, err := db.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: npcID})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all responses = %d, want 3", len(all))
	}
	if all[0].Immediate == nil || all[0].Immediate.ResourceChanges["coin"] != -350 {
		t.Errorf("immediate results did not round-trip: %+v", all[0].Immediate)
	}
}

func TestLatestSnapshot(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	npcID := uuid.New()
	base := time.Now()
	for i := 0; i < 3; i++ {
		s := &npc.PersonalitySnapshot{
			ID:      uuid.New(),
			NpcID:   npcID,
			Traits:  npc.DefaultTraits(),
			AgeDays: 100 * (i + 1),
			TakenAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.AddSnapshot(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	latest, err := db.LatestSnapshot(ctx, npcID)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.AgeDays != 300 {
		t.Errorf("latest age days = %d, want 300", latest.AgeDays)
	}
}

func TestCountByTier(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	tiers := []npc.Tier{npc.Tier1, npc.Tier2, npc.Tier2, npc.Tier4}
	for _, tier := range tiers {
		ts := &npc.TierStatus{
			NpcID:        uuid.New(),
			CurrentTier:  tier,
			DetailLevel:  tier.DetailLevel(),
			LastReviewed: time.Now(),
		}
		if err := db.PutTierStatus(ctx, ts); err != nil {
			t.Fatal(err)
		}
	}
	counts, err := db.CountByTier(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[npc.Tier2] != 2 || counts[npc.Tier1] != 1 || counts[npc.Tier4] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
