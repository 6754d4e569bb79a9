package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

func TestMemoryNPCIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	n := &npc.NPC{
		ID:     uuid.New(),
		Name:   "Garrick",
		Race:   npc.RaceDwarf,
		Age:    80,
		Region: "ironhold",
		Status: npc.StatusActive,
		Traits: npc.DefaultTraits(),
	}
	if err := m.PutNPC(ctx, n); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetNPC(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Mutating the returned copy must not leak into the store.
	got.Traits.Ambition = 9.9
	again, _ := m.GetNPC(ctx, n.ID)
	if again.Traits.Ambition == 9.9 {
		t.Error("store shares pointers with callers")
	}
}

func TestMemoryNotFoundKinds(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id := uuid.New()

	if _, err := m.GetNPC(ctx, id); npc.KindOf(err) != npc.KindNotFound {
		t.Errorf("GetNPC kind = %v", npc.KindOf(err))
	}
	if _, err := m.GetEmotionalState(ctx, id); npc.KindOf(err) != npc.KindNotFound {
		t.Errorf("GetEmotionalState kind = %v", npc.KindOf(err))
	}
	if _, err := m.GetCrisisResponse(ctx, id); npc.KindOf(err) != npc.KindNotFound {
		t.Errorf("GetCrisisResponse kind = %v", npc.KindOf(err))
	}
}

func TestMemoryTriggerOrderNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	npcID := uuid.New()

	for i := 0; i < 3; i++ {
		tr := &npc.EmotionalTrigger{
			ID:         uuid.New(),
			NpcID:      npcID,
			Type:       npc.TriggerGoalSuccess,
			Severity:   float64(i + 1),
			OccurredAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := m.AddTrigger(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	list, err := m.ListTriggers(ctx, npcID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("triggers = %d, want 2", len(list))
	}
	if list[0].Severity != 3 {
		t.Errorf("first severity = %g, want newest (3)", list[0].Severity)
	}
}

func TestMemoryEvolutionChangesCopied(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ev := &npc.PersonalityEvolution{
		ID:      uuid.New(),
		NpcID:   uuid.New(),
		Changes: map[string]npc.AttributeChange{"discipline": {From: 5, To: 6}},
	}
	if err := m.AddEvolution(ctx, ev); err != nil {
		t.Fatal(err)
	}
	ev.Changes["discipline"] = npc.AttributeChange{From: 0, To: 0}

	list, _ := m.ListEvolutions(ctx, ev.NpcID)
	if list[0].Changes["discipline"].To != 6 {
		t.Error("changes map shared with caller")
	}
}
