// Package store defines the persistence interfaces for the simulation and an
// in-memory implementation used by tests and ephemeral runs.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

// NPCFilter narrows ListNPCs. Zero values match everything.
type NPCFilter struct {
	Region     string
	Race       *npc.Race
	Status     *npc.Status
	AgeAtLeast int
	Limit      int
}

// CrisisFilter narrows ListCrisisResponses.
type CrisisFilter struct {
	NpcID      uuid.UUID
	ActiveOnly bool
	Limit      int
}

// NPCStore manages the population roster.
type NPCStore interface {
	GetNPC(ctx context.Context, id uuid.UUID) (*npc.NPC, error)
	PutNPC(ctx context.Context, n *npc.NPC) error
	ListNPCs(ctx context.Context, f NPCFilter) ([]*npc.NPC, error)
	CountNPCs(ctx context.Context, f NPCFilter) (int, error)
}

// TierStore persists per-NPC tier assignments.
type TierStore interface {
	GetTierStatus(ctx context.Context, npcID uuid.UUID) (*npc.TierStatus, error)
	PutTierStatus(ctx context.Context, ts *npc.TierStatus) error
	CountByTier(ctx context.Context) (map[npc.Tier]int, error)
}

// EmotionStore persists emotional states, trigger logs, memories, and
// environmental influences.
type EmotionStore interface {
	GetEmotionalState(ctx context.Context, npcID uuid.UUID) (*npc.EmotionalState, error)
	PutEmotionalState(ctx context.Context, s *npc.EmotionalState) error
	AddTrigger(ctx context.Context, t *npc.EmotionalTrigger) error
	ListTriggers(ctx context.Context, npcID uuid.UUID, limit int) ([]*npc.EmotionalTrigger, error)
	AddEmotionalMemory(ctx context.Context, m *npc.EmotionalMemory) error
	PutEmotionalMemory(ctx context.Context, m *npc.EmotionalMemory) error
	ListEmotionalMemories(ctx context.Context, npcID uuid.UUID) ([]*npc.EmotionalMemory, error)
	AddInfluence(ctx context.Context, in *npc.EmotionalInfluence) error
	ListInfluences(ctx context.Context, npcID uuid.UUID) ([]*npc.EmotionalInfluence, error)
}

// PersonalityStore persists evolutions, snapshots, and learned memories.
type PersonalityStore interface {
	AddEvolution(ctx context.Context, ev *npc.PersonalityEvolution) error
	PutEvolution(ctx context.Context, ev *npc.PersonalityEvolution) error
	ListEvolutions(ctx context.Context, npcID uuid.UUID) ([]*npc.PersonalityEvolution, error)
	AddSnapshot(ctx context.Context, s *npc.PersonalitySnapshot) error
	LatestSnapshot(ctx context.Context, npcID uuid.UUID) (*npc.PersonalitySnapshot, error)
	AddMemory(ctx context.Context, m *npc.Memory) error
	PutMemory(ctx context.Context, m *npc.Memory) error
	ListMemories(ctx context.Context, npcID uuid.UUID) ([]*npc.Memory, error)
}

// CrisisStore persists crisis responses.
type CrisisStore interface {
	GetCrisisResponse(ctx context.Context, id uuid.UUID) (*npc.CrisisResponse, error)
	AddCrisisResponse(ctx context.Context, c *npc.CrisisResponse) error
	PutCrisisResponse(ctx context.Context, c *npc.CrisisResponse) error
	ListCrisisResponses(ctx context.Context, f CrisisFilter) ([]*npc.CrisisResponse, error)
}

// EconomyStore persists regional economic cycles.
type EconomyStore interface {
	GetEconomicCycle(ctx context.Context, region string) (*npc.EconomicCycle, error)
	PutEconomicCycle(ctx context.Context, c *npc.EconomicCycle) error
	ListEconomicCycles(ctx context.Context) ([]*npc.EconomicCycle, error)
}

// Store is the full persistence surface.
type Store interface {
	NPCStore
	TierStore
	EmotionStore
	PersonalityStore
	CrisisStore
	EconomyStore
}

func matchNPC(n *npc.NPC, f NPCFilter) bool {
	if f.Region != "" && n.Region != f.Region {
		return false
	}
	if f.Race != nil && n.Race != *f.Race {
		return false
	}
	if f.Status != nil && n.Status != *f.Status {
		return false
	}
	if f.AgeAtLeast > 0 && n.Age < f.AgeAtLeast {
		return false
	}
	return true
}
