// Package npc provides the NPC data model shared by every simulation engine:
// the population record, trait profile, tier assignment, and the enumerated
// emotional/crisis/personality state that evolves over calendar time.
package npc

import (
	"time"

	"github.com/google/uuid"
)

// Race determines demographic defaults (lifespans, tier tables, birth/death rates).
type Race uint8

const (
	RaceHuman Race = iota
	RaceElf
	RaceDwarf
	RaceOrc
	RaceHalfling
)

var raceNames = [...]string{"human", "elf", "dwarf", "orc", "halfling"}

// Name returns the lowercase race name used in storage and reports.
func (r Race) Name() string {
	if int(r) < len(raceNames) {
		return raceNames[r]
	}
	return "unknown"
}

// Races lists every race in declaration order.
func Races() []Race {
	return []Race{RaceHuman, RaceElf, RaceDwarf, RaceOrc, RaceHalfling}
}

// LifecyclePhase is the coarse age bracket an NPC occupies.
type LifecyclePhase uint8

const (
	PhaseInfant LifecyclePhase = iota
	PhaseChild
	PhaseAdolescent
	PhaseYoungAdult
	PhaseAdult
	PhaseMiddleAged
	PhaseElder
	PhaseAncient
)

var phaseNames = [...]string{
	"infant", "child", "adolescent", "young_adult",
	"adult", "middle_aged", "elder", "ancient",
}

// Name returns the snake_case phase name used in storage and reports.
func (p LifecyclePhase) Name() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Phases lists every lifecycle phase in age order.
func Phases() []LifecyclePhase {
	return []LifecyclePhase{
		PhaseInfant, PhaseChild, PhaseAdolescent, PhaseYoungAdult,
		PhaseAdult, PhaseMiddleAged, PhaseElder, PhaseAncient,
	}
}

// Status marks whether an NPC participates in simulation passes.
type Status uint8

const (
	StatusActive Status = iota
	StatusDeceased
	StatusDeparted
)

// NPC is the population record owned by the record store. Engines read it;
// only lifecycle processing and completed personality evolutions mutate it.
type NPC struct {
	ID     uuid.UUID      `json:"id" db:"id"`
	Name   string         `json:"name" db:"name"`
	Race   Race           `json:"race" db:"race"`
	Age    int            `json:"age" db:"age"`
	Phase  LifecyclePhase `json:"lifecycle_phase" db:"lifecycle_phase"`
	Region string         `json:"region" db:"region"`
	Status Status         `json:"status" db:"status"`

	Traits TraitProfile `json:"traits" db:"-"`

	// LastInteraction drives activity-based tier promotion. Zero means the
	// NPC has never been interacted with.
	LastInteraction time.Time `json:"last_interaction,omitempty" db:"last_interaction"`
}

// Alive reports whether the NPC still participates in simulation passes.
func (n *NPC) Alive() bool {
	return n.Status == StatusActive
}

// Tier is the simulation fidelity bucket: 1 fully detailed, 4 statistical-only.
type Tier uint8

const (
	Tier1 Tier = 1 // Fully detailed, interactive-relevant
	Tier2 Tier = 2 // Background, reduced systems
	Tier3 Tier = 3 // Dormant, minimal per-NPC work
	Tier4 Tier = 4 // Statistical aggregate only
)

// DetailLevel names the processing depth a tier receives.
func (t Tier) DetailLevel() string {
	switch t {
	case Tier1:
		return "full"
	case Tier2:
		return "partial"
	case Tier3:
		return "minimal"
	default:
		return "statistical"
	}
}

// TierStatus is the single active tier assignment per NPC. Only the tier
// classifier writes it; engines treat it as read-only.
type TierStatus struct {
	NpcID        uuid.UUID `json:"npc_id" db:"npc_id"`
	CurrentTier  Tier      `json:"current_tier" db:"current_tier"`
	DetailLevel  string    `json:"simulation_detail_level" db:"detail_level"`
	LastReviewed time.Time `json:"last_reviewed" db:"last_reviewed"`
}
