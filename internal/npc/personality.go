package npc

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies the direction of a personality evolution.
type ChangeType uint8

const (
	ChangeGradualDrift ChangeType = iota
	ChangeTraumaticShift
	ChangeGrowthSpurt
	ChangeCrisisHardening
	ChangeSuccessSoftening
	ChangeAgingMellowing
)

var changeTypeNames = [...]string{
	"gradual_drift", "traumatic_shift", "growth_spurt",
	"crisis_hardening", "success_softening", "aging_mellowing",
}

// Name returns the snake_case change-type name used in storage and reports.
func (c ChangeType) Name() string {
	if int(c) < len(changeTypeNames) {
		return changeTypeNames[c]
	}
	return "unknown"
}

// EventType classifies the life event that provoked an evolution.
type EventType uint8

const (
	EventMajorSuccess EventType = iota
	EventMajorFailure
	EventBetrayalEvent
	EventLossEvent
	EventTriumphEvent
	EventCrisisSurvival
	EventLeadershipRole
	EventMentorship
	EventIsolationPeriod
	EventCommunityBond
)

var eventTypeNames = [...]string{
	"major_success", "major_failure", "betrayal", "loss", "triumph",
	"crisis_survival", "leadership_role", "mentorship",
	"isolation_period", "community_bond",
}

// Name returns the snake_case event-type name used in storage and reports.
func (e EventType) Name() string {
	if int(e) < len(eventTypeNames) {
		return eventTypeNames[e]
	}
	return "unknown"
}

// AttributeChange is one attribute's before/after pair within an evolution.
type AttributeChange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Delta is the signed magnitude of the change.
func (a AttributeChange) Delta() float64 { return a.To - a.From }

// PersonalityEvolution records one accepted personality change. Changes map
// attribute name to before/after; adaptation runs from StartedAt for
// AdaptationDays and is marked complete exactly once.
type PersonalityEvolution struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	NpcID       uuid.UUID  `json:"npc_id" db:"npc_id"`
	Type        ChangeType `json:"change_type" db:"change_type"`
	Event       EventType  `json:"event_type" db:"event_type"`
	Description string     `json:"description" db:"description"`
	Severity    float64    `json:"severity" db:"severity"`

	Changes    map[string]AttributeChange `json:"changes" db:"-"`
	Magnitude  float64                    `json:"magnitude" db:"magnitude"`
	Resistance float64                    `json:"resistance" db:"resistance"`

	// Progress runs 0-100 and only ever increases while incomplete.
	Progress float64 `json:"progress" db:"progress"`

	AdaptationDays     int       `json:"adaptation_days" db:"adaptation_days"`
	AdaptationComplete bool      `json:"adaptation_complete" db:"adaptation_complete"`
	StartedAt          time.Time `json:"started_at" db:"started_at"`
	CompletedAt        time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TotalChange sums the absolute deltas across all changed attributes.
func (p *PersonalityEvolution) TotalChange() float64 {
	var total float64
	for _, c := range p.Changes {
		d := c.Delta()
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total
}

// PersonalitySnapshot is a periodic capture of an NPC's full trait profile,
// taken every snapshot interval for trend analysis.
type PersonalitySnapshot struct {
	ID      uuid.UUID    `json:"id" db:"id"`
	NpcID   uuid.UUID    `json:"npc_id" db:"npc_id"`
	Traits  TraitProfile `json:"traits" db:"-"`
	AgeDays int          `json:"age_days" db:"age_days"`
	TakenAt time.Time    `json:"taken_at" db:"taken_at"`
}

// Memory is a learned memory shaping future personality change. Distinct from
// EmotionalMemory: these carry lessons, fade by strength, and strengthen on
// recall.
type Memory struct {
	ID          uuid.UUID `json:"id" db:"id"`
	NpcID       uuid.UUID `json:"npc_id" db:"npc_id"`
	Event       EventType `json:"event_type" db:"event_type"`
	Description string    `json:"description" db:"description"`
	Lesson      string    `json:"lesson" db:"lesson"`
	Importance  float64   `json:"importance" db:"importance"` // 0–10
	Strength    float64   `json:"strength" db:"strength"`     // 0–10, fades daily
	RecallCount int       `json:"recall_count" db:"recall_count"`
	FormedAt    time.Time `json:"formed_at" db:"formed_at"`
	LastRecall  time.Time `json:"last_recall,omitempty" db:"last_recall"`
}
