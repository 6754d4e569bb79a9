package npc

import (
	"time"

	"github.com/google/uuid"
)

// CrisisType enumerates the crises NPCs can respond to.
type CrisisType uint8

const (
	CrisisEconomicCollapse CrisisType = iota
	CrisisPlagueOutbreak
	CrisisWarThreat
	CrisisNaturalDisaster
	CrisisPoliticalUpheaval
	CrisisResourceShortage
	CrisisBanditRaids
	CrisisReligiousConflict
)

var crisisTypeNames = [...]string{
	"economic_collapse", "plague_outbreak", "war_threat", "natural_disaster",
	"political_upheaval", "resource_shortage", "bandit_raids",
	"religious_conflict",
}

// Name returns the snake_case crisis-type name used in storage and reports.
func (c CrisisType) Name() string {
	if int(c) < len(crisisTypeNames) {
		return crisisTypeNames[c]
	}
	return "unknown"
}

// CrisisTypes lists every crisis type in declaration order.
func CrisisTypes() []CrisisType {
	return []CrisisType{
		CrisisEconomicCollapse, CrisisPlagueOutbreak, CrisisWarThreat,
		CrisisNaturalDisaster, CrisisPoliticalUpheaval,
		CrisisResourceShortage, CrisisBanditRaids, CrisisReligiousConflict,
	}
}

// ResponseType enumerates how an NPC can respond to a crisis.
type ResponseType uint8

const (
	ResponseFleeArea ResponseType = iota
	ResponseStockpileResources
	ResponseSeekProtection
	ResponseJoinMilitia
	ResponseHelpOthers
	ResponseProfitOpportunity
	ResponseReligiousDevotion
	ResponsePanicParalysis
	ResponseAdaptLifestyle
	ResponseOrganizeCommunity
)

var responseTypeNames = [...]string{
	"flee_area", "stockpile_resources", "seek_protection", "join_militia",
	"help_others", "profit_opportunity", "religious_devotion",
	"panic_paralysis", "adapt_lifestyle", "organize_community",
}

// Name returns the snake_case response-type name used in storage and reports.
func (r ResponseType) Name() string {
	if int(r) < len(responseTypeNames) {
		return responseTypeNames[r]
	}
	return "unknown"
}

// CrisisStatus is the lifecycle of a crisis response.
// Transitions are strictly triggered -> ongoing -> completed.
type CrisisStatus uint8

const (
	CrisisTriggered CrisisStatus = iota
	CrisisOngoing
	CrisisCompleted
)

var crisisStatusNames = [...]string{"triggered", "ongoing", "completed"}

// Name returns the status name used in storage and reports.
func (s CrisisStatus) Name() string {
	if int(s) < len(crisisStatusNames) {
		return crisisStatusNames[s]
	}
	return "unknown"
}

// CrisisResponse is one NPC's response to one crisis. LastProcessedDay guards
// the weekly ongoing-stress application against double processing.
type CrisisResponse struct {
	ID    uuid.UUID  `json:"id" db:"id"`
	NpcID uuid.UUID  `json:"npc_id" db:"npc_id"`
	Type  CrisisType `json:"crisis_type" db:"crisis_type"`

	Response    ResponseType `json:"response_type" db:"response_type"`
	Description string       `json:"description" db:"description"`
	Severity    float64      `json:"severity" db:"severity"` // 1–10

	Score         float64 `json:"response_score" db:"score"`
	Effectiveness float64 `json:"effectiveness" db:"effectiveness"` // 1–10

	Status       CrisisStatus `json:"status" db:"status"`
	DurationDays int          `json:"duration_days" db:"duration_days"`

	// Immediate holds the first-order consequences applied at trigger time.
	Immediate *ImmediateResults `json:"immediate_results,omitempty" db:"-"`

	// Outcome is nil until the response completes.
	Outcome *CrisisOutcome `json:"outcome,omitempty" db:"-"`

	StartedAt        time.Time `json:"started_at" db:"started_at"`
	CompletedAt      time.Time `json:"completed_at,omitempty" db:"completed_at"`
	LastProcessedDay int       `json:"last_processed_day" db:"last_processed_day"`
}

// ImmediateResults records what choosing a response costs or yields on the
// spot: resource deltas, relationship shifts, and any goals the NPC picks up.
type ImmediateResults struct {
	ResourceChanges     map[string]float64 `json:"resource_changes,omitempty"`
	RelationshipChanges map[string]float64 `json:"relationship_changes,omitempty"`
	NewGoals            []string           `json:"new_goals,omitempty"`
}

// CrisisOutcome summarizes a completed response: what the NPC lost, gained,
// and learned.
type CrisisOutcome struct {
	Losses  []string `json:"losses"`
	Gains   []string `json:"gains"`
	Lessons []string `json:"lessons"`
}

// Active reports whether the response still needs ongoing processing.
func (c *CrisisResponse) Active() bool {
	return c.Status == CrisisTriggered || c.Status == CrisisOngoing
}

// EconomicPhase is the position of a region's economic cycle.
type EconomicPhase uint8

const (
	PhaseBoom EconomicPhase = iota
	PhaseStable
	PhaseRecession
	PhaseDepression
	PhaseRecovery
)

var economicPhaseNames = [...]string{
	"boom", "stable", "recession", "depression", "recovery",
}

// Name returns the phase name used in storage and reports.
func (p EconomicPhase) Name() string {
	if int(p) < len(economicPhaseNames) {
		return economicPhaseNames[p]
	}
	return "unknown"
}

// EconomicCycle is the per-region economic state the crisis engine consults
// when scoring resource availability.
type EconomicCycle struct {
	Region    string        `json:"region" db:"region"`
	Phase     EconomicPhase `json:"phase" db:"phase"`
	Strength  float64       `json:"strength" db:"strength"` // 0–10
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
