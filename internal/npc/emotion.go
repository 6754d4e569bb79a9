package npc

import (
	"time"

	"github.com/google/uuid"
)

// Emotion is the discrete emotional state an NPC occupies.
type Emotion uint8

const (
	EmotionNeutral Emotion = iota
	EmotionJoyful
	EmotionContent
	EmotionExcited
	EmotionConfident
	EmotionDetermined
	EmotionHopeful
	EmotionAnxious
	EmotionFearful
	EmotionAngry
	EmotionBitter
	EmotionDepressed
	EmotionMelancholy
	EmotionGriefStricken
	EmotionLoveStruck
)

var emotionNames = [...]string{
	"neutral", "joyful", "content", "excited", "confident",
	"determined", "hopeful", "anxious", "fearful", "angry",
	"bitter", "depressed", "melancholy", "grief_stricken", "love_struck",
}

// Name returns the snake_case emotion name used in storage and reports.
func (e Emotion) Name() string {
	if int(e) < len(emotionNames) {
		return emotionNames[e]
	}
	return "unknown"
}

// TriggerType classifies the event that caused an emotional trigger.
type TriggerType uint8

const (
	TriggerGoalSuccess TriggerType = iota
	TriggerGoalFailure
	TriggerRelationshipChange
	TriggerBetrayal
	TriggerLossOfLovedOne
	TriggerPhysicalDanger
	TriggerSocialTriumph
	TriggerSocialHumiliation
	TriggerEconomicChange
	TriggerPoliticalEvent
	TriggerLoyaltyReward
	TriggerSeasonalChange
	TriggerHealthChange
	TriggerCrisisEvent
	TriggerOngoingCrisisStress
)

var triggerNames = [...]string{
	"goal_success", "goal_failure", "relationship_change", "betrayal",
	"loss_of_loved_one", "physical_danger", "social_triumph",
	"social_humiliation", "economic_change", "political_event",
	"loyalty_reward", "seasonal_change", "health_change",
	"crisis_event", "ongoing_crisis_stress",
}

// Name returns the snake_case trigger-type name used in storage and reports.
func (t TriggerType) Name() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return "unknown"
}

// Dimension identifies one of the six continuous mood axes, all in [-10,10].
type Dimension uint8

const (
	DimHappiness Dimension = iota
	DimEnergy
	DimStress
	DimConfidence
	DimSociability
	DimOptimism
)

var dimensionNames = [...]string{
	"happiness", "energy", "stress", "confidence", "sociability", "optimism",
}

// Name returns the dimension name used in reports.
func (d Dimension) Name() string {
	if int(d) < len(dimensionNames) {
		return dimensionNames[d]
	}
	return "unknown"
}

// Dimensions lists every mood dimension in declaration order.
func Dimensions() []Dimension {
	return []Dimension{
		DimHappiness, DimEnergy, DimStress,
		DimConfidence, DimSociability, DimOptimism,
	}
}

// EmotionalState is the per-NPC mood record. Created lazily on first access,
// decayed daily toward its baseline, never deleted.
type EmotionalState struct {
	NpcID uuid.UUID `json:"npc_id" db:"npc_id"`

	Current   Emotion `json:"current_emotion" db:"current_emotion"`
	Intensity float64 `json:"emotion_intensity" db:"emotion_intensity"` // 0–10
	Stability float64 `json:"emotion_stability" db:"emotion_stability"` // 0–10

	Happiness   float64 `json:"happiness" db:"happiness"`
	Energy      float64 `json:"energy" db:"energy"`
	Stress      float64 `json:"stress" db:"stress"`
	Confidence  float64 `json:"confidence" db:"confidence"`
	Sociability float64 `json:"sociability" db:"sociability"`
	Optimism    float64 `json:"optimism" db:"optimism"`

	Volatility         float64 `json:"emotional_volatility" db:"volatility"`
	RecoveryRate       float64 `json:"recovery_rate" db:"recovery_rate"`
	WeatherSensitivity float64 `json:"weather_sensitivity" db:"weather_sensitivity"`
	StressTolerance    float64 `json:"stress_tolerance" db:"stress_tolerance"`

	Baseline    Emotion   `json:"baseline_emotion" db:"baseline_emotion"`
	DaysInState int       `json:"days_in_current_state" db:"days_in_state"`
	LastEvent   time.Time `json:"last_major_event,omitempty" db:"last_event"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// Dim reads one mood dimension.
func (s *EmotionalState) Dim(d Dimension) float64 {
	switch d {
	case DimHappiness:
		return s.Happiness
	case DimEnergy:
		return s.Energy
	case DimStress:
		return s.Stress
	case DimConfidence:
		return s.Confidence
	case DimSociability:
		return s.Sociability
	case DimOptimism:
		return s.Optimism
	}
	return 0
}

// SetDim writes one mood dimension. Callers clamp; the setter stays dumb.
func (s *EmotionalState) SetDim(d Dimension, v float64) {
	switch d {
	case DimHappiness:
		s.Happiness = v
	case DimEnergy:
		s.Energy = v
	case DimStress:
		s.Stress = v
	case DimConfidence:
		s.Confidence = v
	case DimSociability:
		s.Sociability = v
	case DimOptimism:
		s.Optimism = v
	}
}

// EmotionalTrigger is the append-only log entry recorded whenever a trigger
// changes an NPC's emotion. Immutable once created.
type EmotionalTrigger struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	NpcID       uuid.UUID   `json:"npc_id" db:"npc_id"`
	Type        TriggerType `json:"trigger_type" db:"trigger_type"`
	Description string      `json:"description" db:"description"`
	Severity    float64     `json:"severity" db:"severity"`

	PreviousEmotion  Emotion `json:"previous_emotion" db:"previous_emotion"`
	ResultingEmotion Emotion `json:"resulting_emotion" db:"resulting_emotion"`
	ChangeMagnitude  float64 `json:"change_magnitude" db:"change_magnitude"`

	ExpectedDurationDays int       `json:"expected_duration_days" db:"expected_days"`
	OccurredAt           time.Time `json:"occurred_at" db:"occurred_at"`
}

// MemoryClass categorizes an emotional memory by the nature of its source event.
type MemoryClass uint8

const (
	MemorySignificant MemoryClass = iota
	MemoryTrauma
	MemoryTriumph
	MemoryJoy
)

var memoryClassNames = [...]string{"significant_event", "trauma", "triumph", "joy"}

// Name returns the memory-class name used in storage and reports.
func (m MemoryClass) Name() string {
	if int(m) < len(memoryClassNames) {
		return memoryClassNames[m]
	}
	return "unknown"
}

// EmotionalMemory forms only when a trigger's severity exceeds the
// memory-formation threshold. Clarity fades daily and only recall raises it.
type EmotionalMemory struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	NpcID       uuid.UUID   `json:"npc_id" db:"npc_id"`
	Class       MemoryClass `json:"class" db:"class"`
	Description string      `json:"description" db:"description"`
	Emotion     Emotion     `json:"emotion" db:"emotion"`
	Intensity   float64     `json:"intensity" db:"intensity"`
	Clarity     float64     `json:"clarity" db:"clarity"`
	Charge      float64     `json:"emotional_charge" db:"charge"`
	RecallCount int         `json:"recall_count" db:"recall_count"`
	OccurredAt  time.Time   `json:"occurred_at" db:"occurred_at"`
}

// Weather enumerates the environmental conditions with mood effects.
type Weather uint8

const (
	WeatherSunny Weather = iota
	WeatherRainy
	WeatherStormy
	WeatherFoggy
	WeatherSnow
)

var weatherNames = [...]string{"sunny", "rainy", "stormy", "foggy", "snow"}

// Name returns the weather name used in storage and reports.
func (w Weather) Name() string {
	if int(w) < len(weatherNames) {
		return weatherNames[w]
	}
	return "unknown"
}

// Weathers lists every weather condition in declaration order.
func Weathers() []Weather {
	return []Weather{WeatherSunny, WeatherRainy, WeatherStormy, WeatherFoggy, WeatherSnow}
}

// EmotionalInfluence records a temporary environmental effect on a state.
type EmotionalInfluence struct {
	ID           uuid.UUID `json:"id" db:"id"`
	NpcID        uuid.UUID `json:"npc_id" db:"npc_id"`
	Source       string    `json:"source" db:"source"`
	Description  string    `json:"description" db:"description"`
	Strength     float64   `json:"strength" db:"strength"`
	DurationDays int       `json:"duration_days" db:"duration_days"`
	AppliedAt    time.Time `json:"applied_at" db:"applied_at"`
}
