package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation constants. Defaults reproduce the standard
// balance; a YAML file overrides individual fields.
type Tuning struct {
	// Emotional state engine.
	TriggerThreshold         float64 `yaml:"trigger_threshold"`
	MemoryFormationThreshold float64 `yaml:"memory_formation_threshold"`
	EmotionalDecayRate       float64 `yaml:"emotional_decay_rate"`
	BaselineRevertBase       float64 `yaml:"baseline_revert_base"`
	BaselineRevertPerDay     float64 `yaml:"baseline_revert_per_day"`
	BaselineRevertMinDays    int     `yaml:"baseline_revert_min_days"`
	MemoryFadeRate           float64 `yaml:"memory_fade_rate"`
	RecallClarityGain        float64 `yaml:"recall_clarity_gain"`

	// Personality evolution engine.
	ChangeThreshold      float64 `yaml:"change_threshold"`
	MaxAttributeChange   float64 `yaml:"max_attribute_change"`
	AdaptationBaseDays   int     `yaml:"adaptation_base_days"`
	SnapshotIntervalDays int     `yaml:"snapshot_interval_days"`
	MemoryStrengthFade   float64 `yaml:"memory_strength_fade"`
	RecallStrengthGain   float64 `yaml:"recall_strength_gain"`

	// Crisis response engine.
	CrisisFeasibilityFloor   float64 `yaml:"crisis_feasibility_floor"`
	CrisisPersonalityEvalMin float64 `yaml:"crisis_personality_eval_min"`
	CrisisIneffectiveCeiling float64 `yaml:"crisis_ineffective_ceiling"`
	EconomicCrashThreshold   float64 `yaml:"economic_crash_threshold"`

	// Tiered caches and dispatch.
	Tier1CacheCeiling  int           `yaml:"tier1_cache_ceiling"`
	Tier1EvictFraction float64       `yaml:"tier1_evict_fraction"`
	Tier2TTL           time.Duration `yaml:"tier2_ttl"`
	Tier3TTL           time.Duration `yaml:"tier3_ttl"`
	BatchSize          int           `yaml:"batch_size"`
	MaxWorkers         int           `yaml:"max_workers"`
	TaskTimeout        time.Duration `yaml:"task_timeout"`
	Tier3PerSecond     float64       `yaml:"tier3_per_second"`

	// Scheduler.
	RetryCeiling int           `yaml:"retry_ceiling"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
}

// DefaultTuning returns the standard balance constants.
func DefaultTuning() Tuning {
	return Tuning{
		TriggerThreshold:         3.0,
		MemoryFormationThreshold: 7.0,
		EmotionalDecayRate:       0.1,
		BaselineRevertBase:       0.1,
		BaselineRevertPerDay:     0.05,
		BaselineRevertMinDays:    7,
		MemoryFadeRate:           0.02,
		RecallClarityGain:        0.5,

		ChangeThreshold:      7.0,
		MaxAttributeChange:   3.0,
		AdaptationBaseDays:   30,
		SnapshotIntervalDays: 90,
		MemoryStrengthFade:   0.05,
		RecallStrengthGain:   0.5,

		CrisisFeasibilityFloor:   3.0,
		CrisisPersonalityEvalMin: 7.0,
		CrisisIneffectiveCeiling: 5.0,
		EconomicCrashThreshold:   2.0,

		Tier1CacheCeiling:  500,
		Tier1EvictFraction: 0.2,
		Tier2TTL:           time.Hour,
		Tier3TTL:           24 * time.Hour,
		BatchSize:          100,
		MaxWorkers:         4,
		TaskTimeout:        30 * time.Second,
		Tier3PerSecond:     50,

		RetryCeiling: 3,
		RetryDelay:   5 * time.Minute,
	}
}

// LoadTuning reads a YAML overlay on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) validate() error {
	if t.BatchSize < 1 {
		return fmt.Errorf("tuning: batch_size must be positive, got %d", t.BatchSize)
	}
	if t.MaxWorkers < 1 {
		return fmt.Errorf("tuning: max_workers must be positive, got %d", t.MaxWorkers)
	}
	if t.Tier1EvictFraction <= 0 || t.Tier1EvictFraction >= 1 {
		return fmt.Errorf("tuning: tier1_evict_fraction must be in (0,1), got %g", t.Tier1EvictFraction)
	}
	if t.MaxAttributeChange <= 0 {
		return fmt.Errorf("tuning: max_attribute_change must be positive, got %g", t.MaxAttributeChange)
	}
	return nil
}
