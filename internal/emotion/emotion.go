// Package emotion implements the per-NPC emotional state engine: mood
// vectors, trigger processing, daily decay toward baseline, environmental
// effects, and emotional memory formation.
package emotion

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// Engine owns all emotional-state mutation. Per-NPC operations are
// serialized through a keyed mutex so trigger processing never interleaves.
type Engine struct {
	store store.Store
	tun   config.Tuning
	locks *sim.KeyedMutex

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns an emotion engine.
func New(st store.Store, tun config.Tuning, rng *rand.Rand) *Engine {
	return &Engine{
		store: st,
		tun:   tun,
		locks: sim.NewKeyedMutex(),
		rng:   rng,
		now:   time.Now,
	}
}

// WithClock overrides the engine clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) roll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func clampDim(v float64) float64 { return sim.Clamp(v, -10, 10) }

// GetOrCreate returns the NPC's emotional state, lazily initializing it from
// the trait profile on first access.
func (e *Engine) GetOrCreate(ctx context.Context, npcID uuid.UUID) (*npc.EmotionalState, error) {
	s, err := e.store.GetEmotionalState(ctx, npcID)
	if err == nil {
		return s, nil
	}
	if npc.KindOf(err) != npc.KindNotFound {
		return nil, err
	}

	n, err := e.store.GetNPC(ctx, npcID)
	if err != nil {
		return nil, err
	}
	s = stateFromTraits(n)
	s.LastUpdated = e.now()
	if err := e.store.PutEmotionalState(ctx, s); err != nil {
		return nil, fmt.Errorf("persist initial state: %w", err)
	}
	slog.Debug("emotional state initialized", "npc", npcID, "baseline", s.Baseline.Name())
	return s, nil
}

// stateFromTraits maps the trait profile onto baseline dimensions with a
// fixed linear formula centered on the trait midpoint of 5.
func stateFromTraits(n *npc.NPC) *npc.EmotionalState {
	t := n.Traits
	s := &npc.EmotionalState{
		NpcID:              n.ID,
		Current:            npc.EmotionNeutral,
		Baseline:           npc.EmotionNeutral,
		Intensity:          3,
		Happiness:          clampDim((t.Resilience - 5) * 0.8),
		Energy:             clampDim((t.Ambition-5)*0.6 + (t.Impulsivity-5)*0.4),
		Stress:             clampDim((5-t.Discipline)*0.5 + (t.Impulsivity-5)*0.3),
		Confidence:         clampDim((t.Resilience-5)*0.5 + (t.Ambition-5)*0.5),
		Sociability:        clampDim((t.Integrity-5)*0.3 + (t.Resilience-5)*0.3),
		Optimism:           clampDim((t.Resilience-5)*0.4 + (t.Ambition-5)*0.3),
		Volatility:         sim.Clamp(t.Impulsivity, 0, 10),
		RecoveryRate:       sim.Clamp(t.Resilience, 0, 10),
		WeatherSensitivity: sim.Clamp(10-t.Pragmatism, 0, 10),
		StressTolerance:    sim.Clamp(t.Discipline, 0, 10),
	}
	s.Stability = sim.Clamp((t.Discipline+t.Resilience)/2, 0, 10)
	return s
}

// TriggerResult reports what a trigger did to an NPC.
type TriggerResult struct {
	Changed         bool        `json:"changed"`
	PreviousEmotion npc.Emotion `json:"previous_emotion"`
	NewEmotion      npc.Emotion `json:"new_emotion"`
	Magnitude       float64     `json:"magnitude"`
	MemoryFormed    bool        `json:"memory_formed"`
}

// ProcessTrigger applies one emotional trigger. Severity below the trigger
// threshold is a no-op: no state change and no trigger record. Otherwise the
// best-fitting candidate emotion wins a compatibility score, dimensions shift
// by the trigger's severity-scaled delta table, and a sufficiently severe
// trigger forms an emotional memory.
func (e *Engine) ProcessTrigger(ctx context.Context, npcID uuid.UUID, typ npc.TriggerType, description string, severity float64) (*TriggerResult, error) {
	key := npcID.String()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	if severity < e.tun.TriggerThreshold {
		return &TriggerResult{Changed: false}, nil
	}

	s, err := e.GetOrCreate(ctx, npcID)
	if err != nil {
		return nil, err
	}

	candidates, ok := triggerCandidates[typ]
	if !ok {
		return nil, npc.InvalidStatef("no emotion candidates for trigger %q", typ.Name())
	}
	next := e.selectEmotion(s, candidates)
	prev := s.Current

	scale := severity / 10
	triggerDeltas[typ].apply(s, scale, clampDim)

	magnitude := severity
	if next != prev {
		s.Current = next
		s.DaysInState = 0
	} else {
		magnitude = severity * 0.5
	}
	s.Intensity = sim.Clamp((s.Intensity+severity)/2+severity/5, 0, 10)
	s.LastEvent = e.now()
	s.LastUpdated = e.now()

	if err := e.store.PutEmotionalState(ctx, s); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	rec := &npc.EmotionalTrigger{
		ID:                   uuid.New(),
		NpcID:                npcID,
		Type:                 typ,
		Description:          description,
		Severity:             severity,
		PreviousEmotion:      prev,
		ResultingEmotion:     next,
		ChangeMagnitude:      magnitude,
		ExpectedDurationDays: 1 + int(severity),
		OccurredAt:           e.now(),
	}
	if err := e.store.AddTrigger(ctx, rec); err != nil {
		return nil, fmt.Errorf("record trigger: %w", err)
	}

	memoryFormed := false
	if severity >= e.tun.MemoryFormationThreshold {
		mem := &npc.EmotionalMemory{
			ID:          uuid.New(),
			NpcID:       npcID,
			Class:       memoryClassFor(typ),
			Description: description,
			Emotion:     next,
			Intensity:   severity,
			Clarity:     10,
			Charge:      sim.Clamp(severity, 0, 10),
			OccurredAt:  e.now(),
		}
		if err := e.store.AddEmotionalMemory(ctx, mem); err != nil {
			return nil, fmt.Errorf("form memory: %w", err)
		}
		memoryFormed = true
	}

	slog.Debug("trigger processed",
		"npc", npcID, "trigger", typ.Name(), "severity", severity,
		"emotion", next.Name(), "memory", memoryFormed)

	return &TriggerResult{
		Changed:         true,
		PreviousEmotion: prev,
		NewEmotion:      next,
		Magnitude:       magnitude,
		MemoryFormed:    memoryFormed,
	}, nil
}

// selectEmotion scores each candidate by how closely the NPC's dimensions
// match the emotion's typical profile, penalizing change away from the
// current emotion in proportion to stability.
func (e *Engine) selectEmotion(s *npc.EmotionalState, candidates []npc.Emotion) npc.Emotion {
	current := [6]float64{s.Happiness, s.Energy, s.Stress, s.Confidence, s.Sociability, s.Optimism}
	best := candidates[0]
	bestScore := math.Inf(-1)
	for _, cand := range candidates {
		profile := emotionProfiles[cand].values()
		var score float64
		for i := range profile {
			score += (20 - math.Abs(current[i]-profile[i])) / 20
		}
		score /= 6
		if cand != s.Current {
			score -= s.Stability / 20
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// ProcessDailyDecay advances one simulated day: every dimension shrinks
// toward zero by decay_rate scaled by recovery, emotional memories lose
// clarity, and a stay-length-weighted coin flip reverts the NPC to its
// baseline emotion.
func (e *Engine) ProcessDailyDecay(ctx context.Context, npcID uuid.UUID) error {
	key := npcID.String()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	s, err := e.GetOrCreate(ctx, npcID)
	if err != nil {
		return err
	}

	s.DaysInState++
	factor := e.tun.EmotionalDecayRate * (s.RecoveryRate / 10)
	for _, d := range npc.Dimensions() {
		v := s.Dim(d)
		s.SetDim(d, v-v*factor)
	}
	s.Intensity = sim.Clamp(s.Intensity-s.Intensity*factor, 0, 10)

	if s.Current != s.Baseline && s.DaysInState >= e.tun.BaselineRevertMinDays {
		p := (e.tun.BaselineRevertBase + float64(s.DaysInState)*e.tun.BaselineRevertPerDay) * (s.RecoveryRate / 10)
		if e.roll() < sim.Clamp(p, 0, 1) {
			slog.Debug("emotion reverted to baseline",
				"npc", npcID, "from", s.Current.Name(), "days", s.DaysInState)
			s.Current = s.Baseline
			s.DaysInState = 0
			s.Intensity = sim.Clamp(s.Intensity*0.5, 0, 10)
		}
	}

	s.LastUpdated = e.now()
	if err := e.store.PutEmotionalState(ctx, s); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	return e.fadeMemories(ctx, npcID)
}

// fadeMemories lowers clarity on every emotional memory. Clarity never
// increases here; recall is the only path up.
func (e *Engine) fadeMemories(ctx context.Context, npcID uuid.UUID) error {
	mems, err := e.store.ListEmotionalMemories(ctx, npcID)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}
	for _, m := range mems {
		if m.Clarity <= 0 {
			continue
		}
		m.Clarity = sim.Clamp(m.Clarity-e.tun.MemoryFadeRate, 0, 10)
		if err := e.store.PutEmotionalMemory(ctx, m); err != nil {
			return fmt.Errorf("fade memory %s: %w", m.ID, err)
		}
	}
	return nil
}

// RecallMemory strengthens a memory's clarity with diminishing returns and
// bumps its recall count.
func (e *Engine) RecallMemory(ctx context.Context, npcID, memoryID uuid.UUID) (*npc.EmotionalMemory, error) {
	mems, err := e.store.ListEmotionalMemories(ctx, npcID)
	if err != nil {
		return nil, err
	}
	for _, m := range mems {
		if m.ID != memoryID {
			continue
		}
		gain := e.tun.RecallClarityGain / float64(1+m.RecallCount)
		m.Clarity = sim.Clamp(m.Clarity+gain, 0, 10)
		m.RecallCount++
		if err := e.store.PutEmotionalMemory(ctx, m); err != nil {
			return nil, fmt.Errorf("persist recall: %w", err)
		}
		return m, nil
	}
	return nil, npc.NotFoundf("emotional memory %s for npc %s", memoryID, npcID)
}

// AppliedEffect is one dimension adjustment from an environmental effect.
type AppliedEffect struct {
	Dimension npc.Dimension `json:"dimension"`
	Delta     float64       `json:"delta"`
}

// ApplyEnvironmentalEffect shifts dimensions by the weather's delta table
// scaled by the NPC's weather sensitivity and records a one-day influence.
func (e *Engine) ApplyEnvironmentalEffect(ctx context.Context, npcID uuid.UUID, weather npc.Weather) ([]AppliedEffect, error) {
	key := npcID.String()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	s, err := e.GetOrCreate(ctx, npcID)
	if err != nil {
		return nil, err
	}

	delta, ok := weatherDeltas[weather]
	if !ok {
		return nil, npc.InvalidStatef("unknown weather %q", weather.Name())
	}
	scale := s.WeatherSensitivity / 10

	var applied []AppliedEffect
	vals := delta.values()
	for i, d := range npc.Dimensions() {
		if vals[i] == 0 {
			continue
		}
		adj := vals[i] * scale
		s.SetDim(d, clampDim(s.Dim(d)+adj))
		applied = append(applied, AppliedEffect{Dimension: d, Delta: adj})
	}
	s.LastUpdated = e.now()
	if err := e.store.PutEmotionalState(ctx, s); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	in := &npc.EmotionalInfluence{
		ID:           uuid.New(),
		NpcID:        npcID,
		Source:       "weather",
		Description:  weather.Name() + " conditions",
		Strength:     scale,
		DurationDays: 1,
		AppliedAt:    e.now(),
	}
	if err := e.store.AddInfluence(ctx, in); err != nil {
		return nil, fmt.Errorf("record influence: %w", err)
	}
	return applied, nil
}

// DecisionModifiers derives decision-weighting adjustments from the current
// emotion scaled by intensity.
func (e *Engine) DecisionModifiers(ctx context.Context, npcID uuid.UUID) (map[string]float64, error) {
	s, err := e.GetOrCreate(ctx, npcID)
	if err != nil {
		return nil, err
	}
	base, ok := decisionBase[s.Current]
	if !ok {
		return map[string]float64{}, nil
	}
	scale := s.Intensity / 10
	out := make(map[string]float64, len(base))
	for k, v := range base {
		out[k] = v * scale
	}
	return out, nil
}
