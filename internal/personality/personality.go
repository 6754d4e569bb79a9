// Package personality implements long-horizon attribute drift: evaluating
// significant events against change resistance, adapting changed attributes
// over time, learned memories, and periodic snapshots.
package personality

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// Engine owns personality evolution. All attribute writes to the live NPC
// profile flow through here.
type Engine struct {
	store store.Store
	tun   config.Tuning

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a personality engine.
func New(st store.Store, tun config.Tuning, rng *rand.Rand) *Engine {
	return &Engine{store: st, tun: tun, rng: rng, now: time.Now}
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

// Resistance derives how hard an NPC is to change from discipline,
// integrity, and age. Older, more disciplined NPCs resist change.
func Resistance(n *npc.NPC) float64 {
	ageFactor := 1.0
	switch {
	case n.Age > 50:
		ageFactor = 1.5
	case n.Age > 30:
		ageFactor = 1.2
	}
	r := (n.Traits.Discipline + n.Traits.Integrity) / 2 * ageFactor / 5
	return sim.Clamp(r, 0.5, 3.0)
}

// EvaluationResult reports whether an event triggered an evolution.
type EvaluationResult struct {
	Triggered  bool                      `json:"triggered"`
	Evolution  *npc.PersonalityEvolution `json:"evolution,omitempty"`
	Resistance float64                   `json:"resistance"`
}

// EvaluateChange tests a life event against the NPC's change resistance.
// Severity below the change threshold is a no-op. Each attribute associated
// with the event type passes an independent probability draw; any that pass
// receive a bounded delta. A milestone snapshot is taken before the
// evolution record is created.
func (e *Engine) EvaluateChange(ctx context.Context, npcID uuid.UUID, event npc.EventType, description string, severity float64) (*EvaluationResult, error) {
	if severity < e.tun.ChangeThreshold {
		return &EvaluationResult{Triggered: false}, nil
	}

	n, err := e.store.GetNPC(ctx, npcID)
	if err != nil {
		return nil, err
	}
	resistance := Resistance(n)

	effects, ok := eventEffects[event]
	if !ok {
		return nil, npc.InvalidStatef("no attribute effects for event %q", event.Name())
	}

	changes := make(map[string]npc.AttributeChange)
	for _, ef := range effects {
		p := ef.prob * (severity / 10) / resistance
		if e.roll() >= p {
			continue
		}
		from := ef.attr.Get(&n.Traits)
		size := ef.weight * (severity / 10) * e.tun.MaxAttributeChange
		size *= 0.75 + e.roll()*0.5
		size = math.Min(size, e.tun.MaxAttributeChange)
		to := sim.Clamp(from+ef.sign*size, 0, 10)
		if to == from {
			continue
		}
		changes[ef.attr.Name()] = npc.AttributeChange{From: from, To: to}
	}
	if len(changes) == 0 {
		return &EvaluationResult{Triggered: false, Resistance: resistance}, nil
	}

	ct := changeTypeFor(event, severity)
	ev := &npc.PersonalityEvolution{
		ID:          uuid.New(),
		NpcID:       npcID,
		Type:        ct,
		Event:       event,
		Description: description,
		Severity:    severity,
		Changes:     changes,
		Resistance:  resistance,
		StartedAt:   e.now(),
	}
	ev.Magnitude = ev.TotalChange()
	days := int(float64(e.tun.AdaptationBaseDays) * adaptationMultiplier(ct) * ev.Magnitude / 2)
	if days < 7 {
		days = 7
	}
	ev.AdaptationDays = days

	if err := e.takeSnapshot(ctx, n); err != nil {
		return nil, fmt.Errorf("milestone snapshot: %w", err)
	}
	if err := e.store.AddEvolution(ctx, ev); err != nil {
		return nil, fmt.Errorf("persist evolution: %w", err)
	}

	slog.Info("personality evolution started",
		"npc", npcID, "event", event.Name(), "type", ct.Name(),
		"attributes", len(changes), "adaptation_days", days)

	return &EvaluationResult{Triggered: true, Evolution: ev, Resistance: resistance}, nil
}

// ProcessDaily advances every incomplete evolution one day: progress rises
// evenly across the adaptation period, changed attributes are linearly
// interpolated onto the live profile, and completion freezes the final
// values and records a memory. Learned memories fade, and a periodic
// snapshot is taken when the interval has elapsed.
func (e *Engine) ProcessDaily(ctx context.Context, npcID uuid.UUID) error {
	n, err := e.store.GetNPC(ctx, npcID)
	if err != nil {
		return err
	}

	evolutions, err := e.store.ListEvolutions(ctx, npcID)
	if err != nil {
		return fmt.Errorf("list evolutions: %w", err)
	}

	dirty := false
	for _, ev := range evolutions {
		if ev.AdaptationComplete {
			continue
		}
		rate := 100 / float64(ev.AdaptationDays)
		ev.Progress = sim.Clamp(ev.Progress+rate, 0, 100)

		for name, ch := range ev.Changes {
			attr, ok := npc.AttributeByName(name)
			if !ok {
				continue
			}
			v := ch.From + (ch.To-ch.From)*ev.Progress/100
			attr.Set(&n.Traits, sim.Clamp(v, 0, 10))
			dirty = true
		}

		if ev.Progress >= 100 {
			ev.Progress = 100
			ev.AdaptationComplete = true
			ev.CompletedAt = e.now()
			for name, ch := range ev.Changes {
				if attr, ok := npc.AttributeByName(name); ok {
					attr.Set(&n.Traits, ch.To)
				}
			}
			if err := e.recordCompletionMemory(ctx, ev); err != nil {
				return err
			}
			slog.Info("personality evolution complete",
				"npc", npcID, "type", ev.Type.Name(), "magnitude", ev.Magnitude)
		}
		if err := e.store.PutEvolution(ctx, ev); err != nil {
			return fmt.Errorf("persist evolution %s: %w", ev.ID, err)
		}
	}
	if dirty {
		if err := e.store.PutNPC(ctx, n); err != nil {
			return fmt.Errorf("persist traits: %w", err)
		}
	}

	if err := e.fadeMemories(ctx, npcID); err != nil {
		return err
	}
	return e.periodicSnapshotCheck(ctx, n)
}

// recordCompletionMemory writes a learned memory summarizing what changed
// in qualitative terms.
func (e *Engine) recordCompletionMemory(ctx context.Context, ev *npc.PersonalityEvolution) error {
	mem := &npc.Memory{
		ID:          uuid.New(),
		NpcID:       ev.NpcID,
		Event:       ev.Event,
		Description: describeChanges(ev.Changes),
		Lesson:      lessonFor[ev.Event],
		Importance:  sim.Clamp(ev.Severity, 0, 10),
		Strength:    sim.Clamp(ev.Severity, 0, 10),
		FormedAt:    e.now(),
	}
	if err := e.store.AddMemory(ctx, mem); err != nil {
		return fmt.Errorf("record completion memory: %w", err)
	}
	return nil
}

// describeChanges renders an attribute-change map as prose.
func describeChanges(changes map[string]npc.AttributeChange) string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		d := changes[name].Delta()
		var phrase string
		switch {
		case d >= 1.5:
			phrase = "far more " + name
		case d > 0:
			phrase = "more " + name
		case d <= -1.5:
			phrase = "far less " + name
		default:
			phrase = "less " + name
		}
		parts = append(parts, phrase)
	}
	return "became " + strings.Join(parts, ", ")
}

func (e *Engine) fadeMemories(ctx context.Context, npcID uuid.UUID) error {
	mems, err := e.store.ListMemories(ctx, npcID)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}
	for _, m := range mems {
		if m.Strength <= 0 {
			continue
		}
		m.Strength = sim.Clamp(m.Strength-e.tun.MemoryStrengthFade, 0, 10)
		if err := e.store.PutMemory(ctx, m); err != nil {
			return fmt.Errorf("fade memory %s: %w", m.ID, err)
		}
	}
	return nil
}

// RecallMemories returns up to limit memories relevant to the given context,
// scored by keyword overlap and tie-broken by importance. Recalled memories
// gain strength with diminishing returns.
func (e *Engine) RecallMemories(ctx context.Context, npcID uuid.UUID, context_ string, limit int) ([]*npc.Memory, error) {
	mems, err := e.store.ListMemories(ctx, npcID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	words := keywords(context_)
	type scored struct {
		mem   *npc.Memory
		score float64
	}
	ranked := make([]scored, 0, len(mems))
	for _, m := range mems {
		overlap := 0
		memWords := keywords(m.Description + " " + m.Lesson)
		for w := range words {
			if memWords[w] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		ranked = append(ranked, scored{m, float64(overlap) + m.Importance/100})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]*npc.Memory, 0, len(ranked))
	for _, r := range ranked {
		m := r.mem
		gain := e.tun.RecallStrengthGain / float64(1+m.RecallCount)
		m.Strength = sim.Clamp(m.Strength+gain, 0, 10)
		m.RecallCount++
		m.LastRecall = e.now()
		if err := e.store.PutMemory(ctx, m); err != nil {
			return nil, fmt.Errorf("persist recall %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func keywords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'")
		if len(w) > 3 {
			out[w] = true
		}
	}
	return out
}

func (e *Engine) takeSnapshot(ctx context.Context, n *npc.NPC) error {
	s := &npc.PersonalitySnapshot{
		ID:      uuid.New(),
		NpcID:   n.ID,
		Traits:  n.Traits,
		AgeDays: n.Age * 365,
		TakenAt: e.now(),
	}
	return e.store.AddSnapshot(ctx, s)
}

// TakeSnapshot captures the NPC's current trait profile.
func (e *Engine) TakeSnapshot(ctx context.Context, npcID uuid.UUID) error {
	n, err := e.store.GetNPC(ctx, npcID)
	if err != nil {
		return err
	}
	return e.takeSnapshot(ctx, n)
}

// periodicSnapshotCheck takes a snapshot when none exists or the latest is
// older than the snapshot interval.
func (e *Engine) periodicSnapshotCheck(ctx context.Context, n *npc.NPC) error {
	latest, err := e.store.LatestSnapshot(ctx, n.ID)
	switch {
	case err == nil:
		age := e.now().Sub(latest.TakenAt)
		if age < time.Duration(e.tun.SnapshotIntervalDays)*24*time.Hour {
			return nil
		}
	case npc.KindOf(err) == npc.KindNotFound:
		// first snapshot
	default:
		return err
	}
	return e.takeSnapshot(ctx, n)
}
