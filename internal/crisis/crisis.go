// Package crisis implements the per-NPC crisis response state machine:
// triggered, then ongoing daily processing, then terminal completion with
// outcome evaluation and personality follow-up.
package crisis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/economy"
	"github.com/sharronesofer/visual-dm-sub009/internal/emotion"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/personality"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// Engine drives crisis responses. It calls into the emotion and personality
// engines for side effects and consults the economy for resource scoring.
type Engine struct {
	store   store.Store
	emotion *emotion.Engine
	persona *personality.Engine
	economy *economy.Service
	tun     config.Tuning

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a crisis engine.
func New(st store.Store, emo *emotion.Engine, per *personality.Engine, eco *economy.Service, tun config.Tuning, rng *rand.Rand) *Engine {
	return &Engine{
		store:   st,
		emotion: emo,
		persona: per,
		economy: eco,
		tun:     tun,
		rng:     rng,
		now:     time.Now,
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

func (e *Engine) pick(weights []float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sim.WeightedPick(e.rng, weights)
}

type scoredResponse struct {
	response npc.ResponseType
	score    float64
}

// Trigger creates a crisis response for one NPC. Every candidate response is
// scored by personality alignment, resource availability, severity fit, and
// an integrity penalty for ethically costly options; the winner is drawn
// with weighted randomness from the top three feasible candidates. Returns
// a threshold error when no candidate is feasible.
func (e *Engine) Trigger(ctx context.Context, npcID uuid.UUID, typ npc.CrisisType, description string, severity float64) (*npc.CrisisResponse, error) {
	n, err := e.store.GetNPC(ctx, npcID)
	if err != nil {
		return nil, err
	}
	severity = sim.Clamp(severity, 1, 10)

	resourceScore, err := e.economy.CycleModifier(ctx, n.Region)
	if err != nil {
		return nil, npc.Unavailable("economy lookup failed", err)
	}

	candidates, ok := crisisCandidates[typ]
	if !ok {
		return nil, npc.InvalidStatef("no responses defined for crisis %q", typ.Name())
	}

	scored := make([]scoredResponse, 0, len(candidates))
	for _, rt := range candidates {
		s := e.scoreResponse(n, rt, severity, resourceScore)
		if s > e.tun.CrisisFeasibilityFloor {
			scored = append(scored, scoredResponse{rt, s})
		}
	}
	if len(scored) == 0 {
		return nil, npc.ThresholdNotMetf("no feasible response to %s for npc %s", typ.Name(), npcID)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > 3 {
		scored = scored[:3]
	}
	weights := []float64{0.6, 0.3, 0.1}[:len(scored)]
	chosen := scored[e.pick(weights)]

	// Effectiveness rewards responses matched to the crisis scale and adds
	// bounded randomness.
	mismatch := 1 - (severity-5)/10
	effectiveness := chosen.score * mismatch * (0.7 + e.roll()*0.6)
	effectiveness = sim.Clamp(effectiveness, 1, 10)

	r := durationRange[typ]
	span := r[1] - r[0]
	days := r[0]
	if span > 0 {
		days += int(e.roll() * float64(span+1))
	}
	duration := int(float64(days) * (0.5 + severity/10))
	if duration < 1 {
		duration = 1
	}

	resp := &npc.CrisisResponse{
		ID:            uuid.New(),
		NpcID:         npcID,
		Type:          typ,
		Response:      chosen.response,
		Description:   e.describeResponse(n, chosen.response, description),
		Severity:      severity,
		Score:         chosen.score,
		Effectiveness: effectiveness,
		Status:        npc.CrisisTriggered,
		DurationDays:  duration,
		StartedAt:     e.now(),
	}
	resp.Immediate = e.immediateResults(chosen.response, effectiveness)
	if err := e.store.AddCrisisResponse(ctx, resp); err != nil {
		return nil, fmt.Errorf("persist crisis response: %w", err)
	}

	// First-order emotional impact of the crisis itself.
	if _, err := e.emotion.ProcessTrigger(ctx, npcID, npc.TriggerCrisisEvent, description, severity); err != nil {
		return nil, fmt.Errorf("crisis emotional trigger: %w", err)
	}

	slog.Info("crisis response triggered",
		"npc", npcID, "crisis", typ.Name(), "response", chosen.response.Name(),
		"severity", severity, "duration_days", duration)

	return resp, nil
}

// scoreResponse computes the viability of one response for one NPC.
func (e *Engine) scoreResponse(n *npc.NPC, rt npc.ResponseType, severity, resourceScore float64) float64 {
	p := responseProfiles[rt]

	var traitSum float64
	for _, a := range p.traits {
		traitSum += a.Get(&n.Traits)
	}
	traitAvg := 5.0
	if len(p.traits) > 0 {
		traitAvg = traitSum / float64(len(p.traits))
	}

	severityAdj := 1 + p.severityBias*(severity-5)/10
	integrityPenalty := 1.0
	if p.costly {
		integrityPenalty = sim.Clamp(1.2-n.Traits.Integrity/10, 0.2, 1.2)
	}

	score := p.base * (traitAvg / 5) * resourceScore * severityAdj * integrityPenalty
	return sim.Clamp(score, 0, 10)
}

// immediateResults computes the first-order consequences of the chosen
// response. Fleeing and helping cost coin, hiding burns supplies, militia
// service risks health unless it goes well, and profiteering pays out at a
// reputation price.
func (e *Engine) immediateResults(rt npc.ResponseType, effectiveness float64) *npc.ImmediateResults {
	res := &npc.ImmediateResults{
		ResourceChanges:     map[string]float64{},
		RelationshipChanges: map[string]float64{},
	}
	span := func(lo, hi float64) float64 { return math.Round(lo + e.roll()*(hi-lo)) }

	switch rt {
	case npc.ResponseFleeArea:
		res.ResourceChanges["coin"] = -span(100, 500)
		res.ResourceChanges["property"] = -1
	case npc.ResponseJoinMilitia:
		if effectiveness > 7 {
			res.RelationshipChanges["community_reputation"] = 2
		} else {
			res.ResourceChanges["health"] = -span(1, 3)
		}
	case npc.ResponseSeekProtection, npc.ResponsePanicParalysis:
		res.ResourceChanges["supplies"] = -span(50, 200)
		res.RelationshipChanges["social_isolation"] = 1
	case npc.ResponseStockpileResources:
		res.ResourceChanges["coin"] = -span(100, 400)
		res.ResourceChanges["supplies"] = span(50, 200)
	case npc.ResponseAdaptLifestyle:
		if effectiveness > 6 {
			res.NewGoals = append(res.NewGoals, "develop adaptive skills")
		}
	case npc.ResponseHelpOthers:
		res.RelationshipChanges["community_bonds"] = 3
		res.ResourceChanges["coin"] = -span(200, 800)
	case npc.ResponseOrganizeCommunity:
		res.RelationshipChanges["community_bonds"] = 2
		if effectiveness > 6 {
			res.RelationshipChanges["community_reputation"] = 1
		}
	case npc.ResponseReligiousDevotion:
		res.ResourceChanges["coin"] = -span(10, 50)
		res.RelationshipChanges["temple_standing"] = 1
	case npc.ResponseProfitOpportunity:
		if effectiveness > 6 {
			res.ResourceChanges["coin"] = span(300, 1000)
		}
		res.RelationshipChanges["moral_reputation"] = -2
	}
	return res
}

// describeResponse renders a narrative line flavored by the NPC's dominant
// trait.
func (e *Engine) describeResponse(n *npc.NPC, rt npc.ResponseType, crisisDesc string) string {
	dominant := npc.AttrResilience
	best := -1.0
	for _, a := range npc.Attributes() {
		if v := a.Get(&n.Traits); v > best {
			best = v
			dominant = a
		}
	}
	return fmt.Sprintf("Facing %s, %s %s, true to their %s.",
		crisisDesc, n.Name, responseVerbs[rt], dominant.Name())
}

// daysElapsed counts whole days since the response started.
func (e *Engine) daysElapsed(c *npc.CrisisResponse) int {
	return int(e.now().Sub(c.StartedAt).Hours() / 24)
}

// ProcessOngoing advances one crisis response. Repeat calls on the same day
// are no-ops beyond the first. While days remain, the NPC slowly adapts and
// takes a weekly stress trigger; once the duration elapses, the response
// completes exactly once.
func (e *Engine) ProcessOngoing(ctx context.Context, crisisID uuid.UUID) (*npc.CrisisResponse, error) {
	c, err := e.store.GetCrisisResponse(ctx, crisisID)
	if err != nil {
		return nil, err
	}
	if c.Status == npc.CrisisCompleted {
		return nil, npc.InvalidStatef("crisis response %s already completed", crisisID)
	}
	if _, err := e.store.GetNPC(ctx, c.NpcID); err != nil {
		return nil, err
	}

	days := e.daysElapsed(c)
	if days >= c.DurationDays {
		if err := e.complete(ctx, c, days); err != nil {
			return nil, err
		}
		return c, nil
	}

	// Same-day repeat: nothing further to apply.
	if c.Status == npc.CrisisOngoing && days == c.LastProcessedDay {
		return c, nil
	}

	c.Status = npc.CrisisOngoing
	c.LastProcessedDay = days

	// Adaptation: living with a crisis slowly improves the response.
	c.Effectiveness = sim.Clamp(c.Effectiveness+0.02*(10-c.Severity)/10, 1, 10)

	if err := e.store.PutCrisisResponse(ctx, c); err != nil {
		return nil, fmt.Errorf("persist ongoing state: %w", err)
	}

	if days > 0 && days%7 == 0 {
		// Stress compounds the longer the crisis runs.
		stress := sim.Clamp(c.Severity+float64(days)/10, 0, 10)
		desc := fmt.Sprintf("the strain of the ongoing %s", c.Type.Name())
		if _, err := e.emotion.ProcessTrigger(ctx, c.NpcID, npc.TriggerOngoingCrisisStress, desc, stress); err != nil {
			return nil, fmt.Errorf("weekly stress trigger: %w", err)
		}
	}
	return c, nil
}

// complete finalizes a response: outcome evaluation, completion memory, and
// a personality follow-up when a severe crisis was handled badly.
func (e *Engine) complete(ctx context.Context, c *npc.CrisisResponse, days int) error {
	c.Outcome = e.evaluateOutcome(c)
	c.Status = npc.CrisisCompleted
	c.CompletedAt = e.now()
	c.LastProcessedDay = days
	if err := e.store.PutCrisisResponse(ctx, c); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}

	mem := &npc.EmotionalMemory{
		ID:          uuid.New(),
		NpcID:       c.NpcID,
		Class:       npc.MemorySignificant,
		Description: fmt.Sprintf("endured the %s: %s", c.Type.Name(), c.Description),
		Emotion:     npc.EmotionDetermined,
		Intensity:   c.Severity,
		Clarity:     10,
		Charge:      sim.Clamp(c.Severity-c.Effectiveness/2, 0, 10),
		OccurredAt:  e.now(),
	}
	if c.Effectiveness < c.Severity/2 {
		mem.Class = npc.MemoryTrauma
		mem.Emotion = npc.EmotionBitter
	}
	if err := e.store.AddEmotionalMemory(ctx, mem); err != nil {
		return fmt.Errorf("completion memory: %w", err)
	}

	if c.Severity >= e.tun.CrisisPersonalityEvalMin && c.Effectiveness < e.tun.CrisisIneffectiveCeiling {
		desc := fmt.Sprintf("barely survived the %s", c.Type.Name())
		if _, err := e.persona.EvaluateChange(ctx, c.NpcID, npc.EventCrisisSurvival, desc, c.Severity); err != nil {
			return fmt.Errorf("personality follow-up: %w", err)
		}
	}

	slog.Info("crisis response completed",
		"npc", c.NpcID, "crisis", c.Type.Name(),
		"effectiveness", c.Effectiveness, "days", days)
	return nil
}

// evaluateOutcome derives losses, gains, and lessons from how effectiveness
// compared to severity.
func (e *Engine) evaluateOutcome(c *npc.CrisisResponse) *npc.CrisisOutcome {
	o := &npc.CrisisOutcome{}
	margin := c.Effectiveness - c.Severity

	switch {
	case margin >= 2:
		o.Gains = append(o.Gains, "came through stronger than before", "earned standing among neighbors")
		o.Lessons = append(o.Lessons, "preparation turns disaster into opportunity")
	case margin >= -1:
		o.Gains = append(o.Gains, "weathered the worst of it")
		o.Losses = append(o.Losses, "spent savings and goodwill to get through")
		o.Lessons = append(o.Lessons, "survival demands sacrifice")
	default:
		o.Losses = append(o.Losses, "lost property and standing", "health and spirits suffered")
		o.Lessons = append(o.Lessons, "some storms cannot be outrun")
	}

	if responseProfiles[c.Response].costly {
		o.Losses = append(o.Losses, "reputation stained by profiteering")
	}
	return o
}

// ProcessAllOngoing runs ProcessOngoing over every active response for an
// NPC. Already-completed records surfaced by a stale listing are skipped.
func (e *Engine) ProcessAllOngoing(ctx context.Context, npcID uuid.UUID) (int, error) {
	active, err := e.store.ListCrisisResponses(ctx, store.CrisisFilter{NpcID: npcID, ActiveOnly: true})
	if err != nil {
		return 0, fmt.Errorf("list active responses: %w", err)
	}
	processed := 0
	for _, c := range active {
		if _, err := e.ProcessOngoing(ctx, c.ID); err != nil {
			if npc.KindOf(err) == npc.KindInvalidState {
				continue
			}
			return processed, err
		}
		processed++
	}
	return processed, nil
}
