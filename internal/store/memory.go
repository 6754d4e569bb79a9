package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

// Memory is a mutex-guarded in-memory Store. Values are copied on the way in
// and out so callers never share pointers with the store.
type Memory struct {
	mu sync.RWMutex

	npcs       map[uuid.UUID]npc.NPC
	tiers      map[uuid.UUID]npc.TierStatus
	states     map[uuid.UUID]npc.EmotionalState
	triggers   map[uuid.UUID][]npc.EmotionalTrigger
	emoMems    map[uuid.UUID]npc.EmotionalMemory
	influences map[uuid.UUID][]npc.EmotionalInfluence
	evolutions map[uuid.UUID]npc.PersonalityEvolution
	snapshots  map[uuid.UUID][]npc.PersonalitySnapshot
	memories   map[uuid.UUID]npc.Memory
	crises     map[uuid.UUID]npc.CrisisResponse
	cycles     map[string]npc.EconomicCycle
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		npcs:       make(map[uuid.UUID]npc.NPC),
		tiers:      make(map[uuid.UUID]npc.TierStatus),
		states:     make(map[uuid.UUID]npc.EmotionalState),
		triggers:   make(map[uuid.UUID][]npc.EmotionalTrigger),
		emoMems:    make(map[uuid.UUID]npc.EmotionalMemory),
		influences: make(map[uuid.UUID][]npc.EmotionalInfluence),
		evolutions: make(map[uuid.UUID]npc.PersonalityEvolution),
		snapshots:  make(map[uuid.UUID][]npc.PersonalitySnapshot),
		memories:   make(map[uuid.UUID]npc.Memory),
		crises:     make(map[uuid.UUID]npc.CrisisResponse),
		cycles:     make(map[string]npc.EconomicCycle),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) GetNPC(_ context.Context, id uuid.UUID) (*npc.NPC, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.npcs[id]
	if !ok {
		return nil, npc.NotFoundf("npc %s", id)
	}
	return &n, nil
}

func (m *Memory) PutNPC(_ context.Context, n *npc.NPC) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.npcs[n.ID] = *n
	return nil
}

func (m *Memory) ListNPCs(_ context.Context, f NPCFilter) ([]*npc.NPC, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*npc.NPC
	for _, n := range m.npcs {
		if !matchNPC(&n, f) {
			continue
		}
		cp := n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) CountNPCs(_ context.Context, f NPCFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int
	for _, n := range m.npcs {
		if matchNPC(&n, f) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) GetTierStatus(_ context.Context, npcID uuid.UUID) (*npc.TierStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ts, ok := m.tiers[npcID]
	if !ok {
		return nil, npc.NotFoundf("tier status for npc %s", npcID)
	}
	return &ts, nil
}

func (m *Memory) PutTierStatus(_ context.Context, ts *npc.TierStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[ts.NpcID] = *ts
	return nil
}

func (m *Memory) CountByTier(_ context.Context) (map[npc.Tier]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[npc.Tier]int)
	for _, ts := range m.tiers {
		counts[ts.CurrentTier]++
	}
	return counts, nil
}

func (m *Memory) GetEmotionalState(_ context.Context, npcID uuid.UUID) (*npc.EmotionalState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[npcID]
	if !ok {
		return nil, npc.NotFoundf("emotional state for npc %s", npcID)
	}
	return &s, nil
}

func (m *Memory) PutEmotionalState(_ context.Context, s *npc.EmotionalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.NpcID] = *s
	return nil
}

func (m *Memory) AddTrigger(_ context.Context, t *npc.EmotionalTrigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers[t.NpcID] = append(m.triggers[t.NpcID], *t)
	return nil
}

func (m *Memory) ListTriggers(_ context.Context, npcID uuid.UUID, limit int) ([]*npc.EmotionalTrigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.triggers[npcID]
	out := make([]*npc.EmotionalTrigger, 0, len(list))
	// Newest first.
	for i := len(list) - 1; i >= 0; i-- {
		cp := list[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) AddEmotionalMemory(_ context.Context, em *npc.EmotionalMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emoMems[em.ID] = *em
	return nil
}

func (m *Memory) PutEmotionalMemory(_ context.Context, em *npc.EmotionalMemory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.emoMems[em.ID]; !ok {
		return npc.NotFoundf("emotional memory %s", em.ID)
	}
	m.emoMems[em.ID] = *em
	return nil
}

func (m *Memory) ListEmotionalMemories(_ context.Context, npcID uuid.UUID) ([]*npc.EmotionalMemory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*npc.EmotionalMemory
	for _, em := range m.emoMems {
		if em.NpcID != npcID {
			continue
		}
		cp := em
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (m *Memory) AddInfluence(_ context.Context, in *npc.EmotionalInfluence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.influences[in.NpcID] = append(m.influences[in.NpcID], *in)
	return nil
}

func (m *Memory) ListInfluences(_ context.Context, npcID uuid.UUID) ([]*npc.EmotionalInfluence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.influences[npcID]
	out := make([]*npc.EmotionalInfluence, len(list))
	for i := range list {
		cp := list[i]
		out[i] = &cp
	}
	return out, nil
}

func (m *Memory) AddEvolution(_ context.Context, ev *npc.PersonalityEvolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evolutions[ev.ID] = cloneEvolution(ev)
	return nil
}

func (m *Memory) PutEvolution(_ context.Context, ev *npc.PersonalityEvolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.evolutions[ev.ID]; !ok {
		return npc.NotFoundf("evolution %s", ev.ID)
	}
	m.evolutions[ev.ID] = cloneEvolution(ev)
	return nil
}

func (m *Memory) ListEvolutions(_ context.Context, npcID uuid.UUID) ([]*npc.PersonalityEvolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*npc.PersonalityEvolution
	for _, ev := range m.evolutions {
		if ev.NpcID != npcID {
			continue
		}
		cp := cloneEvolution(&ev)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func cloneEvolution(ev *npc.PersonalityEvolution) npc.PersonalityEvolution {
	cp := *ev
	cp.Changes = make(map[string]npc.AttributeChange, len(ev.Changes))
	for k, v := range ev.Changes {
		cp.Changes[k] = v
	}
	return cp
}

func (m *Memory) AddSnapshot(_ context.Context, s *npc.PersonalitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.NpcID] = append(m.snapshots[s.NpcID], *s)
	return nil
}

func (m *Memory) LatestSnapshot(_ context.Context, npcID uuid.UUID) (*npc.PersonalitySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.snapshots[npcID]
	if len(list) == 0 {
		return nil, npc.NotFoundf("snapshots for npc %s", npcID)
	}
	latest := list[0]
	for _, s := range list[1:] {
		if s.TakenAt.After(latest.TakenAt) {
			latest = s
		}
	}
	return &latest, nil
}

func (m *Memory) AddMemory(_ context.Context, mem *npc.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories[mem.ID] = *mem
	return nil
}

func (m *Memory) PutMemory(_ context.Context, mem *npc.Memory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.memories[mem.ID]; !ok {
		return npc.NotFoundf("memory %s", mem.ID)
	}
	m.memories[mem.ID] = *mem
	return nil
}

func (m *Memory) ListMemories(_ context.Context, npcID uuid.UUID) ([]*npc.Memory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*npc.Memory
	for _, mem := range m.memories {
		if mem.NpcID != npcID {
			continue
		}
		cp := mem
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormedAt.Before(out[j].FormedAt) })
	return out, nil
}

func cloneCrisis(c *npc.CrisisResponse) npc.CrisisResponse {
	cp := *c
	if c.Immediate != nil {
		im := npc.ImmediateResults{
			ResourceChanges:     make(map[string]float64, len(c.Immediate.ResourceChanges)),
			RelationshipChanges: make(map[string]float64, len(c.Immediate.RelationshipChanges)),
			NewGoals:            append([]string(nil), c.Immediate.NewGoals...),
		}
		for k, v := range c.Immediate.ResourceChanges {
			im.ResourceChanges[k] = v
		}
		for k, v := range c.Immediate.RelationshipChanges {
			im.RelationshipChanges[k] = v
		}
		cp.Immediate = &im
	}
	if c.Outcome != nil {
		o := *c.Outcome
		cp.Outcome = &o
	}
	return cp
}

func (m *Memory) GetCrisisResponse(_ context.Context, id uuid.UUID) (*npc.CrisisResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.crises[id]
	if !ok {
		return nil, npc.NotFoundf("crisis response %s", id)
	}
	cp := cloneCrisis(&c)
	return &cp, nil
}

func (m *Memory) AddCrisisResponse(_ context.Context, c *npc.CrisisResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crises[c.ID] = cloneCrisis(c)
	return nil
}

func (m *Memory) PutCrisisResponse(_ context.Context, c *npc.CrisisResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.crises[c.ID]; !ok {
		return npc.NotFoundf("crisis response %s", c.ID)
	}
	m.crises[c.ID] = cloneCrisis(c)
	return nil
}

func (m *Memory) ListCrisisResponses(_ context.Context, f CrisisFilter) ([]*npc.CrisisResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*npc.CrisisResponse
	for _, c := range m.crises {
		if f.NpcID != uuid.Nil && c.NpcID != f.NpcID {
			continue
		}
		if f.ActiveOnly && !c.Active() {
			continue
		}
		cp := cloneCrisis(&c)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *Memory) GetEconomicCycle(_ context.Context, region string) (*npc.EconomicCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cycles[region]
	if !ok {
		return nil, npc.NotFoundf("economic cycle for region %q", region)
	}
	return &c, nil
}

func (m *Memory) PutEconomicCycle(_ context.Context, c *npc.EconomicCycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[c.Region] = *c
	return nil
}

func (m *Memory) ListEconomicCycles(_ context.Context) ([]*npc.EconomicCycle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*npc.EconomicCycle, 0, len(m.cycles))
	for _, c := range m.cycles {
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out, nil
}
