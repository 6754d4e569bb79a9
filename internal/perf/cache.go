// Package perf holds the performance optimizer: four tier-keyed cache
// layers and the per-tier batch dispatch strategies the coordinator runs
// simulation passes through.
package perf

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

// entry is one cached payload. A zero expiry never times out.
type entry struct {
	data         any
	expiresAt    time.Time
	lastAccessed time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Optimizer owns the cache layers. Tier 1 entries live until evicted by the
// LRU cap, tiers 2 and 3 carry fixed TTLs, and tier 4 holds only named
// aggregates, never per-NPC entries. All access is internally synchronized.
type Optimizer struct {
	tun config.Tuning

	mu         sync.Mutex
	layers     map[npc.Tier]map[uuid.UUID]*entry
	aggregates map[string]*entry
	now        func() time.Time
}

// NewOptimizer returns an optimizer with empty caches.
func NewOptimizer(tun config.Tuning) *Optimizer {
	return &Optimizer{
		tun: tun,
		layers: map[npc.Tier]map[uuid.UUID]*entry{
			npc.Tier1: {},
			npc.Tier2: {},
			npc.Tier3: {},
		},
		aggregates: map[string]*entry{},
		now:        time.Now,
	}
}

// WithClock overrides the optimizer clock.
func (o *Optimizer) WithClock(now func() time.Time) *Optimizer {
	o.now = now
	return o
}

func (o *Optimizer) ttlFor(tier npc.Tier) time.Duration {
	switch tier {
	case npc.Tier2:
		return o.tun.Tier2TTL
	case npc.Tier3:
		return o.tun.Tier3TTL
	default:
		return 0
	}
}

// CacheNpcData writes into the layer matching the tier. Tier 4 never caches
// per-NPC data; such writes are dropped.
func (o *Optimizer) CacheNpcData(id uuid.UUID, tier npc.Tier, data any) {
	layer, ok := o.layers[tier]
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	e := &entry{data: data, lastAccessed: now}
	if ttl := o.ttlFor(tier); ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	layer[id] = e
}

// GetCachedNpcData returns the cached payload for an NPC at the given tier.
// An expired entry is evicted and reported absent.
func (o *Optimizer) GetCachedNpcData(id uuid.UUID, tier npc.Tier) (any, bool) {
	layer, ok := o.layers[tier]
	if !ok {
		return nil, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := layer[id]
	if !ok {
		return nil, false
	}
	now := o.now()
	if e.expired(now) {
		delete(layer, id)
		return nil, false
	}
	e.lastAccessed = now
	return e.data, true
}

// LookupNpcData finds an NPC's cached payload without knowing its tier,
// checking the hottest layer first.
func (o *Optimizer) LookupNpcData(id uuid.UUID) (any, npc.Tier, bool) {
	for _, tier := range []npc.Tier{npc.Tier1, npc.Tier2, npc.Tier3} {
		if data, ok := o.GetCachedNpcData(id, tier); ok {
			return data, tier, true
		}
	}
	return nil, 0, false
}

// CacheAggregate stores a named tier-4 aggregate with the daily TTL.
func (o *Optimizer) CacheAggregate(key string, data any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	o.aggregates[key] = &entry{
		data:         data,
		expiresAt:    now.Add(o.tun.Tier3TTL),
		lastAccessed: now,
	}
}

// GetAggregate returns a named tier-4 aggregate, evicting it when expired.
func (o *Optimizer) GetAggregate(key string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.aggregates[key]
	if !ok {
		return nil, false
	}
	now := o.now()
	if e.expired(now) {
		delete(o.aggregates, key)
		return nil, false
	}
	e.lastAccessed = now
	return e.data, true
}

// Len reports the entry count of one layer.
func (o *Optimizer) Len(tier npc.Tier) int {
	layer, ok := o.layers[tier]
	if !ok {
		return 0
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(layer)
}

// Cleanup evicts expired tier-2/3 entries and aggregates, then caps the
// tier-1 layer: past the ceiling, the least-recently-used fraction goes.
// Returns the number of entries removed.
func (o *Optimizer) Cleanup() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	evicted := 0

	for _, tier := range []npc.Tier{npc.Tier2, npc.Tier3} {
		for id, e := range o.layers[tier] {
			if e.expired(now) {
				delete(o.layers[tier], id)
				evicted++
			}
		}
	}
	for key, e := range o.aggregates {
		if e.expired(now) {
			delete(o.aggregates, key)
			evicted++
		}
	}

	live := o.layers[npc.Tier1]
	if len(live) <= o.tun.Tier1CacheCeiling {
		return evicted
	}
	type aged struct {
		id uuid.UUID
		at time.Time
	}
	order := make([]aged, 0, len(live))
	for id, e := range live {
		order = append(order, aged{id, e.lastAccessed})
	}
	sort.Slice(order, func(i, j int) bool { return order[i].at.Before(order[j].at) })
	drop := int(float64(len(live)) * o.tun.Tier1EvictFraction)
	if drop < 1 {
		drop = 1
	}
	for _, a := range order[:drop] {
		delete(live, a.id)
		evicted++
	}
	return evicted
}
