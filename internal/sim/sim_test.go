package sim

import (
	"sync"
	"testing"
)

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-3, 0, 10, 0},
		{14, 0, 10, 10},
		{-10.5, -10, 10, -10},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%g,%g,%g) = %g, want %g", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestWeightedPickDistribution(t *testing.T) {
	rng := NewRand(42)
	weights := []float64{0.6, 0.3, 0.1}
	counts := make([]int, 3)
	const trials = 10000
	for i := 0; i < trials; i++ {
		counts[WeightedPick(rng, weights)]++
	}
	// Loose bounds; the distribution just has to order correctly.
	if counts[0] < counts[1] || counts[1] < counts[2] {
		t.Errorf("distribution out of order: %v", counts)
	}
	if counts[0] < trials/2 {
		t.Errorf("dominant weight picked %d/%d, want majority", counts[0], trials)
	}
}

func TestWeightedPickDegenerate(t *testing.T) {
	rng := NewRand(1)
	if got := WeightedPick(rng, []float64{0, 0, 0}); got != 0 {
		t.Errorf("all-zero weights picked %d, want 0", got)
	}
	if got := WeightedPick(rng, []float64{0, 5, 0}); got != 1 {
		t.Errorf("single positive weight picked %d, want 1", got)
	}
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := NewKeyedMutex()
	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("npc-1")
			counter++
			km.Unlock("npc-1")
		}()
	}
	wg.Wait()
	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(7), NewRand(7)
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			t.Fatal("same seed diverged")
		}
	}
}
