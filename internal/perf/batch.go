package perf

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

// Mode is the dispatch shape a tier's batches run under.
type Mode uint8

const (
	// ModeConcurrent fans tasks across a bounded worker pool.
	ModeConcurrent Mode = iota
	// ModeSequential runs tasks one at a time with pacing between them.
	ModeSequential
	// ModeAnalytic dispatches nothing per entity; the tier is handled
	// statistically.
	ModeAnalytic
)

var modeNames = [...]string{"concurrent", "sequential", "analytic"}

func (m Mode) Name() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Strategy is the batch policy for one tier.
type Strategy struct {
	Mode        Mode
	Workers     int
	PerSecond   float64
	TaskTimeout time.Duration
	BatchSize   int
}

// BatchStrategyFor maps a tier to its dispatch policy. Pure: same tier and
// tuning always yield the same strategy.
func BatchStrategyFor(tier npc.Tier, tun config.Tuning) Strategy {
	switch tier {
	case npc.Tier1, npc.Tier2:
		return Strategy{
			Mode:        ModeConcurrent,
			Workers:     tun.MaxWorkers,
			TaskTimeout: tun.TaskTimeout,
			BatchSize:   tun.BatchSize,
		}
	case npc.Tier3:
		return Strategy{
			Mode:        ModeSequential,
			PerSecond:   tun.Tier3PerSecond,
			TaskTimeout: tun.TaskTimeout,
			BatchSize:   tun.BatchSize,
		}
	default:
		return Strategy{Mode: ModeAnalytic}
	}
}

// Task is one unit of per-NPC work inside a batch.
type Task func(ctx context.Context) error

// BatchResult aggregates one batch run. Threshold-not-met results count as
// skips, not failures.
type BatchResult struct {
	Succeeded int
	Skipped   int
	Failed    int
	Errors    []error
}

func (r *BatchResult) record(err error) {
	switch {
	case err == nil:
		r.Succeeded++
	case npc.KindOf(err) == npc.KindThresholdNotMet:
		r.Skipped++
	default:
		r.Failed++
		r.Errors = append(r.Errors, err)
	}
}

// Executor runs a set of tasks under one dispatch strategy. No task failure
// aborts the rest of the batch.
type Executor interface {
	Run(ctx context.Context, tasks []Task) BatchResult
}

// NewExecutor builds the executor matching a strategy's mode.
func NewExecutor(s Strategy) Executor {
	switch s.Mode {
	case ModeConcurrent:
		return &poolExecutor{strategy: s}
	case ModeSequential:
		return &pacedExecutor{strategy: s}
	default:
		return analyticExecutor{}
	}
}

// poolExecutor fans tasks over an errgroup bounded at the strategy's worker
// count. A task overrunning its timeout counts as failed without holding up
// the rest of the batch.
type poolExecutor struct {
	strategy Strategy
}

func (p *poolExecutor) Run(ctx context.Context, tasks []Task) BatchResult {
	var (
		mu  sync.Mutex
		res BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.strategy.Workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			err := runWithTimeout(gctx, task, p.strategy.TaskTimeout)
			mu.Lock()
			res.record(err)
			mu.Unlock()
			// Errors are aggregated, never returned: one NPC's failure
			// must not cancel the group.
			return nil
		})
	}
	g.Wait()
	return res
}

// pacedExecutor runs tasks one at a time, paced to bound store load.
type pacedExecutor struct {
	strategy Strategy
}

func (p *pacedExecutor) Run(ctx context.Context, tasks []Task) BatchResult {
	var res BatchResult
	limiter := rate.NewLimiter(rate.Limit(p.strategy.PerSecond), 1)
	for _, task := range tasks {
		if err := limiter.Wait(ctx); err != nil {
			res.record(npc.Timeoutf("pacing interrupted: %v", err))
			continue
		}
		res.record(runWithTimeout(ctx, task, p.strategy.TaskTimeout))
	}
	return res
}

// analyticExecutor never dispatches per-entity work; callers handle the tier
// through DeriveStatistics instead.
type analyticExecutor struct{}

func (analyticExecutor) Run(context.Context, []Task) BatchResult {
	return BatchResult{}
}

func runWithTimeout(ctx context.Context, task Task, timeout time.Duration) error {
	tctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := task(tctx)
	if err != nil && tctx.Err() == context.DeadlineExceeded {
		return npc.Timeoutf("task exceeded %s budget", timeout)
	}
	return err
}
