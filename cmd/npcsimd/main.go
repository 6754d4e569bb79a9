// Command npcsimd runs the background NPC population simulation daemon.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sharronesofer/visual-dm-sub009/internal/api"
	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/coordinator"
	"github.com/sharronesofer/visual-dm-sub009/internal/crisis"
	"github.com/sharronesofer/visual-dm-sub009/internal/economy"
	"github.com/sharronesofer/visual-dm-sub009/internal/emotion"
	"github.com/sharronesofer/visual-dm-sub009/internal/perf"
	"github.com/sharronesofer/visual-dm-sub009/internal/personality"
	"github.com/sharronesofer/visual-dm-sub009/internal/scheduler"
	"github.com/sharronesofer/visual-dm-sub009/internal/sim"
	"github.com/sharronesofer/visual-dm-sub009/internal/store/sqlite"
	"github.com/sharronesofer/visual-dm-sub009/internal/tier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("npcsimd — autonomous NPC population simulation")

	tun := config.DefaultTuning()
	if cfg.TuningPath != "" {
		tun, err = config.LoadTuning(cfg.TuningPath)
		if err != nil {
			slog.Error("failed to load tuning", "path", cfg.TuningPath, "error", err)
			os.Exit(1)
		}
		slog.Info("tuning loaded", "path", cfg.TuningPath)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	slog.Info("simulation seed", "seed", seed)

	// ── Database ──────────────────────────────────────────────────────
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Engines ───────────────────────────────────────────────────────
	emo := emotion.New(db, tun, sim.NewRand(seed))
	per := personality.New(db, tun, sim.NewRand(seed+1))
	eco := economy.New(db, tun.EconomicCrashThreshold, sim.NewRand(seed+2))
	cri := crisis.New(db, emo, per, eco, tun, sim.NewRand(seed+3))
	tiers := tier.New(db)
	opt := perf.NewOptimizer(tun)
	coord := coordinator.New(db, tiers, emo, per, cri, eco, opt, tun)

	// ── Scheduler ─────────────────────────────────────────────────────
	sched := scheduler.New(tun)
	register := func(name string, cadence scheduler.Cadence, fn scheduler.TaskFunc) {
		if err := sched.Register(name, cadence, fn); err != nil {
			slog.Error("failed to register task", "task", name, "error", err)
			os.Exit(1)
		}
	}
	register("daily_pass", scheduler.Daily, func(ctx context.Context) error {
		_, err := coord.RunDailyPass(ctx, 0)
		return err
	})
	register("tier_review", scheduler.Weekly, func(ctx context.Context) error {
		moves, err := tiers.ReviewAll(ctx)
		if err != nil {
			return err
		}
		slog.Info("tier review complete", "moves", moves)
		return nil
	})
	register("economy_cycle", scheduler.Monthly, eco.Advance)
	register("cache_cleanup", scheduler.Hourly, func(context.Context) error {
		evicted := opt.Cleanup()
		if evicted > 0 {
			slog.Debug("cache cleanup", "evicted", evicted)
		}
		return nil
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminToken == "" {
		slog.Warn("NPCSIM_ADMIN_TOKEN not set — admin endpoints disabled")
	}
	srv := &api.Server{
		Store:      db,
		Coord:      coord,
		Sched:      sched,
		Emotion:    emo,
		Addr:       cfg.ListenAddr,
		AdminToken: cfg.AdminToken,
		RPS:        cfg.RequestsPerSec,
	}
	if err := srv.Start(ctx); err != nil {
		slog.Error("http server failed", "error", err)
	}

	// The signal context is done (or the listener died): drain the
	// scheduler within the configured grace window.
	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("scheduler drained")
	case <-time.After(cfg.ShutdownGrace):
		slog.Warn("shutdown grace expired with tasks still running", "grace", cfg.ShutdownGrace)
	}
	slog.Info("npcsimd stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
