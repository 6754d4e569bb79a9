// Package api serves the simulation over HTTP. GET endpoints are public
// read-only views; admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sharronesofer/visual-dm-sub009/internal/coordinator"
	"github.com/sharronesofer/visual-dm-sub009/internal/emotion"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
	"github.com/sharronesofer/visual-dm-sub009/internal/scheduler"
	"github.com/sharronesofer/visual-dm-sub009/internal/store"
)

// Server serves the population views and the admin control plane.
type Server struct {
	Store      store.Store
	Coord      *coordinator.Coordinator
	Sched      *scheduler.Scheduler
	Emotion    *emotion.Engine
	Addr       string
	AdminToken string  // Bearer token for admin endpoints. Empty = admin disabled.
	RPS        float64 // Per-client request budget per second. Zero = 5/s.

	http *http.Server
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	rps := s.RPS
	if rps <= 0 {
		rps = 5
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(NewRateLimiter(int(rps*60), time.Minute).Middleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/scheduler", s.handleScheduler)
		r.Get("/npcs", s.handleListNPCs)
		r.Get("/npcs/{id}", s.handleNPC)
		r.Get("/npcs/{id}/emotional", s.handleEmotionalSummary)
		r.Get("/npcs/{id}/personality", s.handlePersonalitySummary)
		r.Get("/npcs/{id}/crises", s.handleCrises)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/daily-pass", s.handleDailyPass)
			r.Post("/mass-crisis", s.handleMassCrisis)
			r.Post("/weather", s.handleWeather)
			r.Post("/tasks/{name}/{action}", s.handleTaskAction)
		})
	})
	return r
}

// Start serves until the context is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{Addr: s.Addr, Handler: s.Router()}
	errc := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", s.Addr, "admin_auth", s.AdminToken != "")
		errc <- s.http.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// adminOnly gates a subtree behind the bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminToken == "" {
			http.Error(w, "admin endpoints disabled (no admin token set)", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeError maps engine error kinds onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch npc.KindOf(err) {
	case npc.KindNotFound:
		status = http.StatusNotFound
	case npc.KindInvalidState:
		status = http.StatusConflict
	case npc.KindThresholdNotMet:
		status = http.StatusUnprocessableEntity
	case npc.KindResourceUnavailable:
		status = http.StatusServiceUnavailable
	case npc.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, npc.InvalidStatef("bad npc id: %v", err)
	}
	return id, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	hs, err := s.Coord.GetSystemHealthStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	stats, err := s.Coord.GetComprehensiveStatistics(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.Sched.Status()})
}

func (s *Server) handleListNPCs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.NPCFilter{Region: q.Get("region"), Limit: 100}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			f.Limit = n
		}
	}
	if v := q.Get("race"); v != "" {
		race, ok := raceByName(v)
		if !ok {
			writeError(w, npc.InvalidStatef("unknown race %q", v))
			return
		}
		f.Race = &race
	}
	npcs, err := s.Store.ListNPCs(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	type entry struct {
		ID     uuid.UUID `json:"id"`
		Name   string    `json:"name"`
		Race   string    `json:"race"`
		Age    int       `json:"age"`
		Phase  string    `json:"lifecycle_phase"`
		Region string    `json:"region"`
	}
	out := make([]entry, 0, len(npcs))
	for _, n := range npcs {
		out = append(out, entry{
			ID:     n.ID,
			Name:   n.Name,
			Race:   n.Race.Name(),
			Age:    n.Age,
			Phase:  n.Phase.Name(),
			Region: n.Region,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"npcs": out, "count": len(out)})
}

func (s *Server) handleNPC(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	// The optimizer's live layers serve this hot path; the store is the
	// fallback for NPCs no recent pass has touched.
	if n, ok := s.Coord.CachedNPC(id); ok {
		writeJSON(w, http.StatusOK, n)
		return
	}
	n, err := s.Store.GetNPC(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleEmotionalSummary mirrors the state plus its recent history: trigger
// log tail, still-running influences, and the clearest memories.
func (s *Server) handleEmotionalSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	state, err := s.Emotion.GetOrCreate(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	triggers, err := s.Store.ListTriggers(ctx, id, 10)
	if err != nil {
		writeError(w, err)
		return
	}
	memories, err := s.Store.ListEmotionalMemories(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	influences, err := s.Store.ListInfluences(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now()
	active := influences[:0]
	for _, in := range influences {
		if in.AppliedAt.AddDate(0, 0, in.DurationDays).After(now) {
			active = append(active, in)
		}
	}
	modifiers, err := s.Emotion.DecisionModifiers(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":              state,
		"current_emotion":    state.Current.Name(),
		"recent_triggers":    triggers,
		"active_influences":  active,
		"memories":           memories,
		"decision_modifiers": modifiers,
	})
}

// handlePersonalitySummary reports the trait profile, evolutions in flight,
// the latest snapshot, and learned memories.
func (s *Server) handlePersonalitySummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := r.Context()
	n, err := s.Store.GetNPC(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	evolutions, err := s.Store.ListEvolutions(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	memories, err := s.Store.ListMemories(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]any{
		"traits":     n.Traits,
		"evolutions": evolutions,
		"memories":   memories,
	}
	if snap, err := s.Store.LatestSnapshot(ctx, id); err == nil {
		out["latest_snapshot"] = snap
	} else if npc.KindOf(err) != npc.KindNotFound {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCrises(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f := store.CrisisFilter{NpcID: id}
	if r.URL.Query().Get("active") == "true" {
		f.ActiveOnly = true
	}
	crises, err := s.Store.ListCrisisResponses(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crises": crises, "count": len(crises)})
}

func (s *Server) handleDailyPass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchSize int `json:"batch_size"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := s.Coord.RunDailyPass(r.Context(), req.BatchSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMassCrisis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type        string   `json:"type"`
		Description string   `json:"description"`
		Severity    float64  `json:"severity"`
		Regions     []string `json:"regions,omitempty"`
		Criteria    string   `json:"criteria,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	typ, ok := crisisTypeByName(req.Type)
	if !ok {
		writeError(w, npc.InvalidStatef("unknown crisis type %q", req.Type))
		return
	}
	if req.Severity < 1 || req.Severity > 10 {
		writeError(w, npc.InvalidStatef("severity %g outside [1,10]", req.Severity))
		return
	}
	report, err := s.Coord.TriggerMassCrisisEvent(r.Context(), typ, req.Description, req.Severity, req.Regions, req.Criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleWeather applies a weather condition to every active NPC in a region
// (or the whole population when no region is given).
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Condition string `json:"condition"`
		Region    string `json:"region,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	weather, ok := weatherByName(req.Condition)
	if !ok {
		writeError(w, npc.InvalidStatef("unknown weather condition %q", req.Condition))
		return
	}
	active := npc.StatusActive
	npcs, err := s.Store.ListNPCs(r.Context(), store.NPCFilter{Status: &active, Region: req.Region})
	if err != nil {
		writeError(w, err)
		return
	}
	affected, failed := 0, 0
	for _, n := range npcs {
		if _, err := s.Emotion.ApplyEnvironmentalEffect(r.Context(), n.ID, weather); err != nil {
			slog.Warn("weather effect failed", "npc", n.ID, "error", err)
			failed++
			continue
		}
		affected++
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"condition": weather.Name(),
		"affected":  affected,
		"failed":    failed,
	})
}

func (s *Server) handleTaskAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var err error
	switch chi.URLParam(r, "action") {
	case "enable":
		err = s.Sched.Enable(name)
	case "disable":
		err = s.Sched.Disable(name)
	case "trigger":
		err = s.Sched.Trigger(r.Context(), name)
	default:
		err = npc.InvalidStatef("unknown task action %q", chi.URLParam(r, "action"))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task": name, "result": "ok"})
}

// decodeBody parses a JSON body, tolerating an empty one when every field
// is optional.
func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return npc.InvalidStatef("bad request body: %v", err)
	}
	return nil
}

func raceByName(name string) (npc.Race, bool) {
	for _, r := range npc.Races() {
		if r.Name() == name {
			return r, true
		}
	}
	return 0, false
}

func weatherByName(name string) (npc.Weather, bool) {
	for _, w := range npc.Weathers() {
		if w.Name() == name {
			return w, true
		}
	}
	return 0, false
}

func crisisTypeByName(name string) (npc.CrisisType, bool) {
	for _, t := range npc.CrisisTypes() {
		if t.Name() == name {
			return t, true
		}
	}
	return 0, false
}
