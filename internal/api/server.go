// Package api provides the HTTP API for observing a running simulation.
// Handlers only read what the engine publishes after each step, never the
// live simulation, so they are safe to serve while the engine runs.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/engine"
	"github.com/talgya/privacy-world/internal/persistence"
	"github.com/talgya/privacy-world/internal/world"
)

// maxStatsHistory bounds the per-step aggregates kept in memory.
const maxStatsHistory = 1000

// RunInfo describes the run being served.
type RunInfo struct {
	RunID  string `json:"run_id,omitempty"`
	Seed   int64  `json:"seed"`
	Policy string `json:"policy"`
	Agents int    `json:"agents"`
}

// Server serves published step records over HTTP.
type Server struct {
	Info RunInfo
	Eng  *engine.Engine  // Optional; reports running state and step count
	DB   *persistence.DB // Optional; enables run and agent history queries
	Port int

	mu      sync.RWMutex
	latest  *engine.StepRecord
	history []engine.StepStats

	hub      *hub
	upgrader websocket.Upgrader
	limiter  *RateLimiter
}

// NewServer creates a server with no published steps.
func NewServer(info RunInfo, port int) *Server {
	return &Server{
		Info: info,
		Port: port,
		hub:  newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limiter: NewRateLimiter(30, time.Minute),
	}
}

// Publish makes rec the current state and forwards it to stream clients.
// It is meant to be the engine's OnStep callback.
func (s *Server) Publish(rec engine.StepRecord) {
	s.mu.Lock()
	s.latest = &rec
	s.history = append(s.history, rec.Stats)
	if len(s.history) > maxStatsHistory {
		s.history = s.history[len(s.history)-maxStatsHistory:]
	}
	s.mu.Unlock()

	s.hub.broadcast(rec)
}

// Latest returns the most recent record, if any step has been published.
func (s *Server) Latest() (engine.StepRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return engine.StepRecord{}, false
	}
	return *s.latest, true
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/agent/", s.handleAgentRoutes)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)

	// Upgrades are rate limited per client; messages are not.
	mux.HandleFunc("/api/v1/stream", RateLimitMiddleware(s.limiter, s.handleStream))

	return corsMiddleware(getOnly(mux))
}

// Start begins serving in a goroutine and returns the server for shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "history", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Close disconnects stream clients and stops the rate limiter.
func (s *Server) Close() {
	s.hub.close()
	s.limiter.Close()
}

// corsMiddleware allows localhost dev servers plus the comma-separated
// origins in PRIVSIM_CORS_ORIGINS.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range strings.Split(os.Getenv("PRIVSIM_CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getOnly rejects anything but GET; the API has no control plane.
func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodOptions {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":     "privacy-world",
		"run":      s.Info,
		"timestep": nil,
		"clients":  s.hub.count(),
	}
	if rec, ok := s.Latest(); ok {
		status["timestep"] = rec.Timestep
		status["stats"] = rec.Stats
	}
	if s.Eng != nil {
		status["running"] = s.Eng.Running()
		status["steps"] = s.Eng.Steps()
	}
	writeJSON(w, status)
}

// agentView is a snapshot with enum fields spelled out.
type agentView struct {
	ID          agents.AgentID `json:"id"`
	PrivacyType string         `json:"privacy_type"`
	Location    string         `json:"location"`
	Action      string         `json:"action"`
	Happiness   float64        `json:"happiness"`
	Reward      float64        `json:"reward"`
	Companions  int            `json:"companions"`
}

func viewOf(a engine.AgentSnapshot) agentView {
	return agentView{
		ID:          a.ID,
		PrivacyType: a.PrivacyType.String(),
		Location:    a.Location.String(),
		Action:      a.Action.String(),
		Happiness:   a.Happiness,
		Reward:      a.Reward,
		Companions:  a.Companions,
	}
}

// agentFilter holds the optional ?location=, ?privacy= and ?action= filters.
type agentFilter struct {
	location *world.LocationID
	privacy  *agents.PrivacyType
	action   *world.Action
}

func parseAgentFilter(r *http.Request) (agentFilter, error) {
	var f agentFilter
	q := r.URL.Query()
	if v := q.Get("location"); v != "" {
		loc, ok := world.Lookup(v)
		if !ok {
			return f, fmt.Errorf("unknown location %q", v)
		}
		f.location = &loc
	}
	if v := q.Get("privacy"); v != "" {
		pt, err := agents.ParsePrivacyType(v)
		if err != nil {
			return f, err
		}
		f.privacy = &pt
	}
	if v := q.Get("action"); v != "" {
		a, err := world.ParseAction(v)
		if err != nil {
			return f, err
		}
		f.action = &a
	}
	return f, nil
}

func (f agentFilter) match(a engine.AgentSnapshot) bool {
	switch {
	case f.location != nil && a.Location != *f.location:
		return false
	case f.privacy != nil && a.PrivacyType != *f.privacy:
		return false
	case f.action != nil && a.Action != *f.action:
		return false
	}
	return true
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAgentFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := []agentView{}
	rec, _ := s.Latest()
	for _, a := range rec.Agents {
		if filter.match(a) {
			result = append(result, viewOf(a))
		}
	}
	writeJSON(w, result)
}

// handleAgentRoutes serves /api/v1/agent/{id} and /api/v1/agent/{id}/history.
func (s *Server) handleAgentRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api, v1, agent, {id}[, history]
	if len(parts) < 4 || len(parts) > 5 {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id < 0 {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	if len(parts) == 5 {
		if parts[4] != "history" {
			http.NotFound(w, r)
			return
		}
		s.handleAgentHistory(w, agents.AgentID(id))
		return
	}

	rec, _ := s.Latest()
	if id >= int64(len(rec.Agents)) {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"timestep": rec.Timestep,
		"agent":    viewOf(rec.Agents[id]),
	})
}

func (s *Server) handleAgentHistory(w http.ResponseWriter, id agents.AgentID) {
	if s.DB == nil || s.Info.RunID == "" {
		http.Error(w, "history requires storage", http.StatusNotImplemented)
		return
	}
	steps, err := s.DB.AgentSteps(s.Info.RunID, id)
	if err != nil {
		slog.Error("agent history query failed", "agent", id, "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if len(steps) == 0 {
		http.Error(w, "agent not found", http.StatusNotFound)
		return
	}

	type historyEntry struct {
		Timestep uint64 `json:"timestep"`
		agentView
	}
	out := make([]historyEntry, len(steps))
	for i, st := range steps {
		out[i] = historyEntry{Timestep: st.Timestep, agentView: viewOf(st.AgentSnapshot)}
	}
	writeJSON(w, out)
}

// handleStats returns recent per-step aggregates, oldest first. ?limit=N
// keeps the last N.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	limit := maxStatsHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.mu.RLock()
	hist := s.history
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := append([]engine.StepStats{}, hist...)
	s.mu.RUnlock()

	writeJSON(w, out)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	type locationSummary struct {
		ID         world.LocationID `json:"id"`
		Name       string           `json:"name"`
		Attributes world.Vector     `json:"attributes"`
		Agents     int              `json:"agents"`
		Actions    map[string]int   `json:"actions"`
	}

	rec, _ := s.Latest()
	cat := world.Catalogue()
	result := make([]locationSummary, len(cat))
	for i, loc := range cat {
		result[i] = locationSummary{
			ID:         loc.ID,
			Name:       loc.Name,
			Attributes: loc.Attributes,
			Actions:    make(map[string]int, world.NumActions),
		}
		for _, a := range world.Actions {
			result[i].Actions[a.String()] = 0
		}
	}
	for _, a := range rec.Agents {
		if !a.Location.Valid() {
			continue
		}
		result[a.Location].Agents++
		result[a.Location].Actions[a.Action.String()]++
	}
	writeJSON(w, result)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "runs require storage", http.StatusNotImplemented)
		return
	}
	runs, err := s.DB.Runs()
	if err != nil {
		slog.Error("runs query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []persistence.RunMeta{}
	}
	writeJSON(w, runs)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
