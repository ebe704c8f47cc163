package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/config"
	"github.com/talgya/privacy-world/internal/engine"
	"github.com/talgya/privacy-world/internal/persistence"
	"github.com/talgya/privacy-world/internal/world"
)

func fixtureRecord(step uint64) engine.StepRecord {
	return engine.StepRecord{
		Timestep: step,
		Stats:    engine.StepStats{Timestep: step, Agents: 3, AvgHappiness: 1.5},
		Agents: []engine.AgentSnapshot{
			{ID: 0, PrivacyType: agents.Cautious, Location: world.Beach, Action: world.SharePublic, Happiness: 1.1},
			{ID: 1, PrivacyType: agents.Casual, Location: world.Surgery, Action: world.NoShare, Happiness: 0.9, Companions: 1},
			{ID: 2, PrivacyType: agents.Casual, Location: world.Beach, Action: world.SharePublic, Happiness: 2.5},
		},
	}
}

func newTestServer(t *testing.T, setup ...func(*Server)) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(RunInfo{Seed: 9, Policy: "selfish", Agents: 3}, 0)
	for _, fn := range setup {
		fn(s)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestStatusBeforeAndAfterPublish(t *testing.T) {
	s, ts := newTestServer(t)

	var status map[string]any
	getJSON(t, ts.URL+"/api/v1/status", &status)
	assert.Nil(t, status["timestep"])
	assert.Equal(t, "selfish", status["run"].(map[string]any)["policy"])

	s.Publish(fixtureRecord(4))
	getJSON(t, ts.URL+"/api/v1/status", &status)
	assert.Equal(t, 4.0, status["timestep"])
}

func TestAgentsFilters(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(fixtureRecord(0))

	tests := []struct {
		query string
		ids   []agents.AgentID
	}{
		{"", []agents.AgentID{0, 1, 2}},
		{"?location=beach", []agents.AgentID{0, 2}},
		{"?privacy=CASUAL", []agents.AgentID{1, 2}},
		{"?action=SHARE_PUBLIC&privacy=casual", []agents.AgentID{2}},
		{"?location=SPEED_TICKET", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []agentView
			resp := getJSON(t, ts.URL+"/api/v1/agents"+tt.query, &got)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var ids []agents.AgentID
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}

	resp := getJSON(t, ts.URL+"/api/v1/agents?location=moon", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentDetail(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(fixtureRecord(2))

	var got struct {
		Timestep uint64    `json:"timestep"`
		Agent    agentView `json:"agent"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/agent/1", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(2), got.Timestep)
	assert.Equal(t, "SURGERY", got.Agent.Location)
	assert.Equal(t, "SHARE_NO", got.Agent.Action)
	assert.Equal(t, "CASUAL", got.Agent.PrivacyType)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/3", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/agent/x", nil).StatusCode)
	assert.Equal(t, http.StatusNotImplemented, getJSON(t, ts.URL+"/api/v1/agent/1/history", nil).StatusCode)
}

func TestStatsHistory(t *testing.T) {
	s, ts := newTestServer(t)
	for i := uint64(0); i < 5; i++ {
		s.Publish(fixtureRecord(i))
	}

	var all []engine.StepStats
	getJSON(t, ts.URL+"/api/v1/stats", &all)
	require.Len(t, all, 5)
	assert.Equal(t, uint64(0), all[0].Timestep)

	var last2 []engine.StepStats
	getJSON(t, ts.URL+"/api/v1/stats?limit=2", &last2)
	require.Len(t, last2, 2)
	assert.Equal(t, uint64(3), last2[0].Timestep)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/v1/stats?limit=0", nil).StatusCode)
}

func TestLocations(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(fixtureRecord(0))

	var got []struct {
		Name    string         `json:"name"`
		Agents  int            `json:"agents"`
		Actions map[string]int `json:"actions"`
	}
	getJSON(t, ts.URL+"/api/v1/locations", &got)
	require.Len(t, got, world.NumLocations)
	assert.Equal(t, "BEACH", got[world.Beach].Name)
	assert.Equal(t, 2, got[world.Beach].Agents)
	assert.Equal(t, 2, got[world.Beach].Actions["SHARE_PUBLIC"])
	assert.Equal(t, 0, got[world.Beach].Actions["SHARE_NO"])
	assert.Equal(t, 1, got[world.Surgery].Agents)
}

func TestPostRejected(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/v1/status", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRunsAndHistoryWithStorage(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()

	cfg := config.Default()
	cfg.Population.Agents = 3
	cfg.Population.Degree = 2
	meta := persistence.NewRunMeta(cfg, 9)
	require.NoError(t, db.SaveRun(meta))
	require.NoError(t, db.SaveStep(meta.ID, fixtureRecord(0)))
	require.NoError(t, db.SaveStep(meta.ID, fixtureRecord(1)))

	_, ts := newTestServer(t, func(s *Server) {
		s.DB = db
		s.Info.RunID = meta.ID
	})

	var runs []persistence.RunMeta
	getJSON(t, ts.URL+"/api/v1/runs", &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, meta.ID, runs[0].ID)

	var hist []struct {
		Timestep uint64 `json:"timestep"`
		Action   string `json:"action"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/agent/2/history", &hist)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, hist, 2)
	assert.Equal(t, uint64(1), hist[1].Timestep)
	assert.Equal(t, "SHARE_PUBLIC", hist[1].Action)

	assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/agent/7/history", nil).StatusCode)
}

func TestStreamDeliversSteps(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(fixtureRecord(0))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream?agents=true"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() StreamMessage {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, "step", first.Type)
	assert.Equal(t, uint64(0), first.Timestep)
	assert.Len(t, first.Agents, 3)

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)
	s.Publish(fixtureRecord(1))
	next := read()
	assert.Equal(t, uint64(1), next.Timestep)
	assert.Equal(t, "BEACH", next.Agents[2].Location)
}

func TestStreamBriefOmitsAgents(t *testing.T) {
	s, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)
	s.Publish(fixtureRecord(3))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, uint64(3), msg.Timestep)
	assert.Empty(t, msg.Agents)
}

func TestStreamServedFromSimulation(t *testing.T) {
	cfg := config.Default()
	cfg.Population.Agents = 20
	cfg.Run.Seed = 5
	sim, err := engine.NewSimulation(cfg)
	require.NoError(t, err)

	eng := engine.NewEngine(sim)
	s, ts := newTestServer(t, func(s *Server) { s.Eng = eng })
	eng.OnStep = s.Publish
	eng.RunSteps(3)

	var status map[string]any
	getJSON(t, ts.URL+"/api/v1/status", &status)
	assert.Equal(t, 2.0, status["timestep"])
	assert.Equal(t, 3.0, status["steps"])
	assert.Equal(t, false, status["running"])
}
