// Package persistence stores simulation runs in SQLite: one row per run, one
// aggregate row per step and one row per agent decision.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/config"
	"github.com/talgya/privacy-world/internal/engine"
	"github.com/talgya/privacy-world/internal/world"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite takes one writer at a time.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		policy TEXT NOT NULL,
		weight_model TEXT NOT NULL,
		agents INTEGER NOT NULL,
		degree INTEGER NOT NULL,
		rewire REAL NOT NULL,
		config_json TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		steps INTEGER NOT NULL DEFAULT 0,
		finished_at TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS step_stats (
		run_id TEXT NOT NULL REFERENCES runs(id),
		timestep INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		avg_happiness REAL NOT NULL,
		min_happiness REAL NOT NULL,
		max_happiness REAL NOT NULL,
		avg_reward REAL NOT NULL,
		below_average INTEGER NOT NULL,
		share_no INTEGER NOT NULL,
		share_friends INTEGER NOT NULL,
		share_public INTEGER NOT NULL,
		PRIMARY KEY (run_id, timestep)
	);

	CREATE TABLE IF NOT EXISTS agent_steps (
		run_id TEXT NOT NULL REFERENCES runs(id),
		timestep INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		privacy_type INTEGER NOT NULL,
		location INTEGER NOT NULL,
		action INTEGER NOT NULL,
		happiness REAL NOT NULL,
		reward REAL NOT NULL,
		companions INTEGER NOT NULL,
		PRIMARY KEY (run_id, timestep, agent_id)
	);

	CREATE INDEX IF NOT EXISTS idx_agent_steps_agent ON agent_steps(run_id, agent_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunMeta describes one simulation run.
type RunMeta struct {
	ID          string     `db:"id" json:"id"`
	Seed        int64      `db:"seed" json:"seed"`
	Policy      string     `db:"policy" json:"policy"`
	WeightModel string     `db:"weight_model" json:"weight_model"`
	Agents      int        `db:"agents" json:"agents"`
	Degree      int        `db:"degree" json:"degree"`
	Rewire      float64    `db:"rewire" json:"rewire"`
	ConfigJSON  string     `db:"config_json" json:"-"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	Steps       uint64     `db:"steps" json:"steps"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// NewRunMeta describes a run of cfg with a fresh id. seed is the seed the
// simulation actually used.
func NewRunMeta(cfg *config.Config, seed int64) RunMeta {
	cfgJSON, _ := json.Marshal(cfg)
	return RunMeta{
		ID:          uuid.NewString(),
		Seed:        seed,
		Policy:      cfg.PolicyKind().String(),
		WeightModel: cfg.WeightModel().String(),
		Agents:      cfg.Population.Agents,
		Degree:      cfg.Population.Degree,
		Rewire:      cfg.Population.Rewire,
		ConfigJSON:  string(cfgJSON),
		StartedAt:   time.Now().UTC(),
	}
}

// SaveRun inserts a run.
func (db *DB) SaveRun(m RunMeta) error {
	_, err := db.conn.Exec(`INSERT INTO runs
		(id, seed, policy, weight_model, agents, degree, rewire, config_json, started_at, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Seed, m.Policy, m.WeightModel, m.Agents, m.Degree, m.Rewire,
		m.ConfigJSON, m.StartedAt, int64(m.Steps),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", m.ID, err)
	}
	return nil
}

// FinishRun records how many steps a run completed.
func (db *DB) FinishRun(runID string, steps uint64) error {
	res, err := db.conn.Exec("UPDATE runs SET steps = ?, finished_at = ? WHERE id = ?",
		int64(steps), time.Now().UTC(), runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", runID)
	}
	slog.Info("run saved", "run", runID, "steps", steps)
	return nil
}

// Runs lists runs, newest first.
func (db *DB) Runs() ([]RunMeta, error) {
	var runs []RunMeta
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started_at DESC")
	return runs, err
}

// Run fetches a single run.
func (db *DB) Run(runID string) (RunMeta, error) {
	var m RunMeta
	err := db.conn.Get(&m, "SELECT * FROM runs WHERE id = ?", runID)
	return m, err
}

// SaveStep writes the aggregates and every agent decision of one step in a
// single transaction.
func (db *DB) SaveStep(runID string, rec engine.StepRecord) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	st := rec.Stats
	_, err = tx.Exec(`INSERT INTO step_stats
		(run_id, timestep, agents, avg_happiness, min_happiness, max_happiness,
		 avg_reward, below_average, share_no, share_friends, share_public)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(rec.Timestep), st.Agents, st.AvgHappiness, st.MinHappiness, st.MaxHappiness,
		st.AvgReward, st.BelowAverage,
		st.Actions[world.NoShare], st.Actions[world.ShareFriends], st.Actions[world.SharePublic],
	)
	if err != nil {
		return fmt.Errorf("insert step %d: %w", rec.Timestep, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO agent_steps
		(run_id, timestep, agent_id, privacy_type, location, action, happiness, reward, companions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range rec.Agents {
		_, err := stmt.Exec(
			runID, int64(rec.Timestep), int64(a.ID), int(a.PrivacyType), int(a.Location),
			int(a.Action), a.Happiness, a.Reward, a.Companions,
		)
		if err != nil {
			return fmt.Errorf("insert agent %d step %d: %w", a.ID, rec.Timestep, err)
		}
	}

	return tx.Commit()
}

type stepStatsRow struct {
	RunID        string  `db:"run_id"`
	Timestep     uint64  `db:"timestep"`
	Agents       int     `db:"agents"`
	AvgHappiness float64 `db:"avg_happiness"`
	MinHappiness float64 `db:"min_happiness"`
	MaxHappiness float64 `db:"max_happiness"`
	AvgReward    float64 `db:"avg_reward"`
	BelowAverage int     `db:"below_average"`
	ShareNo      int     `db:"share_no"`
	ShareFriends int     `db:"share_friends"`
	SharePublic  int     `db:"share_public"`
}

// StepStats returns a run's per-step aggregates in timestep order.
func (db *DB) StepStats(runID string) ([]engine.StepStats, error) {
	var rows []stepStatsRow
	if err := db.conn.Select(&rows,
		"SELECT * FROM step_stats WHERE run_id = ? ORDER BY timestep", runID); err != nil {
		return nil, err
	}

	out := make([]engine.StepStats, len(rows))
	for i, r := range rows {
		out[i] = engine.StepStats{
			Timestep:     r.Timestep,
			Agents:       r.Agents,
			AvgHappiness: r.AvgHappiness,
			MinHappiness: r.MinHappiness,
			MaxHappiness: r.MaxHappiness,
			AvgReward:    r.AvgReward,
			BelowAverage: r.BelowAverage,
			Actions:      [world.NumActions]int{r.ShareNo, r.ShareFriends, r.SharePublic},
		}
	}
	return out, nil
}

// AgentStep is one stored agent decision.
type AgentStep struct {
	Timestep uint64 `json:"timestep"`
	engine.AgentSnapshot
}

type agentStepRow struct {
	RunID       string  `db:"run_id"`
	Timestep    uint64  `db:"timestep"`
	AgentID     int64   `db:"agent_id"`
	PrivacyType uint8   `db:"privacy_type"`
	Location    uint8   `db:"location"`
	Action      uint8   `db:"action"`
	Happiness   float64 `db:"happiness"`
	Reward      float64 `db:"reward"`
	Companions  int     `db:"companions"`
}

// AgentSteps returns one agent's decisions in a run, in timestep order.
func (db *DB) AgentSteps(runID string, agentID agents.AgentID) ([]AgentStep, error) {
	var rows []agentStepRow
	if err := db.conn.Select(&rows,
		"SELECT * FROM agent_steps WHERE run_id = ? AND agent_id = ? ORDER BY timestep",
		runID, int64(agentID)); err != nil {
		return nil, err
	}

	out := make([]AgentStep, len(rows))
	for i, r := range rows {
		out[i] = AgentStep{
			Timestep: r.Timestep,
			AgentSnapshot: engine.AgentSnapshot{
				ID:          agents.AgentID(r.AgentID),
				PrivacyType: agents.PrivacyType(r.PrivacyType),
				Location:    world.LocationID(r.Location),
				Action:      world.Action(r.Action),
				Happiness:   r.Happiness,
				Reward:      r.Reward,
				Companions:  r.Companions,
			},
		}
	}
	return out, nil
}

// Recorder persists every step of a run. Attach Record as the engine's step
// callback; the first write error is kept and later steps are skipped.
type Recorder struct {
	DB    *DB
	RunID string

	steps uint64
	err   error
}

// NewRecorder creates the run row and returns a recorder for it.
func NewRecorder(db *DB, meta RunMeta) (*Recorder, error) {
	if err := db.SaveRun(meta); err != nil {
		return nil, err
	}
	return &Recorder{DB: db, RunID: meta.ID}, nil
}

// Record saves one step.
func (r *Recorder) Record(rec engine.StepRecord) {
	if r.err != nil {
		return
	}
	if err := r.DB.SaveStep(r.RunID, rec); err != nil {
		r.err = err
		slog.Error("saving step failed", "run", r.RunID, "timestep", rec.Timestep, "error", err)
		return
	}
	r.steps++
}

// Finish marks the run complete and returns the first error seen.
func (r *Recorder) Finish() error {
	if r.err != nil {
		return r.err
	}
	return r.DB.FinishRun(r.RunID, r.steps)
}
