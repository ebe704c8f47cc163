package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/config"
	"github.com/talgya/privacy-world/internal/engine"
	"github.com/talgya/privacy-world/internal/logging"
	"github.com/talgya/privacy-world/internal/persistence"
)

// addSimFlags registers the flags that override config values.
func addSimFlags(fs *pflag.FlagSet) {
	fs.Int64("seed", 0, "Random seed (0 picks one)")
	fs.Int("agents", 0, "Number of agents")
	fs.Int("degree", 0, "Friends per agent in the initial ring")
	fs.Float64("rewire", 0, "Friendship rewiring probability")
	fs.String("policy", "", "Decision policy: selfish, majority, epsilon, random")
	fs.String("weights", "", "Weight model: archetype or uniform")
	fs.Uint64("explore", 0, "Exploration steps for the epsilon policy")
	fs.Bool("raw-reward", false, "Do not normalize companion rewards by group size")
	fs.Uint64("steps", 0, "Steps to run")
	fs.Uint64("report-every", 0, "Log a summary every N steps")
	fs.String("db", "", "SQLite database for run storage")
	fs.String("log-level", "", "Log level: info, debug, trace")
	fs.String("trace-dir", ".privsim", "Directory for the decision trace at trace level")
}

// loadConfig reads the config file and environment, applies changed flags
// and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("seed") {
		cfg.Run.Seed, _ = fs.GetInt64("seed")
	}
	if fs.Changed("agents") {
		cfg.Population.Agents, _ = fs.GetInt("agents")
	}
	if fs.Changed("degree") {
		cfg.Population.Degree, _ = fs.GetInt("degree")
	}
	if fs.Changed("rewire") {
		cfg.Population.Rewire, _ = fs.GetFloat64("rewire")
	}
	if fs.Changed("policy") {
		cfg.Policy.Name, _ = fs.GetString("policy")
	}
	if fs.Changed("weights") {
		cfg.Population.WeightModel, _ = fs.GetString("weights")
	}
	if fs.Changed("explore") {
		cfg.Policy.ExploreSteps, _ = fs.GetUint64("explore")
	}
	if raw, _ := fs.GetBool("raw-reward"); raw {
		cfg.Rewards.Normalize = false
	}
	if fs.Changed("steps") {
		cfg.Run.Steps, _ = fs.GetUint64("steps")
	}
	if fs.Changed("report-every") {
		cfg.Run.ReportEvery, _ = fs.GetUint64("report-every")
	}
	if fs.Changed("db") {
		cfg.Storage.Path, _ = fs.GetString("db")
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level, _ = fs.GetString("log-level")
	}
	if fs.Lookup("port") != nil && fs.Changed("port") {
		cfg.API.Port, _ = fs.GetInt("port")
	}
	if fs.Lookup("interval") != nil && fs.Changed("interval") {
		cfg.Run.Interval, _ = fs.GetDuration("interval")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is a simulation with its optional storage and decision trace.
type session struct {
	cfg      *config.Config
	sim      *engine.Simulation
	db       *persistence.DB
	recorder *persistence.Recorder
	trace    *logging.DecisionTrace
}

func newSession(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	slog.SetDefault(logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()))

	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, sim: sim}

	traceDir, _ := cmd.Flags().GetString("trace-dir")
	if s.trace = logging.NewDecisionTrace(traceDir, cfg.Logging.Level); s.trace != nil {
		sim.OnActivate = s.traceDecision
	}

	if cfg.Storage.Path != "" {
		db, err := persistence.Open(cfg.Storage.Path)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("opening storage: %w", err)
		}
		s.db = db
		rec, err := persistence.NewRecorder(db, persistence.NewRunMeta(cfg, sim.Seed()))
		if err != nil {
			s.close()
			return nil, fmt.Errorf("recording run: %w", err)
		}
		s.recorder = rec
		slog.Info("recording run", "run", rec.RunID, "db", cfg.Storage.Path)
	}
	return s, nil
}

func (s *session) runID() string {
	if s.recorder == nil {
		return ""
	}
	return s.recorder.RunID
}

// onStep persists the record when storage is enabled.
func (s *session) onStep(rec engine.StepRecord) {
	if s.recorder != nil {
		s.recorder.Record(rec)
	}
}

func (s *session) traceDecision(step uint64, a *agents.Agent) {
	last, ok := a.History().Last()
	if !ok {
		return
	}
	s.trace.Write(map[string]any{
		"timestep":   step,
		"agent":      a.ID,
		"privacy":    a.PrivacyType.String(),
		"location":   last.Location.String(),
		"action":     last.Action.String(),
		"happiness":  last.Happiness,
		"reward":     last.Reward,
		"companions": last.Companions,
	})
}

// finish records completion and releases resources.
func (s *session) finish() error {
	var err error
	if s.recorder != nil {
		err = s.recorder.Finish()
	}
	s.close()
	return err
}

func (s *session) close() {
	if s.trace != nil {
		s.trace.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}
