// Simulation ties the social graph, the agents and the run's random source
// together and advances them one step at a time.
package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/config"
	"github.com/talgya/privacy-world/internal/entropy"
	"github.com/talgya/privacy-world/internal/social"
	"github.com/talgya/privacy-world/internal/world"
)

// Simulation holds the complete world state. It is single-threaded: Step and
// the read accessors must not be called concurrently.
type Simulation struct {
	Config     *config.Config
	Graph      *social.Graph
	Agents     []*agents.Agent
	AgentIndex map[agents.AgentID]*agents.Agent

	// Stats are the pre-step aggregates of the most recent step.
	Stats StepStats

	// OnActivate, if set, runs after each agent's activation.
	OnActivate func(timestep uint64, a *agents.Agent)

	timestep uint64
	src      *entropy.Source
	rewards  agents.RewardEngine
	order    []int
	active   []bool
}

// InvariantError is the panic value for a broken scheduling or companion
// invariant. It is never returned as an error.
type InvariantError struct {
	Timestep uint64
	AgentID  agents.AgentID
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at step %d, agent %d: %s", e.Timestep, e.AgentID, e.Reason)
}

// NewSimulation validates cfg and builds the graph, then the agents, from a
// single source seeded with cfg.Run.Seed. On error nothing is built.
func NewSimulation(cfg *config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := agents.NewPolicy(cfg.PolicyKind(), cfg.Policy.ExploreSteps)
	if err != nil {
		return nil, &config.ValidationError{Field: "policy.name", Reason: err.Error()}
	}

	src := entropy.NewSource(cfg.Run.Seed)
	p := cfg.Population
	graph, err := social.NewWattsStrogatz(p.Agents, p.Degree, p.Rewire, src)
	if err != nil {
		return nil, &config.ValidationError{Field: "population", Reason: err.Error()}
	}

	spawner := agents.NewSpawner(src, cfg.WeightModel(), policy)
	ag := spawner.SpawnPopulation(p.Agents)

	index := make(map[agents.AgentID]*agents.Agent, len(ag))
	order := make([]int, len(ag))
	for i, a := range ag {
		index[a.ID] = a
		order[i] = i
	}

	sim := &Simulation{
		Config:     cfg,
		Graph:      graph,
		Agents:     ag,
		AgentIndex: index,
		src:        src,
		rewards:    cfg.RewardEngine(),
		order:      order,
		active:     make([]bool, len(ag)),
	}
	sim.Stats = sim.Collect()

	slog.Info("simulation created",
		"seed", src.Seed(),
		"agents", len(ag),
		"edges", graph.EdgeCount(),
		"policy", policy.Kind().String(),
		"weights", cfg.WeightModel().String(),
	)
	return sim, nil
}

// Seed returns the seed the run was built from.
func (s *Simulation) Seed() int64 {
	return s.src.Seed()
}

// Timestep returns the number of completed steps.
func (s *Simulation) Timestep() uint64 {
	return s.timestep
}

// Rewards returns the run's companion reward engine.
func (s *Simulation) Rewards() agents.RewardEngine {
	return s.rewards
}

// Rand returns the run's single random source.
func (s *Simulation) Rand() agents.Rand {
	return s.src
}

// Companions returns a's friends currently at a's location, in id order.
func (s *Simulation) Companions(a *agents.Agent) []*agents.Agent {
	var out []*agents.Agent
	for _, id := range s.Graph.Friends(int64(a.ID)) {
		f := s.AgentIndex[agents.AgentID(id)]
		if f != nil && f.Location == a.Location {
			out = append(out, f)
		}
	}
	return out
}

// AverageHappiness is the mean happiness over all agents as they stand now,
// including agents already activated in the current step.
func (s *Simulation) AverageHappiness() float64 {
	if len(s.Agents) == 0 {
		return 0
	}
	total := 0.0
	for _, a := range s.Agents {
		total += a.Happiness
	}
	return total / float64(len(s.Agents))
}

// AgentsAt returns the agents at loc in id order.
func (s *Simulation) AgentsAt(loc world.LocationID) []*agents.Agent {
	var out []*agents.Agent
	for _, a := range s.Agents {
		if a.Location == loc {
			out = append(out, a)
		}
	}
	return out
}

// Occupancy counts agents per location.
func (s *Simulation) Occupancy() [world.NumLocations]int {
	var counts [world.NumLocations]int
	for _, a := range s.Agents {
		counts[a.Location]++
	}
	return counts
}

// Step advances the world by one timestep and returns what happened.
func (s *Simulation) Step() StepRecord {
	stats := s.Collect()
	s.Stats = stats

	s.src.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})

	clear(s.active)
	for _, idx := range s.order {
		a := s.Agents[idx]
		if s.active[idx] {
			panic(&InvariantError{Timestep: s.timestep, AgentID: a.ID, Reason: "activated twice"})
		}
		s.active[idx] = true
		s.activate(a)
	}
	if i := slices.Index(s.active, false); i >= 0 {
		panic(&InvariantError{Timestep: s.timestep, AgentID: s.Agents[i].ID, Reason: "not activated"})
	}

	rec := StepRecord{
		Timestep: s.timestep,
		Stats:    stats,
		Agents:   s.snapshots(),
	}
	s.timestep++

	slog.Debug("step", "timestep", rec.Timestep, "avg_happiness", stats.AvgHappiness)
	if every := s.Config.Run.ReportEvery; every > 0 && s.timestep%every == 0 {
		s.report()
	}
	return rec
}

func (s *Simulation) activate(a *agents.Agent) {
	defer func() {
		if r := recover(); r != nil {
			if v, ok := r.(*agents.InvariantViolation); ok {
				panic(&InvariantError{Timestep: s.timestep, AgentID: v.AgentID, Reason: v.Reason})
			}
			panic(r)
		}
	}()
	a.Step(s)
	if s.OnActivate != nil {
		s.OnActivate(s.timestep, a)
	}
}

func (s *Simulation) snapshots() []AgentSnapshot {
	out := make([]AgentSnapshot, len(s.Agents))
	for i, a := range s.Agents {
		out[i] = snapshotOf(a)
	}
	return out
}

func (s *Simulation) report() {
	now := s.Collect()
	slog.Info("step report",
		"timestep", s.timestep,
		"avg_happiness", fmt.Sprintf("%.3f", now.AvgHappiness),
		"min_happiness", fmt.Sprintf("%.3f", now.MinHappiness),
		"max_happiness", fmt.Sprintf("%.3f", now.MaxHappiness),
		"avg_reward", fmt.Sprintf("%.3f", now.AvgReward),
		"below_average", now.BelowAverage,
		"share_no", now.Actions[world.NoShare],
		"share_friends", now.Actions[world.ShareFriends],
		"share_public", now.Actions[world.SharePublic],
	)
}
