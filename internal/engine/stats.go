package engine

import (
	"math"

	"github.com/talgya/privacy-world/internal/agents"
	"github.com/talgya/privacy-world/internal/world"
)

// StepStats are population aggregates at one moment.
type StepStats struct {
	Timestep     uint64                `json:"timestep"`
	Agents       int                   `json:"agents"`
	AvgHappiness float64               `json:"avg_happiness"`
	MinHappiness float64               `json:"min_happiness"`
	MaxHappiness float64               `json:"max_happiness"`
	AvgReward    float64               `json:"avg_reward"`
	BelowAverage int                   `json:"below_average"`
	Actions      [world.NumActions]int `json:"actions"`
}

// AgentSnapshot is one agent's committed decision for a step.
type AgentSnapshot struct {
	ID          agents.AgentID     `json:"id"`
	PrivacyType agents.PrivacyType `json:"privacy_type"`
	Location    world.LocationID   `json:"location"`
	Action      world.Action       `json:"action"`
	Happiness   float64            `json:"happiness"`
	Reward      float64            `json:"reward"`
	Companions  int                `json:"companions"`
}

// StepRecord is the output of one step: the aggregates of the state the step
// started from, then every agent's decision made during it.
type StepRecord struct {
	Timestep uint64          `json:"timestep"`
	Stats    StepStats       `json:"stats"`
	Agents   []AgentSnapshot `json:"agents"`
}

func snapshotOf(a *agents.Agent) AgentSnapshot {
	snap := AgentSnapshot{
		ID:          a.ID,
		PrivacyType: a.PrivacyType,
		Location:    a.Location,
		Action:      a.Action,
		Happiness:   a.Happiness,
		Reward:      a.Reward,
		Companions:  len(a.Companions),
	}
	// The location that mattered is where the agent decided, not where it
	// moved afterwards.
	if rec, ok := a.History().Last(); ok {
		snap.Location = rec.Location
	}
	return snap
}

// Collect computes aggregates over the current agent state.
func (s *Simulation) Collect() StepStats {
	st := StepStats{Timestep: s.timestep, Agents: len(s.Agents)}
	if len(s.Agents) == 0 {
		return st
	}

	st.MinHappiness = math.Inf(1)
	st.MaxHappiness = math.Inf(-1)
	var sumHappy, sumReward float64
	for _, a := range s.Agents {
		sumHappy += a.Happiness
		sumReward += a.Reward
		st.MinHappiness = min(st.MinHappiness, a.Happiness)
		st.MaxHappiness = max(st.MaxHappiness, a.Happiness)
		if a.Action.Valid() {
			st.Actions[a.Action]++
		}
	}
	n := float64(len(s.Agents))
	st.AvgHappiness = sumHappy / n
	st.AvgReward = sumReward / n

	for _, a := range s.Agents {
		if a.Happiness < st.AvgHappiness {
			st.BelowAverage++
		}
	}
	return st
}
