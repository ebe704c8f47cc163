// Agent behavior: one activation runs Decision (evaluate, gather companions,
// choose, apply companion reward, commit, record) and then Mobility.
package agents

import (
	"github.com/talgya/privacy-world/internal/world"
)

// Env is the world as one agent sees it during its activation.
type Env interface {
	Timestep() uint64
	Companions(a *Agent) []*Agent
	AverageHappiness() float64
	Rewards() RewardEngine
	Rand() Rand
}

// Step runs one full activation: Decision at the current location, then a
// move to the location used at the next step.
func (a *Agent) Step(env Env) world.Action {
	action := a.Decide(env)
	a.Location = world.Move(env.Rand())
	return action
}

// Decide commits this step's action, happiness and reward and appends the
// history record. Companion state is read in place, so companions activated
// earlier in the same step are seen with their new values.
func (a *Agent) Decide(env Env) world.Action {
	loc := world.Get(a.Location)
	scores := Evaluate(a.Weights, loc)

	companions := env.Companions(a)
	ids := make([]AgentID, 0, len(companions))
	for _, c := range companions {
		if c.ID == a.ID {
			panic(&InvariantViolation{AgentID: a.ID, Reason: "agent is its own companion"})
		}
		ids = append(ids, c.ID)
	}

	policy := a.Policy
	if policy == nil {
		policy = Selfish{}
	}
	rewards := env.Rewards()
	action := policy.Decide(&Decision{
		Agent:            a,
		Scores:           scores,
		Companions:       companions,
		Timestep:         env.Timestep(),
		Rewards:          rewards,
		Rand:             env.Rand(),
		AverageHappiness: env.AverageHappiness,
	})
	if !action.Valid() {
		panic(&InvariantViolation{AgentID: a.ID, Reason: "policy returned " + action.String()})
	}

	happiness, reward := rewards.Apply(scores[action], action, companions)
	a.Action = action
	a.Happiness = happiness
	a.Reward = reward
	a.Companions = ids

	a.history.Append(Record{
		Timestep:   env.Timestep(),
		AgentID:    a.ID,
		Companions: ids,
		Location:   a.Location,
		Action:     action,
		Reward:     reward,
		Happiness:  happiness,
	})
	return action
}
