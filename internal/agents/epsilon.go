// Epsilon-greedy learning: explore uniformly for a bootstrap phase, then pick
// the actions that historically rewarded unhappy companions best, never at
// the expense of an agent already below average.
package agents

import (
	"github.com/talgya/privacy-world/internal/world"
)

// DefaultExploreSteps is the length of the exploration phase.
const DefaultExploreSteps = 50

// NoPreference is returned by the learner when it has nothing to go on. The
// caller falls back to the selfish action.
const NoPreference world.Action = 4

// EpsilonGreedy is the learning policy.
type EpsilonGreedy struct {
	ExploreSteps uint64
}

func (EpsilonGreedy) Kind() PolicyKind { return PolicyEpsilon }

// Exploring reports whether timestep falls in the exploration phase.
func (p EpsilonGreedy) Exploring(timestep uint64) bool {
	return timestep < p.ExploreSteps
}

// Decide walks Evaluate → ChooseCandidate → ScoreWithCompanions → Accept or
// RevertToSelfish.
func (p EpsilonGreedy) Decide(d *Decision) world.Action {
	selfish := d.Scores.Best()
	explore := p.Exploring(d.Timestep)

	var candidate world.Action
	if explore {
		candidate = world.Action(d.Rand.Intn(world.NumActions))
	} else {
		candidate = p.Exploit(d)
		if candidate == NoPreference {
			return selfish
		}
	}

	// Exploration is unconditional; afterwards a candidate must not leave
	// the agent worse off than acting selfishly.
	adjusted, _ := d.Rewards.Apply(d.Scores[candidate], candidate, d.Companions)
	if !explore && adjusted < d.Scores[selfish] {
		return selfish
	}
	return candidate
}

// Exploit returns the learned candidate, or NoPreference when the agent has
// no history, is below average, or has no unhappy companion.
func (p EpsilonGreedy) Exploit(d *Decision) world.Action {
	if len(d.Companions) == 0 || d.Agent.History().Len() == 0 {
		return NoPreference
	}

	avg := d.AverageHappiness()
	if d.Agent.Happiness < avg {
		return NoPreference
	}

	var choices []world.Action
	for _, c := range d.Companions {
		if c.Happiness >= avg {
			continue
		}
		best, _ := d.Agent.History().BestResponse(c.ID)
		choices = append(choices, best)
	}
	if len(choices) == 0 {
		return NoPreference
	}
	return choices[d.Rand.Intn(len(choices))]
}
