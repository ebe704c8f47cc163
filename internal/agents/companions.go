// Companion rewards: conformity with co-located friends raises the score of
// the chosen action, disagreement lowers it.
package agents

import (
	"github.com/talgya/privacy-world/internal/world"
)

// Default conformity constants.
const (
	DefaultConformBonus   = 5.0
	DefaultDiscordPenalty = 2.0
)

// RewardEngine computes the companion reward for a chosen action. One engine
// is configured per run and shared by every agent.
type RewardEngine struct {
	ConformBonus   float64 `json:"conform_bonus"`
	DiscordPenalty float64 `json:"discord_penalty"`

	// Normalize scales a non-zero reward by 2/|companions|.
	Normalize bool `json:"normalize"`
}

// DefaultRewards returns bonus 5, penalty 2, normalized.
func DefaultRewards() RewardEngine {
	return RewardEngine{
		ConformBonus:   DefaultConformBonus,
		DiscordPenalty: DefaultDiscordPenalty,
		Normalize:      true,
	}
}

// Reward returns the conformity reward for taking action among companions,
// judged against each companion's current action.
func (e RewardEngine) Reward(action world.Action, companions []*Agent) float64 {
	if len(companions) == 0 {
		return 0
	}
	reward := 0.0
	for _, c := range companions {
		if c.Action == action {
			reward += e.ConformBonus
		} else {
			reward -= e.DiscordPenalty
		}
	}
	if e.Normalize && reward != 0 {
		reward = reward * 2 / float64(len(companions))
	}
	return reward
}

// Apply returns the adjusted score and the reward. It has no side effects.
func (e RewardEngine) Apply(score float64, action world.Action, companions []*Agent) (adjusted, reward float64) {
	reward = e.Reward(action, companions)
	return score + reward, reward
}
