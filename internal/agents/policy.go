// Decision policies: a closed set of strategies that pick the action an agent
// commits to, given its evaluated scores and the companions present.
package agents

import (
	"fmt"
	"strings"

	"github.com/talgya/privacy-world/internal/world"
)

// PolicyKind names a decision policy.
type PolicyKind uint8

const (
	PolicySelfish  PolicyKind = iota // Maximise own utility
	PolicyMajority                   // Follow a strict companion majority
	PolicyEpsilon                    // Explore, then learn from history
	PolicyRandom                     // Uniform baseline
)

var policyNames = [...]string{"selfish", "majority", "epsilon", "random"}

func (k PolicyKind) String() string {
	if int(k) < len(policyNames) {
		return policyNames[k]
	}
	return fmt.Sprintf("policy(%d)", uint8(k))
}

// ParsePolicy accepts the policy names plus a few aliases.
func ParsePolicy(s string) (PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "selfish", "basic":
		return PolicySelfish, nil
	case "majority":
		return PolicyMajority, nil
	case "epsilon", "epsilon-greedy", "learning", "sipa":
		return PolicyEpsilon, nil
	case "random":
		return PolicyRandom, nil
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// Policy selects the action to commit to. Implementations must not mutate
// the deciding agent or its companions.
type Policy interface {
	Kind() PolicyKind
	Decide(d *Decision) world.Action
}

// Decision is everything a policy may read during one activation.
type Decision struct {
	Agent      *Agent
	Scores     Scores
	Companions []*Agent
	Timestep   uint64
	Rewards    RewardEngine
	Rand       Rand

	// AverageHappiness is evaluated lazily; only learning policies need it.
	AverageHappiness func() float64
}

// NewPolicy builds the policy for kind. exploreSteps only applies to the
// epsilon-greedy policy.
func NewPolicy(kind PolicyKind, exploreSteps uint64) (Policy, error) {
	switch kind {
	case PolicySelfish:
		return Selfish{}, nil
	case PolicyMajority:
		return Majority{}, nil
	case PolicyEpsilon:
		return EpsilonGreedy{ExploreSteps: exploreSteps}, nil
	case PolicyRandom:
		return Random{}, nil
	}
	return nil, fmt.Errorf("unknown policy kind %d", kind)
}

// Selfish maximises the agent's own evaluated score.
type Selfish struct{}

func (Selfish) Kind() PolicyKind { return PolicySelfish }

func (Selfish) Decide(d *Decision) world.Action {
	return d.Scores.Best()
}

// Majority starts from the selfish choice and conforms to any action held by
// a strict majority of the companions present.
type Majority struct{}

func (Majority) Kind() PolicyKind { return PolicyMajority }

func (Majority) Decide(d *Decision) world.Action {
	if a, ok := MajorityAction(d.Companions); ok {
		return a
	}
	return d.Scores.Best()
}

// MajorityAction returns the action held by more than half of companions.
func MajorityAction(companions []*Agent) (world.Action, bool) {
	if len(companions) == 0 {
		return 0, false
	}
	var counts [world.NumActions]int
	for _, c := range companions {
		if c.Action.Valid() {
			counts[c.Action]++
		}
	}
	for _, a := range world.Actions {
		if counts[a]*2 > len(companions) {
			return a, true
		}
	}
	return 0, false
}

// Random commits to a uniformly drawn action regardless of utility.
type Random struct{}

func (Random) Kind() PolicyKind { return PolicyRandom }

func (Random) Decide(d *Decision) world.Action {
	return world.Action(d.Rand.Intn(world.NumActions))
}
