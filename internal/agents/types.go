// Package agents provides the agent data model, preference evaluation,
// companion rewards, the per-agent history store and the decision policies
// that choose how much an agent shares at its current location.
package agents

import (
	"fmt"

	"github.com/talgya/privacy-world/internal/world"
)

// AgentID is a unique identifier for an agent. It equals the agent's node id
// in the social graph.
type AgentID int64

// Rand is the subset of *rand.Rand agents draw from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Agent is one person in the simulation. Its mutable fields are written only
// during its own activation; other agents read Action and Happiness in place.
type Agent struct {
	ID          AgentID      `json:"id"`
	PrivacyType PrivacyType  `json:"privacy_type"`
	Weights     world.Vector `json:"weights"` // pleasure, recognition, privacy, security in [0,1]

	Location   world.LocationID `json:"location"`
	Action     world.Action     `json:"action"`    // Last committed action
	Happiness  float64          `json:"happiness"` // Post-companion score of the committed action
	Reward     float64          `json:"reward"`    // Companion conformity adjustment
	Companions []AgentID        `json:"companions,omitempty"`

	Policy Policy `json:"-"`

	history History
}

// NewAgent creates an agent that has not yet acted.
func NewAgent(id AgentID, weights world.Vector, pt PrivacyType, loc world.LocationID, policy Policy) *Agent {
	return &Agent{
		ID:          id,
		PrivacyType: pt,
		Weights:     weights,
		Location:    loc,
		Action:      world.NoShare,
		Policy:      policy,
	}
}

// History returns the agent's own append-only history.
func (a *Agent) History() *History {
	return &a.history
}

// InvariantViolation reports a broken scheduling or companion invariant. It
// is raised with panic: it can only come from a programming error.
type InvariantViolation struct {
	AgentID AgentID
	Reason  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation for agent %d: %s", e.AgentID, e.Reason)
}
