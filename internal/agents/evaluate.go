package agents

import (
	"github.com/talgya/privacy-world/internal/world"
)

// Scores holds one utility per action, indexed by world.Action.
type Scores [world.NumActions]float64

// Evaluate scores each action for an agent with weights w at loc:
//
//	score(a) = Σ_d w[d] · attr[d] · cost[d][a]
//
// It is pure. All-zero weights give all-zero scores.
func Evaluate(w world.Vector, loc *world.Location) Scores {
	var s Scores
	for d := world.Attribute(0); d < world.NumAttributes; d++ {
		weighted := w[d] * loc.Attributes[d]
		for _, a := range world.Actions {
			s[a] += weighted * loc.Cost(d, a)
		}
	}
	return s
}

// Max returns the highest score.
func (s Scores) Max() float64 {
	m := s[0]
	for _, v := range s[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Best returns the first action, in enumeration order, whose score equals
// the maximum.
func (s Scores) Best() world.Action {
	m := s.Max()
	for _, a := range world.Actions {
		if s[a] == m {
			return a
		}
	}
	return world.NoShare
}
