// Agent spawning: creates the initial population with personal weights,
// privacy type, policy and a starting location.
package agents

import (
	"github.com/talgya/privacy-world/internal/world"
)

// Spawner creates agents for the simulation. It draws from the run's shared
// generator, so spawning order is part of the reproducible sequence.
type Spawner struct {
	rng     Rand
	nextID  AgentID
	weights WeightModel
	policy  Policy
}

// NewSpawner creates a spawner issuing ids from 0.
func NewSpawner(r Rand, weights WeightModel, policy Policy) *Spawner {
	if policy == nil {
		policy = Selfish{}
	}
	return &Spawner{
		rng:     r,
		weights: weights,
		policy:  policy,
	}
}

// SpawnPopulation creates count agents with consecutive ids.
func (s *Spawner) SpawnPopulation(count int) []*Agent {
	out := make([]*Agent, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.spawnOne())
	}
	return out
}

func (s *Spawner) spawnOne() *Agent {
	id := s.nextID
	s.nextID++

	var (
		w  world.Vector
		pt PrivacyType
	)
	switch s.weights {
	case WeightsUniform:
		// Draw order pleasure, privacy, recognition, security.
		w[world.Pleasure] = s.rng.Float64()
		w[world.Privacy] = s.rng.Float64()
		w[world.Recognition] = s.rng.Float64()
		w[world.Security] = s.rng.Float64()
		pt = Classify(w)
	default:
		arch := DrawArchetype(s.rng)
		w = arch.Weights
		pt = arch.Type
	}

	return NewAgent(id, w, pt, world.RandomLocation(s.rng), s.policy)
}
