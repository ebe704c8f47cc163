package agents

import (
	"math/rand"

	"github.com/talgya/privacy-world/internal/world"
)

// stubEnv is a hand-wired environment for single-agent activations.
type stubEnv struct {
	step       uint64
	companions map[AgentID][]*Agent
	avg        float64
	rewards    RewardEngine
	rng        *rand.Rand
}

func newStubEnv(seed int64) *stubEnv {
	return &stubEnv{
		companions: make(map[AgentID][]*Agent),
		rewards:    DefaultRewards(),
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (e *stubEnv) Timestep() uint64             { return e.step }
func (e *stubEnv) Companions(a *Agent) []*Agent { return e.companions[a.ID] }
func (e *stubEnv) AverageHappiness() float64    { return e.avg }
func (e *stubEnv) Rewards() RewardEngine        { return e.rewards }
func (e *stubEnv) Rand() Rand                   { return e.rng }

// seqRand replays fixed draws.
type seqRand struct {
	floats []float64
	ints   []int
}

func (r *seqRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *seqRand) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func companion(id AgentID, action world.Action, happiness float64) *Agent {
	a := NewAgent(id, world.Vector{}, Conscientious, world.Beach, Selfish{})
	a.Action = action
	a.Happiness = happiness
	return a
}
