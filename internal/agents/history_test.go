package agents

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/privacy-world/internal/world"
)

func TestHistoryAppendOrder(t *testing.T) {
	var h History
	_, ok := h.Last()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		h.Append(Record{Timestep: uint64(i), Action: world.Actions[i%world.NumActions]})
	}
	require.Equal(t, 5, h.Len())

	var steps []uint64
	for r := range h.Records() {
		steps = append(steps, r.Timestep)
	}
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, steps)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, uint64(4), last.Timestep)
	assert.Equal(t, world.ShareFriends, last.Action)
}

func TestHistoryQueryByCompanion(t *testing.T) {
	var h History
	h.Append(Record{Timestep: 0, Companions: []AgentID{1, 2}})
	h.Append(Record{Timestep: 1})
	h.Append(Record{Timestep: 2, Companions: []AgentID{2}})
	h.Append(Record{Timestep: 3, Companions: []AgentID{1}})

	collect := func(id AgentID) []uint64 {
		var out []uint64
		for r := range h.QueryByCompanion(id) {
			assert.True(t, r.HasCompanion(id))
			out = append(out, r.Timestep)
		}
		return out
	}
	assert.Equal(t, []uint64{0, 3}, collect(1))
	assert.Equal(t, []uint64{0, 2}, collect(2))
	assert.Empty(t, collect(99))
}

func TestHistoryQueryStopsEarly(t *testing.T) {
	var h History
	for i := 0; i < 10; i++ {
		h.Append(Record{Timestep: uint64(i), Companions: []AgentID{3}})
	}
	n := 0
	for range h.QueryByCompanion(3) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestHistoryCopiesCompanions(t *testing.T) {
	var h History
	ids := []AgentID{4, 5}
	h.Append(Record{Companions: ids})
	ids[0] = 99

	first, _ := h.Last()
	assert.Equal(t, []AgentID{4, 5}, first.Companions)
	assert.Empty(t, slices.Collect(h.QueryByCompanion(99)))
}

func TestRewardEstimates(t *testing.T) {
	var h History
	h.Append(Record{Companions: []AgentID{1}, Action: world.ShareFriends, Reward: 4})
	h.Append(Record{Companions: []AgentID{1}, Action: world.ShareFriends, Reward: 2})
	h.Append(Record{Companions: []AgentID{1}, Action: world.SharePublic, Reward: 1})
	h.Append(Record{Companions: []AgentID{2}, Action: world.NoShare, Reward: 50})

	e := h.RewardEstimates(1)
	assert.Equal(t, 3, e.Observations())
	assert.InDelta(t, 3.0, e.Mean(world.ShareFriends), 1e-12)
	assert.InDelta(t, 1.0, e.Mean(world.SharePublic), 1e-12)
	assert.Equal(t, 0.0, e.Mean(world.NoShare))
	assert.Equal(t, world.ShareFriends, e.Best())

	best, ok := h.BestResponse(2)
	require.True(t, ok)
	assert.Equal(t, world.NoShare, best)

	best, ok = h.BestResponse(7)
	assert.False(t, ok)
	assert.Equal(t, world.NoShare, best)
}

func TestEstimatesBestTiesGoFirst(t *testing.T) {
	var e Estimates
	e.Sum[world.ShareFriends], e.Count[world.ShareFriends] = 2, 1
	e.Sum[world.SharePublic], e.Count[world.SharePublic] = 4, 2
	assert.Equal(t, world.ShareFriends, e.Best())
}
