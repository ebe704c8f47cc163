package social

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWithoutRewiring(t *testing.T) {
	g, err := NewWattsStrogatz(10, 4, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 10, g.Len())
	assert.Equal(t, 20, g.EdgeCount())
	for id := int64(0); id < 10; id++ {
		assert.Equal(t, 4, g.Degree(id))
	}
	assert.Equal(t, []int64{1, 2, 8, 9}, g.Friends(0))
	assert.True(t, g.AreFriends(0, 9))
	assert.False(t, g.AreFriends(0, 5))
}

func TestRewiringKeepsEdgeCountAndNoSelfLoops(t *testing.T) {
	g, err := NewWattsStrogatz(50, 6, 0.3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, 50*6/2, g.EdgeCount())
	for id := int64(0); id < 50; id++ {
		assert.False(t, g.AreFriends(id, id))
		for _, f := range g.Friends(id) {
			assert.NotEqual(t, id, f)
			assert.True(t, g.AreFriends(f, id), "edge %d-%d must be symmetric", id, f)
		}
	}
}

func TestSameSeedSameGraph(t *testing.T) {
	a, err := NewWattsStrogatz(30, 4, 0.5, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	b, err := NewWattsStrogatz(30, 4, 0.5, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	for id := int64(0); id < 30; id++ {
		assert.Equal(t, a.Friends(id), b.Friends(id))
	}
}

func TestInvalidParameters(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tests := []struct {
		name string
		n, k int
		p    float64
	}{
		{"no nodes", 0, 0, 0},
		{"negative degree", 5, -2, 0},
		{"degree equals nodes", 5, 5, 0},
		{"degree above nodes", 5, 8, 0},
		{"negative rewire", 5, 2, -0.1},
		{"rewire above one", 5, 2, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewWattsStrogatz(tt.n, tt.k, tt.p, r)
			assert.ErrorIs(t, err, ErrInvalidGraph)
			assert.Nil(t, g)
		})
	}
}

func TestFromEdges(t *testing.T) {
	g, err := FromEdges(3, [][2]int64{{0, 1}, {1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2}, g.Friends(1))
	assert.Empty(t, g.Friends(5))

	_, err = FromEdges(3, [][2]int64{{1, 1}})
	assert.ErrorIs(t, err, ErrInvalidGraph)
	_, err = FromEdges(3, [][2]int64{{0, 3}})
	assert.ErrorIs(t, err, ErrInvalidGraph)
}
