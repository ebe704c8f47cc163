package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/privacy-world/internal/world"
)

func TestEvaluateCautiousAtBeach(t *testing.T) {
	s := Evaluate(ArchetypeFor(Cautious).Weights, world.Get(world.Beach))

	// weighted attributes: 0.2, 0.4, -1, -0.7
	assert.InDelta(t, -3.4, s[world.NoShare], 1e-9)
	assert.InDelta(t, -0.5, s[world.ShareFriends], 1e-9)
	assert.InDelta(t, 1.1, s[world.SharePublic], 1e-9)
	assert.Equal(t, world.SharePublic, s.Best())
}

func TestEvaluateCasualAtSurgery(t *testing.T) {
	s := Evaluate(ArchetypeFor(Casual).Weights, world.Get(world.Surgery))

	// weighted attributes: -2, -1.4, 0, 0.45
	assert.InDelta(t, 0.9, s[world.NoShare], 1e-9)
	assert.InDelta(t, -3.95, s[world.ShareFriends], 1e-9)
	assert.InDelta(t, -5.8, s[world.SharePublic], 1e-9)
	assert.Equal(t, world.NoShare, s.Best())
}

func TestEvaluateZeroWeights(t *testing.T) {
	for _, loc := range world.Catalogue() {
		s := Evaluate(world.Vector{}, &loc)
		assert.Equal(t, Scores{}, s, "location %s", loc.Name)
		assert.Equal(t, world.NoShare, s.Best())
	}
}

func TestScoresBestTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		scores Scores
		want   world.Action
	}{
		{"no share wins tie", Scores{3, 3, 1}, world.NoShare},
		{"friends beats public on tie", Scores{1, 3, 3}, world.ShareFriends},
		{"all equal", Scores{2, 2, 2}, world.NoShare},
		{"clear public", Scores{-1, 0, 0.5}, world.SharePublic},
		{"negative", Scores{-3, -1, -2}, world.ShareFriends},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scores.Best())
		})
	}
}
