package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueOrderAndLookup(t *testing.T) {
	locs := Catalogue()
	require.Len(t, locs, NumLocations)
	for i, l := range locs {
		assert.Equal(t, LocationID(i), l.ID)
		assert.Same(t, &DefaultCosts, l.Costs)
	}

	id, ok := Lookup("speed_ticket")
	require.True(t, ok)
	assert.Equal(t, SpeedTicket, id)

	_, ok = Lookup("moon")
	assert.False(t, ok)
}

func TestCatalogueIsCopied(t *testing.T) {
	locs := Catalogue()
	locs[0].Attributes[Pleasure] = 99
	assert.Equal(t, 2.0, Get(Beach).Attributes[Pleasure])
}

func TestGetPanicsOutsideCatalogue(t *testing.T) {
	assert.Panics(t, func() { Get(LocationID(NumLocations)) })
}

func TestBinFor(t *testing.T) {
	tests := []struct {
		p    float64
		want LocationID
	}{
		{0, Beach},
		{0.1111, Beach},
		{0.12, Museum},
		{0.5, Exam},
		{0.999999, SpeedTicket},
		{1.0, SpeedTicket},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, binFor(tt.p), "p=%v", tt.p)
	}
}

func TestMoveCoversCatalogue(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	var counts [NumLocations]int
	const n = 9000
	for i := 0; i < n; i++ {
		id := Move(r)
		require.True(t, id.Valid())
		counts[id]++
	}
	for id, c := range counts {
		// Expected 1000 per bin; a loose band catches a broken partition.
		assert.InDelta(t, n/NumLocations, c, 200, "location %s", LocationID(id))
	}
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"SHARE_FRIENDS", "friends", "1"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, ShareFriends, a)
	}
	_, err := ParseAction("shout")
	assert.Error(t, err)
	assert.Equal(t, "SHARE_PUBLIC", SharePublic.String())
	assert.Equal(t, "action(4)", Action(4).String())
}
