// Mobility: agents relocate uniformly across the catalogue after each decision.
package world

// Rand is the subset of *rand.Rand the world draws from.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Move picks the next location for an agent. A uniform r in [0,1) is mapped
// onto NumLocations equal-width bins in enumeration order. The current
// location plays no part.
func Move(r Rand) LocationID {
	return binFor(r.Float64())
}

func binFor(p float64) LocationID {
	idx := int(p * NumLocations)
	if idx < 0 {
		idx = 0
	}
	if idx >= NumLocations {
		idx = NumLocations - 1
	}
	return LocationID(idx)
}

// RandomLocation is used for initial placement.
func RandomLocation(r Rand) LocationID {
	return LocationID(r.Intn(NumLocations))
}
