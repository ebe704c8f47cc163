// Privacy archetypes: three fixed preference profiles and the population
// shares they are drawn with.
package agents

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/privacy-world/internal/world"
)

// PrivacyType tags an agent with the archetype its preferences match.
type PrivacyType uint8

const (
	Cautious PrivacyType = iota
	Conscientious
	Casual
)

var privacyNames = [...]string{"CAUTIOUS", "CONSCIENTIOUS", "CASUAL"}

func (p PrivacyType) String() string {
	if int(p) < len(privacyNames) {
		return privacyNames[p]
	}
	return fmt.Sprintf("privacy(%d)", uint8(p))
}

// ParsePrivacyType accepts archetype names case-insensitively.
func ParsePrivacyType(s string) (PrivacyType, error) {
	for i, n := range privacyNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return PrivacyType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown privacy type %q", s)
}

// Archetype is a fixed weight profile.
type Archetype struct {
	Type    PrivacyType
	Weights world.Vector

	// Cumulative draw threshold: a uniform p at or below it selects this
	// archetype when earlier ones did not match.
	Threshold float64
}

var archetypes = [...]Archetype{
	{Type: Cautious, Weights: world.Vector{0.1, 0.2, 1, 0.7}, Threshold: 0.455},
	{Type: Conscientious, Weights: world.Vector{0.4, 0.6, 0.5, 0.6}, Threshold: 0.818},
	{Type: Casual, Weights: world.Vector{1, 0.7, 0, 0.3}, Threshold: 1},
}

// ArchetypeFor returns the profile for a privacy type.
func ArchetypeFor(p PrivacyType) Archetype {
	if int(p) >= len(archetypes) {
		return archetypes[Conscientious]
	}
	return archetypes[p]
}

// DrawArchetype picks an archetype with the population shares
// 45.5% cautious, 36.3% conscientious, 18.2% casual.
func DrawArchetype(r Rand) Archetype {
	p := r.Float64()
	for _, a := range archetypes {
		if p <= a.Threshold {
			return a
		}
	}
	return archetypes[len(archetypes)-1]
}

// Classify returns the archetype nearest to w in Euclidean distance.
// Ties go to the earlier archetype.
func Classify(w world.Vector) PrivacyType {
	best := Cautious
	bestDist := math.Inf(1)
	for _, a := range archetypes {
		var d float64
		for i := range w {
			diff := w[i] - a.Weights[i]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = a.Type, d
		}
	}
	return best
}

// WeightModel selects how personal weights are generated.
type WeightModel uint8

const (
	WeightsArchetype WeightModel = iota // One of the three fixed profiles
	WeightsUniform                      // Each weight drawn from U[0,1]
)

func (m WeightModel) String() string {
	switch m {
	case WeightsArchetype:
		return "archetype"
	case WeightsUniform:
		return "uniform"
	}
	return fmt.Sprintf("weights(%d)", uint8(m))
}

// ParseWeightModel parses "archetype" or "uniform".
func ParseWeightModel(s string) (WeightModel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archetype", "archetypes":
		return WeightsArchetype, nil
	case "uniform", "random":
		return WeightsUniform, nil
	}
	return 0, fmt.Errorf("unknown weight model %q", s)
}
