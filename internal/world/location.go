// Package world provides the fixed location catalogue, the sharing actions
// and their attribute costs, and the mobility model that moves agents
// between locations.
package world

import (
	"fmt"
	"strings"
)

// Attribute is one dimension of a location's character and of an agent's
// personal preferences.
type Attribute uint8

const (
	Pleasure Attribute = iota
	Recognition
	Privacy
	Security
)

// NumAttributes is the number of attribute dimensions.
const NumAttributes = 4

var attributeNames = [NumAttributes]string{"pleasure", "recognition", "privacy", "security"}

func (a Attribute) String() string {
	if int(a) < NumAttributes {
		return attributeNames[a]
	}
	return fmt.Sprintf("attribute(%d)", uint8(a))
}

// Vector holds one value per attribute, indexed by Attribute.
type Vector [NumAttributes]float64

// CostTable holds the attribute cost of each action.
// Rows are attributes, columns are actions.
type CostTable [NumAttributes][NumActions]float64

// DefaultCosts is the action cost table shared by every location.
var DefaultCosts = CostTable{
	Pleasure:    {NoShare: 0, ShareFriends: 1.5, SharePublic: 1.5},
	Recognition: {NoShare: 0, ShareFriends: 1, SharePublic: 2},
	Privacy:     {NoShare: 2, ShareFriends: 0.5, SharePublic: 0},
	Security:    {NoShare: 2, ShareFriends: 1, SharePublic: 0},
}

// LocationID indexes the catalogue. Enumeration order is significant: the
// mobility model partitions [0,1) into bins in this order.
type LocationID uint8

const (
	Beach LocationID = iota
	Museum
	Company
	Surgery
	Exam
	Competition
	Funeral
	Typhoon
	SpeedTicket
)

// NumLocations is the size of the catalogue.
const NumLocations = 9

// Location is an immutable catalogue entry.
type Location struct {
	ID         LocationID `json:"id"`
	Name       string     `json:"name"`
	Attributes Vector     `json:"attributes"` // pleasure, recognition, privacy, security
	Costs      *CostTable `json:"-"`
}

// Cost returns the cost of taking action a with respect to attribute d here.
func (l *Location) Cost(d Attribute, a Action) float64 {
	return l.Costs[d][a]
}

var catalogue = [NumLocations]Location{
	{ID: Beach, Name: "BEACH", Attributes: Vector{2, 2, -1, -1}, Costs: &DefaultCosts},
	{ID: Museum, Name: "MUSEUM", Attributes: Vector{1.5, 1.5, 0, 0}, Costs: &DefaultCosts},
	{ID: Company, Name: "COMPANY", Attributes: Vector{0, -1, 1.5, 1.5}, Costs: &DefaultCosts},
	{ID: Surgery, Name: "SURGERY", Attributes: Vector{-2, -2, 2, 1.5}, Costs: &DefaultCosts},
	{ID: Exam, Name: "EXAM", Attributes: Vector{-1.5, 0, 0.5, 0.5}, Costs: &DefaultCosts},
	{ID: Competition, Name: "COMPETITION", Attributes: Vector{2, 2, -2, -2}, Costs: &DefaultCosts},
	{ID: Funeral, Name: "FUNERAL", Attributes: Vector{-2, -1.5, 1.5, 2}, Costs: &DefaultCosts},
	{ID: Typhoon, Name: "TYPHOON", Attributes: Vector{1.5, 0, 0.5, 2}, Costs: &DefaultCosts},
	{ID: SpeedTicket, Name: "SPEED_TICKET", Attributes: Vector{-1.5, -2, 1.5, 2}, Costs: &DefaultCosts},
}

// Get returns the catalogue entry for id. It panics on an id outside the
// catalogue, since every agent location is a catalogue entry by construction.
func Get(id LocationID) *Location {
	if int(id) >= NumLocations {
		panic(fmt.Sprintf("world: location %d outside catalogue", id))
	}
	return &catalogue[id]
}

// Valid reports whether id names a catalogue entry.
func (id LocationID) Valid() bool {
	return int(id) < NumLocations
}

func (id LocationID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("location(%d)", uint8(id))
	}
	return catalogue[id].Name
}

// Catalogue returns a copy of all locations in enumeration order.
func Catalogue() []Location {
	out := make([]Location, NumLocations)
	copy(out, catalogue[:])
	return out
}

// Lookup finds a location by name, case-insensitively.
func Lookup(name string) (LocationID, bool) {
	for i := range catalogue {
		if strings.EqualFold(catalogue[i].Name, name) {
			return catalogue[i].ID, true
		}
	}
	return 0, false
}
