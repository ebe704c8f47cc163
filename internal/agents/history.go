// Agent history: an append-only log of every decision, indexed by companion
// so learning policies can look up past encounters without rescanning.
package agents

import (
	"iter"
	"slices"

	"github.com/talgya/privacy-world/internal/world"
)

// Record is one committed decision. Records are immutable once appended.
type Record struct {
	Timestep   uint64           `json:"timestep"`
	AgentID    AgentID          `json:"agent_id"`
	Companions []AgentID        `json:"companions"`
	Location   world.LocationID `json:"location"`
	Action     world.Action     `json:"action"`
	Reward     float64          `json:"reward"`
	Happiness  float64          `json:"happiness"`
}

// HasCompanion reports whether id was present for this decision.
func (r Record) HasCompanion(id AgentID) bool {
	return slices.Contains(r.Companions, id)
}

// History is owned by exactly one agent. The zero value is an empty history.
type History struct {
	records     []Record
	byCompanion map[AgentID][]int // companion id → record indices, ascending
}

// Append adds a record at the end. The companion slice is copied so the
// caller cannot mutate a stored record.
func (h *History) Append(r Record) {
	r.Companions = slices.Clone(r.Companions)
	idx := len(h.records)
	h.records = append(h.records, r)

	if len(r.Companions) == 0 {
		return
	}
	if h.byCompanion == nil {
		h.byCompanion = make(map[AgentID][]int)
	}
	for _, c := range r.Companions {
		h.byCompanion[c] = append(h.byCompanion[c], idx)
	}
}

// Len returns the number of records.
func (h *History) Len() int {
	return len(h.records)
}

// Last returns the most recent record.
func (h *History) Last() (Record, bool) {
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// Records yields every record in insertion order.
func (h *History) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range h.records {
			if !yield(r) {
				return
			}
		}
	}
}

// QueryByCompanion yields, in insertion order, the records where id was a
// companion. An unknown id yields nothing.
func (h *History) QueryByCompanion(id AgentID) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, idx := range h.byCompanion[id] {
			if !yield(h.records[idx]) {
				return
			}
		}
	}
}

// Estimates accumulates reward observations per action.
type Estimates struct {
	Sum   [world.NumActions]float64
	Count [world.NumActions]int
}

// Mean returns the average reward observed for a, or 0 without observations.
func (e Estimates) Mean(a world.Action) float64 {
	if e.Count[a] == 0 {
		return 0
	}
	return e.Sum[a] / float64(e.Count[a])
}

// Observations returns the total number of records folded in.
func (e Estimates) Observations() int {
	n := 0
	for _, c := range e.Count {
		n += c
	}
	return n
}

// Best returns the action with the highest mean; ties go to the first
// enumerated action.
func (e Estimates) Best() world.Action {
	best := world.NoShare
	bestMean := e.Mean(world.NoShare)
	for _, a := range world.Actions[1:] {
		if m := e.Mean(a); m > bestMean {
			best, bestMean = a, m
		}
	}
	return best
}

// RewardEstimates folds every record shared with companion id into
// per-action reward sums and counts.
func (h *History) RewardEstimates(id AgentID) Estimates {
	var e Estimates
	for r := range h.QueryByCompanion(id) {
		if !r.Action.Valid() {
			continue
		}
		e.Sum[r.Action] += r.Reward
		e.Count[r.Action]++
	}
	return e
}

// BestResponse returns the action that earned the highest mean reward in the
// presence of companion id. Unobserved actions estimate 0, so a companion the
// agent never met yields NoShare; the bool reports whether they met.
func (h *History) BestResponse(id AgentID) (world.Action, bool) {
	e := h.RewardEstimates(id)
	return e.Best(), e.Observations() > 0
}
