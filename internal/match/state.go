// Package match implements MatchRuntime and MatchRegistry (spec.md §4.5,
// §4.6): the per-match lifecycle state machine, tick scheduler, and the
// single-writer handle MatchRegistry hands out to callers.
package match

import "github.com/duelforge/matchengine/internal/core/ecs"

// State is Match's lifecycle position (spec.md §3, §4.5):
//
//	Waiting -> Ready -> Playing -> Ended
type State int

const (
	Waiting State = iota
	Ready
	Playing
	Ended
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "Waiting"
	case Ready:
		return "Ready"
	case Playing:
		return "Playing"
	case Ended:
		return "Ended"
	default:
		return "Unknown"
	}
}

// EndReason explains why a match reached Ended (spec.md §4.5).
type EndReason int

const (
	EndNone EndReason = iota
	EndElimination
	EndTimeout
	EndForfeit
	EndDisputed
)

func (r EndReason) String() string {
	switch r {
	case EndElimination:
		return "Elimination"
	case EndTimeout:
		return "Timeout"
	case EndForfeit:
		return "Forfeit"
	case EndDisputed:
		return "Disputed"
	default:
		return "None"
	}
}

// Outcome is the terminal result of a match, captured once and handed to
// the settlement pipeline.
type Outcome struct {
	Reason EndReason
	Winner *ecs.EntityID // nil for a draw or an undecided dispute
}
