// Package optimistic implements OptimisticManager (spec.md §4.4): tracks
// pending optimistic updates per entity, admits/applies/confirms/rejects/
// expires them, and guarantees convergence between the optimistic and
// confirmed views.
package optimistic

import "github.com/duelforge/matchengine/internal/core/ecs"

// State is an OptimisticUpdate's position in its lifecycle state machine
// (spec.md §4.4):
//
//	Pending --apply--> Applied --confirm--> Confirmed
//	   |                    |
//	   |                    +--reject--> Rejected (rolled back)
//	   +--expire--> Expired (rolled back if Applied)
type State int

const (
	Pending State = iota
	Applied
	Confirmed
	Rejected
	Expired
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Applied:
		return "Applied"
	case Confirmed:
		return "Confirmed"
	case Rejected:
		return "Rejected"
	case Expired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Update is one OptimisticUpdate record (spec.md §3).
type Update struct {
	ID            uint64
	Entities      []ecs.EntityID // every entity this update touches
	SessionID     string
	PreImageHash  [32]byte
	SubmitTick    uint64
	ExpiryTick    uint64
	State         State
}
