package system

import "time"

// Phase defines execution ordering within a single match tick, following
// MatchRuntime's tick contract: expiry sweep, confirmation drain,
// reconciliation, win/timeout evaluation, snapshot emission, cleanup.
type Phase int

const (
	PhaseExpiry    Phase = iota // 0: optimistic expiry sweep
	PhaseConfirm                // 1: drain settlement-substrate confirmations
	PhaseReconcile               // 2: roll back anything the drain invalidated
	PhaseEvaluate                // 3: win-condition / timeout evaluation
	PhaseOutput                  // 4: build + emit StateDelta events
	PhaseCleanup                 // 5: destroy queued entities (match teardown only)
)

// System is the interface every match-tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
