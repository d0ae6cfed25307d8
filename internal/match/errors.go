package match

import "github.com/duelforge/matchengine/internal/rules"

// SubmitErrKind enumerates submit_action failures (spec.md §4.5, §7).
type SubmitErrKind int

const (
	ErrUnauthorized SubmitErrKind = iota
	ErrSessionExpired
	ErrReplayed
	ErrConflict
	ErrRejected
	ErrMatchEnded
	ErrBusy
)

// SubmitError is returned by MatchRuntime.SubmitAction.
type SubmitError struct {
	Kind         SubmitErrKind
	RejectReason rules.RejectKind // only meaningful when Kind == ErrRejected
}

func (e *SubmitError) Error() string {
	switch e.Kind {
	case ErrUnauthorized:
		return "match: unauthorized"
	case ErrSessionExpired:
		return "match: session expired"
	case ErrReplayed:
		return "match: replayed nonce"
	case ErrConflict:
		return "match: conflicting in-flight update"
	case ErrRejected:
		return "match: rejected: " + e.RejectReason.String()
	case ErrMatchEnded:
		return "match: match has ended"
	default:
		return "match: busy"
	}
}
