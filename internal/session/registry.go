// Package session implements SessionRegistry (spec.md §4.2): ephemeral
// session keys bound to (player, match, expiry), authorizing incoming
// actions without a wallet signature per action. Grounded on the teacher
// repo's net.Session lifecycle (issue, state, auto-expire) but re-pointed
// at nonce-based at-most-once admission instead of TCP framing.
package session

import (
	"github.com/google/uuid"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
)

// ID is an opaque session identifier.
type ID uuid.UUID

func (id ID) String() string { return uuid.UUID(id).String() }

// AuthResult is the outcome of Authorize.
type AuthResult int

const (
	Authorized AuthResult = iota
	AuthExpired
	AuthReplayOrRegression
	AuthUnknown
)

func (r AuthResult) String() string {
	switch r {
	case Authorized:
		return "Authorized"
	case AuthExpired:
		return "Expired"
	case AuthReplayOrRegression:
		return "ReplayOrRegression"
	default:
		return "Unknown"
	}
}

// Session is the registry's record for one authorized (player, match) pair.
type Session struct {
	ID              ID
	MatchID         string
	PlayerWallet    component.PublicKey
	EntityID        ecs.EntityID
	IssuedTick      uint64
	ExpiryTick      uint64
	NonceHighWater  uint64
}

// Registry holds all sessions for one match. It is owned exclusively by
// the match's MatchRuntime — no locking, accessed only from the match
// worker goroutine (spec.md §5).
type Registry struct {
	byID map[ID]*Session
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]*Session, 2)}
}

// Issue creates a new session bound to player/entity, valid until
// issuedTick+duration (spec.md §4.2).
func (r *Registry) Issue(matchID string, wallet component.PublicKey, entity ecs.EntityID, issuedTick, durationTicks uint64) ID {
	id := ID(uuid.New())
	r.byID[id] = &Session{
		ID:           id,
		MatchID:      matchID,
		PlayerWallet: wallet,
		EntityID:     entity,
		IssuedTick:   issuedTick,
		ExpiryTick:   issuedTick + durationTicks,
	}
	return id
}

// Authorize validates a session + nonce pair against the current tick.
// On Authorized it advances the high-water mark — the registry stores only
// the mark, so admission is O(1) (spec.md §4.2).
func (r *Registry) Authorize(id ID, nonce, tick uint64) AuthResult {
	s, ok := r.byID[id]
	if !ok {
		return AuthUnknown
	}
	if tick >= s.ExpiryTick {
		return AuthExpired
	}
	if nonce <= s.NonceHighWater {
		return AuthReplayOrRegression
	}
	s.NonceHighWater = nonce
	return Authorized
}

// Get returns the session record, if any — used by callers that already
// know authorization succeeded and need the bound entity/wallet.
func (r *Registry) Get(id ID) (*Session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Expire removes a session outright; expired sessions cannot be
// resurrected (spec.md §4.2).
func (r *Registry) Expire(id ID) {
	delete(r.byID, id)
}

// SweepExpired drops every session whose ExpiryTick has passed as of tick.
func (r *Registry) SweepExpired(tick uint64) {
	for id, s := range r.byID {
		if tick >= s.ExpiryTick {
			delete(r.byID, id)
		}
	}
}
