// Package rules implements ActionValidator (spec.md §4.3): a pure,
// deterministic, side-effect-free function from (state snapshot, action,
// tick) to Valid{effects}/Rejected{kind}.
package rules

import "github.com/duelforge/matchengine/internal/core/ecs"

// Kind tags the wire action variants (spec.md §6).
type Kind int

const (
	KindMove Kind = iota
	KindAttack
	KindDefend
	KindItem
	KindForfeit
)

// AttackVariant distinguishes the two attack wire variants (spec.md §6).
type AttackVariant int

const (
	VariantNormal AttackVariant = iota
	VariantHeavy
)

// Action is the tagged union of admissible wire actions. Exactly one of
// the payload fields is meaningful, selected by Kind — the source's class
// hierarchy becomes this exhaustively-matched variant (spec.md §9).
type Action struct {
	Kind Kind

	// Move
	DX, DY, DZ int16

	// Attack
	Target  ecs.EntityID
	Variant AttackVariant

	// Defend
	DurationTicks uint8

	// Item
	Slot uint8
}
