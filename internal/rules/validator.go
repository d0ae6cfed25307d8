package rules

import (
	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/entitystore"
)

// Write is one component mutation an admitted action produces. The non-nil
// component field identifies which component OptimisticManager should
// write on apply.
type Write struct {
	Entity   ecs.EntityID
	Position *component.Position
	Health   *component.Health
	Combat   *component.Combat
	Inventory *component.Inventory
}

// Valid is Validate's success result (spec.md §4.3).
type Valid struct {
	Effects       []Write
	RequiresProof bool
}

// Config carries the per-match tunables Validate needs (spec.md §6).
type Config struct {
	MatchID           string
	ArenaBox          component.ArenaBox
	MaxCooldownTicks  uint64
	DefendMaxDuration uint8
	CooldownTicks     uint64 // ticks added to Combat.CooldownUntilTick after an Attack
	Formula           DamageFormula
}

// MatchActive must be consulted by callers before invoking Validate — the
// spec treats MatchNotActive as a Validate-time rejection (spec.md §4.3),
// so it is threaded in as a precomputed bool rather than the full state
// machine to keep this package free of a match.State import cycle.
type MatchActive bool

// Validate is pure and deterministic: same (store snapshot, actor, action,
// tick, nonce, cfg) always yields the same result, which is required for
// settlement-proof reproducibility (spec.md §4.3, §8 Determinism).
func Validate(store *entitystore.Store, active MatchActive, actor ecs.EntityID, action Action, tick, nonce uint64, lastMoveTick uint64, cfg Config) (Valid, error) {
	if !active {
		return Valid{}, reject(RejectMatchNotActive)
	}

	switch action.Kind {
	case KindMove:
		return validateMove(store, actor, action, tick, lastMoveTick, cfg)
	case KindAttack:
		return validateAttack(store, actor, action, tick, nonce, cfg)
	case KindDefend:
		return validateDefend(store, actor, action, tick, cfg)
	case KindItem:
		return validateItem(store, actor, action, tick)
	case KindForfeit:
		return Valid{Effects: nil, RequiresProof: true}, nil
	default:
		return Valid{}, reject(RejectInvalidParameters)
	}
}

func validateMove(store *entitystore.Store, actor ecs.EntityID, action Action, tick, lastMoveTick uint64, cfg Config) (Valid, error) {
	pos, err := store.Position(actor)
	if err != nil {
		return Valid{}, reject(RejectNotActor)
	}

	newX := pos.X + int32(action.DX)
	newY := pos.Y + int32(action.DY)
	newZ := pos.Z + int32(action.DZ)
	if !cfg.ArenaBox.Contains(newX, newY, newZ) {
		return Valid{}, reject(RejectOutOfBounds)
	}

	dist := chebyshev(action.DX, action.DY, action.DZ)
	deltaTicks := uint64(1)
	if tick > lastMoveTick {
		deltaTicks = tick - lastMoveTick
	}
	maxDist := int64(pos.Speed) * int64(deltaTicks)
	if int64(dist) > maxDist {
		return Valid{}, reject(RejectOutOfBounds)
	}

	newPos := pos
	newPos.X, newPos.Y, newPos.Z = newX, newY, newZ
	newPos.LastUpdatedTick = tick
	return Valid{
		Effects:       []Write{{Entity: actor, Position: &newPos}},
		RequiresProof: false,
	}, nil
}

func chebyshev(dx, dy, dz int16) int32 {
	m := abs16(dx)
	if v := abs16(dy); v > m {
		m = v
	}
	if v := abs16(dz); v > m {
		m = v
	}
	return int32(m)
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

func validateAttack(store *entitystore.Store, actor ecs.EntityID, action Action, tick, nonce uint64, cfg Config) (Valid, error) {
	actorCombat, err := store.Combat(actor)
	if err != nil {
		return Valid{}, reject(RejectNotActor)
	}
	if actorCombat.IsOnCooldown(tick) {
		return Valid{}, reject(RejectOnCooldown)
	}
	if action.Target.IsZero() {
		return Valid{}, reject(RejectInvalidParameters)
	}

	targetHealth, err := store.Health(action.Target)
	if err != nil {
		return Valid{}, reject(RejectInvalidParameters)
	}
	if targetHealth.Dead() {
		return Valid{}, reject(RejectTargetDead)
	}
	targetCombat, err := store.Combat(action.Target)
	if err != nil {
		return Valid{}, reject(RejectInvalidParameters)
	}

	power := actorCombat.Attack
	if action.Variant == VariantHeavy {
		power = power + power/2
	}
	crit := RollCrit(cfg.MatchID, actor, tick, nonce, actorCombat.CritChance)

	formula := cfg.Formula
	if formula == nil {
		formula = DefaultDamageFormula
	}
	damage := formula.Damage(power, targetCombat.Defense, crit)

	if targetCombat.Defending && tick < targetCombat.DefendUntilTick {
		damage = damage / 2
		if damage < 1 {
			damage = 1
		}
	}

	newHealth := targetHealth
	newHealth.SetCurrent(int32(targetHealth.Current)-int32(damage), tick)

	cooldown := cfg.CooldownTicks
	if cfg.MaxCooldownTicks > 0 && cooldown > cfg.MaxCooldownTicks {
		cooldown = cfg.MaxCooldownTicks
	}
	newActorCombat := actorCombat
	newActorCombat.CooldownUntilTick = tick + cooldown
	newActorCombat.LastUpdatedTick = tick

	return Valid{
		Effects: []Write{
			{Entity: action.Target, Health: &newHealth},
			{Entity: actor, Combat: &newActorCombat},
		},
		RequiresProof: true,
	}, nil
}

// MaxDefendDurationTicks is the stable wire schema's hard cap on
// DEFEND.duration_ticks (spec.md §6). It binds unconditionally — a
// per-match cfg.DefendMaxDuration can only tighten it further, never
// relax it, since the schema bound isn't one of the config keys spec.md
// §6 lists as operator-tunable.
const MaxDefendDurationTicks = 16

func validateDefend(store *entitystore.Store, actor ecs.EntityID, action Action, tick uint64, cfg Config) (Valid, error) {
	if action.DurationTicks == 0 || action.DurationTicks > MaxDefendDurationTicks {
		return Valid{}, reject(RejectInvalidParameters)
	}
	if cfg.DefendMaxDuration > 0 && action.DurationTicks > cfg.DefendMaxDuration {
		return Valid{}, reject(RejectInvalidParameters)
	}
	c, err := store.Combat(actor)
	if err != nil {
		return Valid{}, reject(RejectNotActor)
	}
	c.Defending = true
	c.DefendUntilTick = tick + uint64(action.DurationTicks)
	c.LastUpdatedTick = tick
	return Valid{
		Effects:       []Write{{Entity: actor, Combat: &c}},
		RequiresProof: false,
	}, nil
}

func validateItem(store *entitystore.Store, actor ecs.EntityID, action Action, tick uint64) (Valid, error) {
	inv, err := store.Inventory(actor)
	if err != nil {
		return Valid{}, reject(RejectNotActor)
	}
	if int(action.Slot) >= len(inv.Slots) || inv.Slots[action.Slot].Count == 0 {
		return Valid{}, reject(RejectInvalidParameters)
	}
	newInv := inv
	newInv.Slots[action.Slot].Count--
	newInv.LastUpdatedTick = tick
	return Valid{
		Effects:       []Write{{Entity: actor, Inventory: &newInv}},
		RequiresProof: true,
	}, nil
}
