package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/entitystore"
)

func testConfig() Config {
	return Config{
		MatchID:           "m1",
		ArenaBox:          component.ArenaBox{MinX: -100, MinY: -100, MinZ: 0, MaxX: 100, MaxY: 100, MaxZ: 0},
		MaxCooldownTicks:  10,
		DefendMaxDuration: 20,
		CooldownTicks:     5,
	}
}

func defaultSeed() entitystore.Seed {
	return entitystore.Seed{
		Position: component.Position{X: 0, Y: 0, Z: 0, Speed: 10},
		Health:   component.Health{Current: 100, Max: 100},
		Combat:   component.Combat{Attack: 20, Defense: 5, CritChance: 0},
	}
}

func TestValidate_RejectsWhenMatchNotActive(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())

	_, err := Validate(store, false, actor, Action{Kind: KindMove, DX: 1}, 1, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectMatchNotActive, rej.Kind)
}

func TestValidate_MoveOutOfBoundsRejected(t *testing.T) {
	store := entitystore.New()
	seed := defaultSeed()
	seed.Position.X = 99
	actor := store.Create(seed)

	_, err := Validate(store, true, actor, Action{Kind: KindMove, DX: 10}, 1, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectOutOfBounds, rej.Kind)
}

func TestValidate_MoveFasterThanSpeedRejected(t *testing.T) {
	store := entitystore.New()
	seed := defaultSeed()
	seed.Position.Speed = 2
	actor := store.Create(seed)

	// one tick elapsed since lastMoveTick, speed 2 allows at most 2 units.
	_, err := Validate(store, true, actor, Action{Kind: KindMove, DX: 5}, 1, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectOutOfBounds, rej.Kind)
}

func TestValidate_MoveWithinBoundsAccepted(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())

	valid, err := Validate(store, true, actor, Action{Kind: KindMove, DX: 5}, 1, 1, 0, testConfig())
	require.NoError(t, err)
	require.Len(t, valid.Effects, 1)
	require.Equal(t, int32(5), valid.Effects[0].Position.X)
	require.False(t, valid.RequiresProof)
}

func TestValidate_AttackOnCooldownRejected(t *testing.T) {
	store := entitystore.New()
	seed := defaultSeed()
	seed.Combat.CooldownUntilTick = 50
	actor := store.Create(seed)
	target := store.Create(defaultSeed())

	_, err := Validate(store, true, actor, Action{Kind: KindAttack, Target: target}, 10, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectOnCooldown, rej.Kind)
}

func TestValidate_AttackDeadTargetRejected(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())
	deadSeed := defaultSeed()
	deadSeed.Health.Current = 0
	target := store.Create(deadSeed)

	_, err := Validate(store, true, actor, Action{Kind: KindAttack, Target: target}, 1, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectTargetDead, rej.Kind)
}

func TestValidate_AttackProducesHealthAndCooldownEffects(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())
	target := store.Create(defaultSeed())

	valid, err := Validate(store, true, actor, Action{Kind: KindAttack, Target: target}, 1, 1, 0, testConfig())
	require.NoError(t, err)
	require.True(t, valid.RequiresProof)
	require.Len(t, valid.Effects, 2)
	require.Equal(t, target, valid.Effects[0].Entity)
	require.NotNil(t, valid.Effects[0].Health)
	require.Less(t, valid.Effects[0].Health.Current, uint16(100))
	require.Equal(t, actor, valid.Effects[1].Entity)
	require.NotNil(t, valid.Effects[1].Combat)
}

func TestValidate_AttackCooldownIsBoundedByMaxCooldownTicks(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())
	target := store.Create(defaultSeed())

	cfg := testConfig()
	cfg.CooldownTicks = 50
	cfg.MaxCooldownTicks = 8

	valid, err := Validate(store, true, actor, Action{Kind: KindAttack, Target: target}, 1, 1, 0, cfg)
	require.NoError(t, err)
	require.Equal(t, uint64(1+8), valid.Effects[1].Combat.CooldownUntilTick, "cfg.CooldownTicks must be clamped to cfg.MaxCooldownTicks")
}

func TestValidate_IsDeterministicForSameInputs(t *testing.T) {
	run := func() uint16 {
		store := entitystore.New()
		actor := store.Create(defaultSeed())
		target := store.Create(defaultSeed())
		valid, err := Validate(store, true, actor, Action{Kind: KindAttack, Target: target}, 7, 3, 0, testConfig())
		require.NoError(t, err)
		return valid.Effects[0].Health.Current
	}

	first := run()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, run(), "Validate must be a pure function of its inputs")
	}
}

func TestValidate_DefendRejectsZeroOrExcessiveDuration(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())
	cfg := testConfig()

	_, err := Validate(store, true, actor, Action{Kind: KindDefend, DurationTicks: 0}, 1, 1, 0, cfg)
	require.Error(t, err)

	_, err = Validate(store, true, actor, Action{Kind: KindDefend, DurationTicks: 255}, 1, 1, 0, cfg)
	require.Error(t, err)

	valid, err := Validate(store, true, actor, Action{Kind: KindDefend, DurationTicks: 5}, 1, 1, 0, cfg)
	require.NoError(t, err)
	require.True(t, valid.Effects[0].Combat.Defending)
}

func TestValidate_DefendRejectsAboveHardCapEvenWhenConfigAllowsMore(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())
	cfg := testConfig()
	cfg.DefendMaxDuration = 200 // a permissive per-match config must not relax the wire-schema cap

	_, err := Validate(store, true, actor, Action{Kind: KindDefend, DurationTicks: MaxDefendDurationTicks + 1}, 1, 1, 0, cfg)
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectInvalidParameters, rej.Kind)

	valid, err := Validate(store, true, actor, Action{Kind: KindDefend, DurationTicks: MaxDefendDurationTicks}, 1, 1, 0, cfg)
	require.NoError(t, err)
	require.True(t, valid.Effects[0].Combat.Defending)
}

func TestValidate_ItemRejectsEmptySlot(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(defaultSeed())

	_, err := Validate(store, true, actor, Action{Kind: KindItem, Slot: 0}, 1, 1, 0, testConfig())
	require.Error(t, err)
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectInvalidParameters, rej.Kind)
}
