package optimistic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/entitystore"
	"github.com/duelforge/matchengine/internal/rules"
)

func TestManager_AdmitAppliesEffectsImmediately(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	newHealth := component.Health{Current: 80, Max: 100, LastUpdatedTick: 5}
	upd, err := mgr.Admit("session-1", []rules.Write{{Entity: actor, Health: &newHealth}}, 5, 20)
	require.NoError(t, err)
	require.Equal(t, Applied, upd.State)

	got, err := store.Health(actor)
	require.NoError(t, err)
	require.Equal(t, uint16(80), got.Current)
}

func TestManager_AdmitRejectsConflictingEntity(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	h1 := component.Health{Current: 90, Max: 100}
	_, err := mgr.Admit("s1", []rules.Write{{Entity: actor, Health: &h1}}, 1, 20)
	require.NoError(t, err)

	h2 := component.Health{Current: 70, Max: 100}
	_, err = mgr.Admit("s2", []rules.Write{{Entity: actor, Health: &h2}}, 2, 20)
	require.Error(t, err)
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrConflict, oerr.Kind)
}

func TestManager_RejectRestoresPreImage(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	newHealth := component.Health{Current: 10, Max: 100}
	upd, err := mgr.Admit("s1", []rules.Write{{Entity: actor, Health: &newHealth}}, 1, 20)
	require.NoError(t, err)

	_, err = mgr.Reject(upd.ID)
	require.NoError(t, err)

	got, err := store.Health(actor)
	require.NoError(t, err)
	require.Equal(t, uint16(100), got.Current, "rollback must restore the exact pre-image")

	// The entity's write lock must be released so a new update can be admitted.
	_, err = mgr.Admit("s2", []rules.Write{{Entity: actor, Health: &newHealth}}, 2, 20)
	require.NoError(t, err)
}

func TestManager_SweepExpiredRollsBackPastTTL(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	newHealth := component.Health{Current: 5, Max: 100}
	upd, err := mgr.Admit("s1", []rules.Write{{Entity: actor, Health: &newHealth}}, 1, 5)
	require.NoError(t, err)

	expired := mgr.SweepExpired(3)
	require.Empty(t, expired, "must not expire before the TTL elapses")

	expired = mgr.SweepExpired(6)
	require.Equal(t, []uint64{upd.ID}, expired)

	got, err := store.Health(actor)
	require.NoError(t, err)
	require.Equal(t, uint16(100), got.Current)

	updAfter, ok := mgr.Get(upd.ID)
	require.True(t, ok)
	require.Equal(t, Expired, updAfter.State)
}

func TestManager_ConfirmReleasesEntityLock(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	h := component.Health{Current: 50, Max: 100}
	upd, err := mgr.Admit("s1", []rules.Write{{Entity: actor, Health: &h}}, 1, 20)
	require.NoError(t, err)

	confirmed, err := mgr.Confirm(upd.ID)
	require.NoError(t, err)
	require.Equal(t, Confirmed, confirmed.State)

	h2 := component.Health{Current: 40, Max: 100}
	_, err = mgr.Admit("s2", []rules.Write{{Entity: actor, Health: &h2}}, 2, 20)
	require.NoError(t, err, "Confirm must release the per-entity write lock")
}

func TestManager_ConfirmUnknownUpdateErrors(t *testing.T) {
	store := entitystore.New()
	mgr := NewManager(store)

	_, err := mgr.Confirm(999)
	require.Error(t, err)
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrUnknownUpdate, oerr.Kind)
}

func TestManager_ConfirmTwiceFailsWrongState(t *testing.T) {
	store := entitystore.New()
	actor := store.Create(entitystore.Seed{Health: component.Health{Current: 100, Max: 100}})
	mgr := NewManager(store)

	h := component.Health{Current: 50, Max: 100}
	upd, err := mgr.Admit("s1", []rules.Write{{Entity: actor, Health: &h}}, 1, 20)
	require.NoError(t, err)

	_, err = mgr.Confirm(upd.ID)
	require.NoError(t, err)

	_, err = mgr.Confirm(upd.ID)
	require.Error(t, err)
	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrWrongState, oerr.Kind)
}
