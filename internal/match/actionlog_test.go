package match

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/rules"
)

func fixedEntity(b byte) ecs.EntityID {
	var id ecs.EntityID
	id[0] = b
	return id
}

func buildLog(confirmSecond bool) *ActionLog {
	l := NewActionLog()
	l.AppendTentative(LoggedAction{UpdateID: 1, Actor: fixedEntity(1), Action: rules.Action{Kind: rules.KindMove, DX: 3}, Nonce: 1, Tick: 1})
	l.Finalize(1)
	l.AppendTentative(LoggedAction{UpdateID: 2, Actor: fixedEntity(2), Action: rules.Action{Kind: rules.KindAttack, Target: fixedEntity(1)}, Nonce: 1, Tick: 2})
	if confirmSecond {
		l.Finalize(2)
	}
	return l
}

func TestActionLog_RootIsDeterministicForTheSameConfirmedSequence(t *testing.T) {
	r1 := buildLog(true).Root()
	r2 := buildLog(true).Root()
	require.Equal(t, r1, r2)
}

func TestActionLog_RootExcludesUnconfirmedEntries(t *testing.T) {
	confirmedBoth := buildLog(true).Root()
	onlyFirstConfirmed := buildLog(false).Root()
	require.NotEqual(t, confirmedBoth, onlyFirstConfirmed)
}

func TestActionLog_RemovePreservesRemainingOrderAndReindexes(t *testing.T) {
	l := NewActionLog()
	l.AppendTentative(LoggedAction{UpdateID: 1, Actor: fixedEntity(1)})
	l.AppendTentative(LoggedAction{UpdateID: 2, Actor: fixedEntity(2)})
	l.AppendTentative(LoggedAction{UpdateID: 3, Actor: fixedEntity(3)})

	l.Remove(2)
	entries := l.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, uint64(1), entries[0].UpdateID)
	require.Equal(t, uint64(3), entries[1].UpdateID)

	l.Finalize(3)
	entries = l.Entries()
	require.True(t, entries[1].Confirmed, "Finalize must still resolve update 3 after its index shifted")
}
