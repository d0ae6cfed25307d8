package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFake_AdvanceFiresDueWaiters(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ch := f.After(10 * time.Second)

	f.Advance(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("waiter fired before its deadline elapsed")
	default:
	}

	f.Advance(5 * time.Second)
	select {
	case got := <-ch:
		require.Equal(t, f.Now(), got)
	default:
		t.Fatal("waiter must fire once its deadline has elapsed")
	}
}

func TestFake_AdvanceLeavesUnexpiredWaitersPending(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	soon := f.After(1 * time.Second)
	later := f.After(100 * time.Second)

	f.Advance(2 * time.Second)

	select {
	case <-soon:
	default:
		t.Fatal("waiter past its deadline must have fired")
	}
	select {
	case <-later:
		t.Fatal("waiter before its deadline must not have fired")
	default:
	}
}

func TestFake_NowReflectsCumulativeAdvance(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)

	f.Advance(30 * time.Millisecond)
	f.Advance(30 * time.Millisecond)

	require.Equal(t, start.Add(60*time.Millisecond), f.Now())
}
