package component

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealth_SetCurrentClampsToBounds(t *testing.T) {
	h := Health{Max: 100}

	h.SetCurrent(-50, 1)
	require.Equal(t, uint16(0), h.Current, "negative values clamp to 0")

	h.SetCurrent(250, 2)
	require.Equal(t, uint16(100), h.Current, "values above Max clamp to Max")

	h.SetCurrent(42, 3)
	require.Equal(t, uint16(42), h.Current)
	require.Equal(t, uint64(3), h.LastUpdatedTick)
}

func TestHealth_Dead(t *testing.T) {
	require.False(t, (Health{Current: 1, Max: 100}).Dead())
	require.True(t, (Health{Current: 0, Max: 100}).Dead())
}
