package component

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombat_IsOnCooldown(t *testing.T) {
	c := Combat{CooldownUntilTick: 50}

	require.True(t, c.IsOnCooldown(49))
	require.False(t, c.IsOnCooldown(50), "tick equal to the deadline is no longer on cooldown")
	require.False(t, c.IsOnCooldown(51))
}
