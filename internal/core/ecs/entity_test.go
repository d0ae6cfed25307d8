package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityPool_CreateAssignsUniqueLiveIDs(t *testing.T) {
	p := NewEntityPool()

	a := p.Create()
	b := p.Create()

	require.NotEqual(t, a, b)
	require.True(t, p.Alive(a))
	require.True(t, p.Alive(b))
	require.Equal(t, 2, p.Len())
}

func TestEntityPool_DestroyMakesIDNotAlive(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()

	p.Destroy(a)

	require.False(t, p.Alive(a))
	require.Equal(t, 0, p.Len())
}

func TestEntityID_NilIsZeroValue(t *testing.T) {
	var id EntityID
	require.True(t, id.IsZero())

	p := NewEntityPool()
	created := p.Create()
	require.False(t, created.IsZero())
}
