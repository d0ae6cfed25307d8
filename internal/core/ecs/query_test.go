package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEach2_OnlyVisitsEntitiesWithBothComponents(t *testing.T) {
	pool := NewEntityPool()
	both, aOnly, bOnly := pool.Create(), pool.Create(), pool.Create()

	sa := NewPtrComponentStore[int]()
	sb := NewPtrComponentStore[string]()

	va, vBoth, vb := 1, 2, "y"
	sa.Set(both, &vBoth)
	sa.Set(aOnly, &va)
	sb.Set(both, &vb)
	sb.Set(bOnly, &vb)

	visited := map[EntityID]bool{}
	Each2(sa, sb, func(id EntityID, a *int, b *string) {
		visited[id] = true
	})

	require.Equal(t, map[EntityID]bool{both: true}, visited)
}

func TestEach3_OnlyVisitsEntitiesWithAllThreeComponents(t *testing.T) {
	pool := NewEntityPool()
	all, partial := pool.Create(), pool.Create()

	sa := NewPtrComponentStore[int]()
	sb := NewPtrComponentStore[int]()
	sc := NewPtrComponentStore[int]()

	v := 1
	sa.Set(all, &v)
	sb.Set(all, &v)
	sc.Set(all, &v)

	sa.Set(partial, &v)
	sb.Set(partial, &v)
	// sc deliberately missing for partial.

	visited := map[EntityID]bool{}
	Each3(sa, sb, sc, func(id EntityID, a, b, c *int) {
		visited[id] = true
	})

	require.Equal(t, map[EntityID]bool{all: true}, visited)
}
