// Package entitystore implements EntityStore (spec.md §4.1): typed
// component storage keyed by entity id, pure data, no cross-entity
// transactions. It is built directly on the generic component stores and
// entity pool from internal/core/ecs, adapted from the teacher repo's
// ECS world to the four fixed component types spec.md §3 enumerates.
package entitystore

import (
	"fmt"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
)

// ErrKind enumerates EntityStore failures (spec.md §4.1).
type ErrKind int

const (
	ErrNotFound ErrKind = iota
	ErrTypeMismatch
)

type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func notFound(id ecs.EntityID, comp string) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf("entitystore: %s not found on entity %s", comp, id)}
}

// Store holds the four fixed component stores for one match's entities.
// It is owned exclusively by a single MatchRuntime; no cross-match sharing
// and no locking — callers on other goroutines must go through the match's
// worker (spec.md §5).
type Store struct {
	world *ecs.World

	positions  *ecs.PtrComponentStore[component.Position]
	healths    *ecs.PtrComponentStore[component.Health]
	combats    *ecs.PtrComponentStore[component.Combat]
	players    *ecs.PtrComponentStore[component.Player]
	inventories *ecs.PtrComponentStore[component.Inventory]
}

func New() *Store {
	world := ecs.NewWorld()
	s := &Store{
		world:       world,
		positions:   ecs.NewPtrComponentStore[component.Position](),
		healths:     ecs.NewPtrComponentStore[component.Health](),
		combats:     ecs.NewPtrComponentStore[component.Combat](),
		players:     ecs.NewPtrComponentStore[component.Player](),
		inventories: ecs.NewPtrComponentStore[component.Inventory](),
	}
	world.Registry().Register(s.positions)
	world.Registry().Register(s.healths)
	world.Registry().Register(s.combats)
	world.Registry().Register(s.players)
	world.Registry().Register(s.inventories)
	return s
}

// Seed describes the initial component set for Create.
type Seed struct {
	Position  component.Position
	Health    component.Health
	Combat    component.Combat
	Player    component.Player
	Inventory component.Inventory
}

// Create allocates a new entity with its full fixed component set.
func (s *Store) Create(seed Seed) ecs.EntityID {
	id := s.world.CreateEntity()
	s.positions.Set(id, &seed.Position)
	s.healths.Set(id, &seed.Health)
	s.combats.Set(id, &seed.Combat)
	s.players.Set(id, &seed.Player)
	s.inventories.Set(id, &seed.Inventory)
	return id
}

// MarkForTeardown queues an entity for removal on the next FlushTeardown —
// used by the match's Cleanup phase rather than destroying entities
// mid-tick while other systems may still be iterating them.
func (s *Store) MarkForTeardown(id ecs.EntityID) {
	s.world.MarkForDestruction(id)
}

// FlushTeardown destroys every entity queued by MarkForTeardown.
func (s *Store) FlushTeardown() {
	s.world.FlushDestroyQueue()
}

func (s *Store) Alive(id ecs.EntityID) bool { return s.world.Alive(id) }

func (s *Store) Position(id ecs.EntityID) (component.Position, error) {
	c, ok := s.positions.Get(id)
	if !ok {
		return component.Position{}, notFound(id, "Position")
	}
	return *c, nil
}

func (s *Store) SetPosition(id ecs.EntityID, v component.Position, tick uint64) error {
	c, ok := s.positions.Get(id)
	if !ok {
		return notFound(id, "Position")
	}
	v.LastUpdatedTick = tick
	*c = v
	return nil
}

func (s *Store) Health(id ecs.EntityID) (component.Health, error) {
	c, ok := s.healths.Get(id)
	if !ok {
		return component.Health{}, notFound(id, "Health")
	}
	return *c, nil
}

func (s *Store) SetHealth(id ecs.EntityID, v component.Health, tick uint64) error {
	c, ok := s.healths.Get(id)
	if !ok {
		return notFound(id, "Health")
	}
	v.LastUpdatedTick = tick
	*c = v
	return nil
}

func (s *Store) Combat(id ecs.EntityID) (component.Combat, error) {
	c, ok := s.combats.Get(id)
	if !ok {
		return component.Combat{}, notFound(id, "Combat")
	}
	return *c, nil
}

func (s *Store) SetCombat(id ecs.EntityID, v component.Combat, tick uint64) error {
	c, ok := s.combats.Get(id)
	if !ok {
		return notFound(id, "Combat")
	}
	v.LastUpdatedTick = tick
	*c = v
	return nil
}

func (s *Store) Player(id ecs.EntityID) (component.Player, error) {
	c, ok := s.players.Get(id)
	if !ok {
		return component.Player{}, notFound(id, "Player")
	}
	return *c, nil
}

func (s *Store) Inventory(id ecs.EntityID) (component.Inventory, error) {
	c, ok := s.inventories.Get(id)
	if !ok {
		return component.Inventory{}, notFound(id, "Inventory")
	}
	return *c, nil
}

func (s *Store) SetInventory(id ecs.EntityID, v component.Inventory, tick uint64) error {
	c, ok := s.inventories.Get(id)
	if !ok {
		return notFound(id, "Inventory")
	}
	v.LastUpdatedTick = tick
	*c = v
	return nil
}

// EachPositionHealth iterates entities that have both Position and Health —
// used by evaluateSystem to scan both players' HP in one pass instead of
// two separate component lookups.
func (s *Store) EachPositionHealth(fn func(ecs.EntityID, *component.Position, *component.Health)) {
	ecs.Each2(s.positions, s.healths, fn)
}
