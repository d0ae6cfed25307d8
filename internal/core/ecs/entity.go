package ecs

import "github.com/google/uuid"

// EntityID is an opaque 128-bit identifier. Unlike a generational index,
// it carries no internal structure a caller could exploit — entities are
// match-scoped and few in number, so collision-free uuid allocation is
// cheaper to reason about than a free-list of reused indices.
type EntityID uuid.UUID

// NilEntityID is the zero value, never assigned by EntityPool.Create.
var NilEntityID EntityID

func (id EntityID) IsZero() bool   { return id == NilEntityID }
func (id EntityID) String() string { return uuid.UUID(id).String() }

// EntityPool allocates and tracks the liveness of entities for one match.
type EntityPool struct {
	alive map[EntityID]struct{}
}

func NewEntityPool() *EntityPool {
	return &EntityPool{alive: make(map[EntityID]struct{}, 16)}
}

func (p *EntityPool) Create() EntityID {
	id := EntityID(uuid.New())
	p.alive[id] = struct{}{}
	return id
}

func (p *EntityPool) Alive(id EntityID) bool {
	_, ok := p.alive[id]
	return ok
}

func (p *EntityPool) Destroy(id EntityID) {
	delete(p.alive, id)
}

// Len reports the number of live entities, mainly for telemetry.
func (p *EntityPool) Len() int {
	return len(p.alive)
}
