package optimistic

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/entitystore"
	"github.com/duelforge/matchengine/internal/rules"
)

// ErrKind enumerates OptimisticManager failures.
type ErrKind int

const (
	ErrConflict ErrKind = iota
	ErrUnknownUpdate
	ErrWrongState
)

type Error struct {
	Kind ErrKind
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrConflict:
		return "optimistic: conflicting in-flight update"
	case ErrUnknownUpdate:
		return "optimistic: unknown update id"
	default:
		return "optimistic: update in wrong state for this transition"
	}
}

// preImage snapshots every component a Write touches, keyed by entity, so
// reject/expire can restore it byte-for-byte (spec.md §8 Rollback purity).
type preImage struct {
	position  map[ecs.EntityID]component.Position
	health    map[ecs.EntityID]component.Health
	combat    map[ecs.EntityID]component.Combat
	inventory map[ecs.EntityID]component.Inventory
}

// Manager owns all in-flight OptimisticUpdates for one match. It is owned
// exclusively by a single MatchRuntime — no locking (spec.md §5).
type Manager struct {
	store *entitystore.Store

	nextID uint64
	// pendingByEntity tracks, per entity, the update id currently holding
	// the entity's write lock (at most one, spec.md §4.4).
	pendingByEntity map[ecs.EntityID]uint64
	updates         map[uint64]*Update
	preImages       map[uint64]preImage
	pendingEffects  map[uint64][]rules.Write
}

func NewManager(store *entitystore.Store) *Manager {
	return &Manager{
		store:           store,
		pendingByEntity: make(map[ecs.EntityID]uint64),
		updates:         make(map[uint64]*Update),
		preImages:       make(map[uint64]preImage),
		pendingEffects:  make(map[uint64][]rules.Write),
	}
}

// Admit allocates an update id, checks for a conflicting Pending/Applied
// update on any touched entity, records the pre-image, applies the
// effects, and transitions straight to Applied (spec.md §4.4 — this
// implementation folds the instantaneous Pending->Applied transition into
// one call since ActionValidator already ran by the time effects arrive
// here; the returned Update is already Applied, so Pending is never
// observable on an admitted update).
func (m *Manager) Admit(sessionID string, effects []rules.Write, submitTick, ttlTicks uint64) (*Update, error) {
	entities := make([]ecs.EntityID, 0, len(effects))
	for _, w := range effects {
		entities = append(entities, w.Entity)
	}

	for _, e := range entities {
		if _, held := m.pendingByEntity[e]; held {
			return nil, &Error{Kind: ErrConflict}
		}
	}

	pre := m.snapshot(entities)

	id := m.nextID + 1
	m.nextID = id

	u := &Update{
		ID:           id,
		Entities:     entities,
		SessionID:    sessionID,
		PreImageHash: hashPreImage(pre),
		SubmitTick:   submitTick,
		ExpiryTick:   submitTick + ttlTicks,
		State:        Applied,
	}

	for _, e := range entities {
		m.pendingByEntity[e] = id
	}
	m.updates[id] = u
	m.preImages[id] = pre
	m.pendingEffects[id] = effects

	m.applyEffects(effects)

	return u, nil
}

func (m *Manager) snapshot(entities []ecs.EntityID) preImage {
	pre := preImage{
		position:  make(map[ecs.EntityID]component.Position),
		health:    make(map[ecs.EntityID]component.Health),
		combat:    make(map[ecs.EntityID]component.Combat),
		inventory: make(map[ecs.EntityID]component.Inventory),
	}
	for _, e := range entities {
		if p, err := m.store.Position(e); err == nil {
			pre.position[e] = p
		}
		if h, err := m.store.Health(e); err == nil {
			pre.health[e] = h
		}
		if c, err := m.store.Combat(e); err == nil {
			pre.combat[e] = c
		}
		if inv, err := m.store.Inventory(e); err == nil {
			pre.inventory[e] = inv
		}
	}
	return pre
}

func (m *Manager) applyEffects(effects []rules.Write) {
	for _, w := range effects {
		if w.Position != nil {
			_ = m.store.SetPosition(w.Entity, *w.Position, w.Position.LastUpdatedTick)
		}
		if w.Health != nil {
			_ = m.store.SetHealth(w.Entity, *w.Health, w.Health.LastUpdatedTick)
		}
		if w.Combat != nil {
			_ = m.store.SetCombat(w.Entity, *w.Combat, w.Combat.LastUpdatedTick)
		}
		if w.Inventory != nil {
			_ = m.store.SetInventory(w.Entity, *w.Inventory, w.Inventory.LastUpdatedTick)
		}
	}
}

func (m *Manager) restore(id uint64) {
	pre, ok := m.preImages[id]
	if !ok {
		return
	}
	for e, p := range pre.position {
		_ = m.store.SetPosition(e, p, p.LastUpdatedTick)
	}
	for e, h := range pre.health {
		_ = m.store.SetHealth(e, h, h.LastUpdatedTick)
	}
	for e, c := range pre.combat {
		_ = m.store.SetCombat(e, c, c.LastUpdatedTick)
	}
	for e, inv := range pre.inventory {
		_ = m.store.SetInventory(e, inv, inv.LastUpdatedTick)
	}
}

func (m *Manager) release(u *Update) {
	for _, e := range u.Entities {
		if m.pendingByEntity[e] == u.ID {
			delete(m.pendingByEntity, e)
		}
	}
	delete(m.preImages, u.ID)
	delete(m.pendingEffects, u.ID)
}

// Confirm finalizes an Applied update (spec.md §4.4).
func (m *Manager) Confirm(id uint64) (*Update, error) {
	u, ok := m.updates[id]
	if !ok {
		return nil, &Error{Kind: ErrUnknownUpdate}
	}
	if u.State != Applied {
		return nil, &Error{Kind: ErrWrongState}
	}
	u.State = Confirmed
	m.release(u)
	return u, nil
}

// Reject rolls back an Applied update's pre-image and marks it Rejected
// (spec.md §4.4).
func (m *Manager) Reject(id uint64) (*Update, error) {
	u, ok := m.updates[id]
	if !ok {
		return nil, &Error{Kind: ErrUnknownUpdate}
	}
	if u.State != Applied && u.State != Pending {
		return nil, &Error{Kind: ErrWrongState}
	}
	if u.State == Applied {
		m.restore(id)
	}
	u.State = Rejected
	m.release(u)
	return u, nil
}

// SweepExpired rolls back every Applied update whose ExpiryTick has passed
// without confirmation (spec.md §4.4 — the primary backpressure valve when
// the settlement substrate stalls). Returns the ids that were expired.
func (m *Manager) SweepExpired(now uint64) []uint64 {
	var expired []uint64
	for id, u := range m.updates {
		if u.State == Applied && u.ExpiryTick <= now {
			m.restore(id)
			u.State = Expired
			m.release(u)
			expired = append(expired, id)
		}
	}
	return expired
}

// Get returns an update by id.
func (m *Manager) Get(id uint64) (*Update, bool) {
	u, ok := m.updates[id]
	return u, ok
}

// hashPreImage digests every snapshotted component value in entity-id order
// so the result is stable regardless of Go's randomized map iteration. The
// digest itself is opaque (spec.md only requires it be a stable fingerprint
// of the pre-mutation state); the rollback path restores the actual
// snapshotted values, not this hash.
func hashPreImage(pre preImage) [32]byte {
	ids := sortedEntityIDs(pre)

	h := sha256.New()
	for _, e := range ids {
		h.Write(e[:])
		if p, ok := pre.position[e]; ok {
			binary.Write(h, binary.BigEndian, p.X)
			binary.Write(h, binary.BigEndian, p.Y)
			binary.Write(h, binary.BigEndian, p.Z)
			binary.Write(h, binary.BigEndian, p.Speed)
			binary.Write(h, binary.BigEndian, p.LastUpdatedTick)
		}
		if hp, ok := pre.health[e]; ok {
			binary.Write(h, binary.BigEndian, hp.Current)
			binary.Write(h, binary.BigEndian, hp.Max)
			binary.Write(h, binary.BigEndian, hp.RegenRate)
			binary.Write(h, binary.BigEndian, hp.LastUpdatedTick)
		}
		if c, ok := pre.combat[e]; ok {
			binary.Write(h, binary.BigEndian, c.Attack)
			binary.Write(h, binary.BigEndian, c.Defense)
			binary.Write(h, binary.BigEndian, c.CritChance)
			binary.Write(h, binary.BigEndian, c.CooldownUntilTick)
			binary.Write(h, binary.BigEndian, c.Defending)
			binary.Write(h, binary.BigEndian, c.DefendUntilTick)
			binary.Write(h, binary.BigEndian, c.LastUpdatedTick)
		}
		if inv, ok := pre.inventory[e]; ok {
			binary.Write(h, binary.BigEndian, inv.Slots)
			binary.Write(h, binary.BigEndian, inv.LastUpdatedTick)
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func sortedEntityIDs(pre preImage) []ecs.EntityID {
	seen := make(map[ecs.EntityID]struct{})
	for e := range pre.position {
		seen[e] = struct{}{}
	}
	for e := range pre.health {
		seen[e] = struct{}{}
	}
	for e := range pre.combat {
		seen[e] = struct{}{}
	}
	for e := range pre.inventory {
		seen[e] = struct{}{}
	}
	ids := make([]ecs.EntityID, 0, len(seen))
	for e := range seen {
		ids = append(ids, e)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
