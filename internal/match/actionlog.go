package match

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/rules"
)

// LoggedAction is a compact record of one admitted action, kept only for
// as long as its OptimisticUpdate is Applied or Confirmed — a reject or
// expiry removes the tentative entry (spec.md §4.4).
type LoggedAction struct {
	UpdateID  uint64
	SessionID string
	Actor     ecs.EntityID
	Action    rules.Action
	Nonce     uint64
	Tick      uint64
	Confirmed bool
}

// ActionLog is the ordered sequence of admitted actions backing the
// settlement proof's action_log_root (spec.md §3, §4.7, GLOSSARY).
type ActionLog struct {
	entries []LoggedAction
	index   map[uint64]int // update_id -> position in entries
}

func NewActionLog() *ActionLog {
	return &ActionLog{index: make(map[uint64]int, 64)}
}

// AppendTentative records a newly Applied update.
func (l *ActionLog) AppendTentative(e LoggedAction) {
	l.index[e.UpdateID] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Finalize marks an entry Confirmed in place.
func (l *ActionLog) Finalize(updateID uint64) {
	if i, ok := l.index[updateID]; ok {
		l.entries[i].Confirmed = true
	}
}

// Remove drops a rejected or expired update's tentative entry, preserving
// the order of everything else.
func (l *ActionLog) Remove(updateID uint64) {
	i, ok := l.index[updateID]
	if !ok {
		return
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, updateID)
	for id, pos := range l.index {
		if pos > i {
			l.index[id] = pos - 1
		}
	}
}

// Entries returns the current ordered log (read-only snapshot for callers).
func (l *ActionLog) Entries() []LoggedAction {
	out := make([]LoggedAction, len(l.entries))
	copy(out, l.entries)
	return out
}

// Root computes the settlement proof digest: a blake2b-256 hash over the
// ordered, Confirmed-only action sequence (spec.md §4.7, GLOSSARY "Action
// log root"). Tentative (unconfirmed) entries are excluded, so an update
// still in flight when the root is taken does not contribute to it. Ending
// a match neither confirms nor expires pending updates, and MatchRuntime
// does not enqueue settlement itself.
func (l *ActionLog) Root() [32]byte {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, e := range l.entries {
		if !e.Confirmed {
			continue
		}
		h.Write(e.Actor[:])
		binary.BigEndian.PutUint64(buf[:], e.UpdateID)
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], e.Nonce)
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], e.Tick)
		h.Write(buf[:])
		writeAction(h, e.Action)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeAction(h interface{ Write([]byte) (int, error) }, a rules.Action) {
	var buf [8]byte
	h.Write([]byte{byte(a.Kind), byte(a.Variant)})
	binary.BigEndian.PutUint16(buf[:2], uint16(a.DX))
	binary.BigEndian.PutUint16(buf[2:4], uint16(a.DY))
	binary.BigEndian.PutUint16(buf[4:6], uint16(a.DZ))
	h.Write(buf[:6])
	h.Write(a.Target[:])
	h.Write([]byte{a.DurationTicks, a.Slot})
}
