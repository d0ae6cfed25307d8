package component

// Health invariant: 0 <= Current <= Max (spec.md §3). Callers must clamp
// through SetCurrent rather than assigning the field directly so the
// invariant holds even under optimistic rollback / regen ticks.
type Health struct {
	Current         uint16
	Max             uint16
	RegenRate       uint16
	LastUpdatedTick uint64
}

// SetCurrent clamps v into [0, Max] before storing it.
func (h *Health) SetCurrent(v int32, tick uint64) {
	if v < 0 {
		v = 0
	}
	if v > int32(h.Max) {
		v = int32(h.Max)
	}
	h.Current = uint16(v)
	h.LastUpdatedTick = tick
}

func (h Health) Dead() bool { return h.Current == 0 }
