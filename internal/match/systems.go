package match

import (
	"time"

	"go.uber.org/zap"

	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/core/event"
	"github.com/duelforge/matchengine/internal/core/system"
)

// expirySystem runs OptimisticManager's expiry sweep every tick — the
// primary backpressure valve when the settlement substrate stalls
// (spec.md §4.4).
type expirySystem struct{ rt *Runtime }

func (s *expirySystem) Phase() system.Phase { return system.PhaseExpiry }

func (s *expirySystem) Update(time.Duration) {
	rt := s.rt
	for _, id := range rt.optim.SweepExpired(rt.currentTick) {
		rt.actions.Remove(id)
		event.Emit(rt.bus, event.OptimisticExpired{MatchID: rt.cfg.ID, UpdateID: id, Tick: rt.currentTick})
		if rt.metric != nil {
			rt.metric.OptimisticExpired.Inc()
		}
	}
}

// confirmSystem drains the external substrate's confirmation inbox
// (spec.md §4.5 step 2).
type confirmSystem struct{ rt *Runtime }

func (s *confirmSystem) Phase() system.Phase { return system.PhaseConfirm }

func (s *confirmSystem) Update(time.Duration) {
	rt := s.rt
	for {
		select {
		case id := <-rt.confirmInbox:
			if _, err := rt.optim.Confirm(id); err == nil {
				rt.actions.Finalize(id)
				event.Emit(rt.bus, event.OptimisticConfirmed{MatchID: rt.cfg.ID, UpdateID: id, Tick: rt.currentTick})
				if rt.metric != nil {
					rt.metric.OptimisticConfirmed.Inc()
				}
			}
		default:
			return
		}
	}
}

// reconcileSystem checks the Health-bounded invariant after confirmations
// land; a violation is fatal for the match (spec.md §7 "Runtime invariant").
type reconcileSystem struct{ rt *Runtime }

func (s *reconcileSystem) Phase() system.Phase { return system.PhaseReconcile }

func (s *reconcileSystem) Update(time.Duration) {
	rt := s.rt
	if rt.state != Playing {
		return
	}
	for _, e := range []ecs.EntityID{rt.player1, rt.player2} {
		hp, err := rt.store.Health(e)
		if err != nil {
			continue
		}
		if hp.Current > hp.Max {
			if rt.log != nil {
				rt.log.Error("health invariant violated, disputing match", zap.String("match_id", rt.cfg.ID))
			}
			rt.endMatch(EndDisputed, nil)
			return
		}
	}
}

// evaluateSystem checks win/timeout conditions (spec.md §4.5).
type evaluateSystem struct{ rt *Runtime }

func (s *evaluateSystem) Phase() system.Phase { return system.PhaseEvaluate }

func (s *evaluateSystem) Update(time.Duration) {
	rt := s.rt
	if rt.state != Playing {
		return
	}

	// Scan both players in one Position+Health pass rather than two
	// individual lookups — the same query a free-for-all win-condition
	// scan over an arbitrary entity set would use.
	healths := make(map[ecs.EntityID]component.Health, 2)
	rt.store.EachPositionHealth(func(id ecs.EntityID, _ *component.Position, hp *component.Health) {
		if id == rt.player1 || id == rt.player2 {
			healths[id] = *hp
		}
	})
	h1, ok1 := healths[rt.player1]
	h2, ok2 := healths[rt.player2]
	if !ok1 || !ok2 {
		return
	}

	if h1.Dead() || h2.Dead() {
		switch {
		case h1.Dead() && h2.Dead():
			rt.endMatch(EndElimination, nil)
		case h1.Dead():
			winner := rt.player2
			rt.endMatch(EndElimination, &winner)
		default:
			winner := rt.player1
			rt.endMatch(EndElimination, &winner)
		}
		return
	}

	if rt.currentTick >= rt.deadlineTick {
		switch {
		case h1.Current > h2.Current:
			winner := rt.player1
			rt.endMatch(EndTimeout, &winner)
		case h2.Current > h1.Current:
			winner := rt.player2
			rt.endMatch(EndTimeout, &winner)
		default:
			rt.endMatch(EndTimeout, nil)
		}
	}
}

// outputSystem emits a StateDelta per entity every tick (spec.md §4.5
// step 5).
type outputSystem struct{ rt *Runtime }

func (s *outputSystem) Phase() system.Phase { return system.PhaseOutput }

func (s *outputSystem) Update(time.Duration) {
	rt := s.rt
	for _, e := range []ecs.EntityID{rt.player1, rt.player2} {
		event.Emit(rt.bus, event.StateDelta{MatchID: rt.cfg.ID, Entity: e, Tick: rt.currentTick})
	}
}

// cleanupSystem tears down entities once the match has ended. It only
// acts once — the teacher's CleanupSystem ran every tick against a
// destroy queue; here the queue is only ever populated after Ended.
type cleanupSystem struct{ rt *Runtime }

func (s *cleanupSystem) Phase() system.Phase { return system.PhaseCleanup }

func (s *cleanupSystem) Update(time.Duration) {
	rt := s.rt
	if rt.state != Ended || rt.tornDown {
		return
	}
	rt.store.MarkForTeardown(rt.player1)
	rt.store.MarkForTeardown(rt.player2)
	rt.store.FlushTeardown()
	rt.tornDown = true
}
