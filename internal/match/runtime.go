package match

import (
	"time"

	"go.uber.org/zap"

	"github.com/duelforge/matchengine/internal/clock"
	"github.com/duelforge/matchengine/internal/component"
	"github.com/duelforge/matchengine/internal/core/ecs"
	"github.com/duelforge/matchengine/internal/core/event"
	"github.com/duelforge/matchengine/internal/core/system"
	"github.com/duelforge/matchengine/internal/entitystore"
	"github.com/duelforge/matchengine/internal/optimistic"
	"github.com/duelforge/matchengine/internal/rules"
	"github.com/duelforge/matchengine/internal/session"
	"github.com/duelforge/matchengine/internal/telemetry"
)

// Config carries the per-match tunables enumerated in spec.md §6.
type Config struct {
	ID                   string
	TickPeriod           time.Duration
	DurationTicks        uint64
	OptimisticTTLTicks   uint64
	Arena                component.ArenaBox
	MaxCooldownTicks     uint64
	AttackCooldownTicks  uint64
	DefendMaxDuration    uint8
	MaxActionsPerTick    int
	SessionDurationTicks uint64
	Formula              rules.DamageFormula
}

// ActionReceipt is submit_action's success result (spec.md §4.5).
type ActionReceipt struct {
	UpdateID    uint64
	AppliedTick uint64
	LatencyUs   int64
}

// Runtime is one MatchRuntime instance (spec.md §4.5). It exclusively owns
// its EntityStore, SessionRegistry, OptimisticManager, and action log for
// the match's lifetime; callers only ever reach it through a Handle
// (registry.go), which serializes access.
type Runtime struct {
	cfg    Config
	clock  clock.Source
	bus    *event.Bus
	runner *system.Runner
	log    *zap.Logger
	metric *telemetry.Metrics

	store    *entitystore.Store
	sessions *session.Registry
	optim    *optimistic.Manager
	actions  *ActionLog

	player1, player2 ecs.EntityID
	lastMoveTick     map[ecs.EntityID]uint64

	state        State
	startTick    uint64
	deadlineTick uint64
	currentTick  uint64
	outcome      *Outcome

	actionsThisTick map[session.ID]int
	confirmInbox    chan uint64

	consecutiveOverruns int
	degraded            bool
	tornDown            bool
}

// PlayerSeed is the initial component set for one side of a match.
type PlayerSeed struct {
	Wallet   component.PublicKey
	Name     string
	Level    uint16
	Position component.Position
	Health   component.Health
	Combat   component.Combat
	Inventory component.Inventory
}

// NewRuntime constructs a match in the Waiting state (spec.md §4.5).
func NewRuntime(cfg Config, p1, p2 PlayerSeed, clk clock.Source, metric *telemetry.Metrics, logger *zap.Logger) *Runtime {
	store := entitystore.New()

	e1 := store.Create(entitystore.Seed{
		Position:  p1.Position,
		Health:    p1.Health,
		Combat:    p1.Combat,
		Player:    component.Player{Wallet: p1.Wallet, Name: p1.Name, Level: p1.Level},
		Inventory: p1.Inventory,
	})
	e2 := store.Create(entitystore.Seed{
		Position:  p2.Position,
		Health:    p2.Health,
		Combat:    p2.Combat,
		Player:    component.Player{Wallet: p2.Wallet, Name: p2.Name, Level: p2.Level},
		Inventory: p2.Inventory,
	})

	rt := &Runtime{
		cfg:             cfg,
		clock:           clk,
		bus:             event.NewBus(),
		runner:          system.NewRunner(),
		log:             logger,
		metric:          metric,
		store:           store,
		sessions:        session.NewRegistry(),
		optim:           optimistic.NewManager(store),
		actions:         NewActionLog(),
		player1:         e1,
		player2:         e2,
		lastMoveTick:    make(map[ecs.EntityID]uint64, 2),
		state:           Waiting,
		actionsThisTick: make(map[session.ID]int, 2),
		confirmInbox:    make(chan uint64, 64),
	}

	rt.runner.Register(&expirySystem{rt: rt})
	rt.runner.Register(&confirmSystem{rt: rt})
	rt.runner.Register(&reconcileSystem{rt: rt})
	rt.runner.Register(&evaluateSystem{rt: rt})
	rt.runner.Register(&outputSystem{rt: rt})
	rt.runner.Register(&cleanupSystem{rt: rt})

	return rt
}

// IssueSessions transitions Waiting->Ready, issuing one session per player
// (spec.md §4.5).
func (rt *Runtime) IssueSessions(tick uint64) (p1 session.ID, p2 session.ID) {
	p1Wallet, _ := rt.store.Player(rt.player1)
	p2Wallet, _ := rt.store.Player(rt.player2)
	p1 = rt.sessions.Issue(rt.cfg.ID, p1Wallet.Wallet, rt.player1, tick, rt.cfg.SessionDurationTicks)
	p2 = rt.sessions.Issue(rt.cfg.ID, p2Wallet.Wallet, rt.player2, tick, rt.cfg.SessionDurationTicks)
	rt.state = Ready
	return p1, p2
}

// Begin transitions Ready->Playing, stamping start_tick/deadline_tick
// (spec.md §4.5).
func (rt *Runtime) Begin(tick uint64) {
	rt.startTick = tick
	rt.deadlineTick = tick + rt.cfg.DurationTicks
	rt.currentTick = tick
	rt.state = Playing
}

// ConfirmationInbox returns the channel an external settlement substrate
// confirmation feed writes admitted update ids to (spec.md §4.5 step 2,
// "drain confirmations from the external substrate inbox"). Non-blocking
// sends only — a full inbox means the confirming authority is stalled and
// the optimistic TTL sweep is the backpressure valve (spec.md §4.4).
func (rt *Runtime) ConfirmationInbox() chan<- uint64 { return rt.confirmInbox }

// SubmitAction validates and optimistically applies one action (spec.md
// §4.5). latency_us is measured against rt.clock so tests using a Fake
// clock get deterministic receipts.
func (rt *Runtime) SubmitAction(sid session.ID, nonce, clientTickTimestamp uint64, action rules.Action) (ActionReceipt, error) {
	submitStart := rt.clock.Now()

	if rt.state != Playing {
		return ActionReceipt{}, &SubmitError{Kind: ErrMatchEnded}
	}

	if rt.cfg.MaxActionsPerTick > 0 && rt.actionsThisTick[sid] >= rt.cfg.MaxActionsPerTick {
		return ActionReceipt{}, &SubmitError{Kind: ErrBusy}
	}

	switch rt.sessions.Authorize(sid, nonce, rt.currentTick) {
	case session.AuthExpired:
		return ActionReceipt{}, &SubmitError{Kind: ErrSessionExpired}
	case session.AuthReplayOrRegression:
		return ActionReceipt{}, &SubmitError{Kind: ErrReplayed}
	case session.AuthUnknown:
		return ActionReceipt{}, &SubmitError{Kind: ErrUnauthorized}
	}

	sess, _ := rt.sessions.Get(sid)
	actor := sess.EntityID

	lastMove := rt.lastMoveTick[actor]
	valid, err := rules.Validate(rt.store, rules.MatchActive(true), actor, action, rt.currentTick, nonce, lastMove, rt.validatorConfig())
	if err != nil {
		rejection, _ := err.(*rules.Rejection)
		kind := rules.RejectInvalidParameters
		if rejection != nil {
			kind = rejection.Kind
		}
		if rt.metric != nil {
			rt.metric.RecordRejection(rt.cfg.ID, kind.String())
		}
		return ActionReceipt{}, &SubmitError{Kind: ErrRejected, RejectReason: kind}
	}

	update, err := rt.optim.Admit(sid.String(), valid.Effects, rt.currentTick, rt.cfg.OptimisticTTLTicks)
	if err != nil {
		return ActionReceipt{}, &SubmitError{Kind: ErrConflict}
	}

	if action.Kind == rules.KindMove {
		rt.lastMoveTick[actor] = rt.currentTick
	}
	rt.actionsThisTick[sid]++

	rt.actions.AppendTentative(LoggedAction{
		UpdateID:  update.ID,
		SessionID: sid.String(),
		Actor:     actor,
		Action:    action,
		Nonce:     nonce,
		Tick:      rt.currentTick,
	})

	if action.Kind == rules.KindForfeit {
		// Forfeit touches no components, so there is nothing for a future
		// confirmation/expiry to reconcile — confirm it immediately.
		rt.optim.Confirm(update.ID)
		rt.actions.Finalize(update.ID)

		loser := actor
		var winner ecs.EntityID
		if loser == rt.player1 {
			winner = rt.player2
		} else {
			winner = rt.player1
		}
		rt.endMatch(EndForfeit, &winner)
	}

	event.Emit(rt.bus, event.OptimisticApplied{
		MatchID:  rt.cfg.ID,
		UpdateID: update.ID,
		Entity:   actor,
		Tick:     rt.currentTick,
	})

	if rt.metric != nil {
		rt.metric.RecordAction(rt.cfg.ID, kindLabel(action.Kind))
	}

	latency := rt.clock.Now().Sub(submitStart)
	return ActionReceipt{
		UpdateID:    update.ID,
		AppliedTick: rt.currentTick,
		LatencyUs:   latency.Microseconds(),
	}, nil
}

func (rt *Runtime) validatorConfig() rules.Config {
	return rules.Config{
		MatchID:           rt.cfg.ID,
		ArenaBox:          rt.cfg.Arena,
		MaxCooldownTicks:  rt.cfg.MaxCooldownTicks,
		DefendMaxDuration: rt.cfg.DefendMaxDuration,
		CooldownTicks:     rt.cfg.AttackCooldownTicks,
		Formula:           rt.cfg.Formula,
	}
}

func kindLabel(k rules.Kind) string {
	switch k {
	case rules.KindMove:
		return "move"
	case rules.KindAttack:
		return "attack"
	case rules.KindDefend:
		return "defend"
	case rules.KindItem:
		return "item"
	case rules.KindForfeit:
		return "forfeit"
	default:
		return "unknown"
	}
}

// Tick advances the match by one tick (spec.md §4.5): expiry sweep, drain
// confirmations, reconcile, evaluate win/timeout, emit deltas, cleanup.
func (rt *Runtime) Tick(tick uint64) {
	start := rt.clock.Now()
	rt.currentTick = tick
	rt.actionsThisTick = make(map[session.ID]int, 2)

	// Dispatch last tick's events before this tick's systems emit new ones
	// into the (now-cleared) back buffer — mirrors the teacher's
	// EventDispatchSystem convention of swapping at tick start.
	rt.bus.SwapBuffers()
	rt.bus.DispatchAll()

	rt.runner.Tick(rt.cfg.TickPeriod)

	elapsed := rt.clock.Now().Sub(start)
	overrun := elapsed > rt.cfg.TickPeriod
	if rt.metric != nil {
		rt.metric.RecordTick(rt.cfg.ID, elapsed.Seconds(), overrun)
	}

	if overrun {
		rt.consecutiveOverruns++
	} else {
		rt.consecutiveOverruns = 0
		if rt.degraded {
			rt.degraded = false
			if rt.metric != nil {
				rt.metric.SetDegraded(rt.cfg.ID, false)
			}
		}
	}
	if rt.consecutiveOverruns >= 3 && !rt.degraded {
		rt.degraded = true
		if rt.metric != nil {
			rt.metric.SetDegraded(rt.cfg.ID, true)
		}
		if rt.log != nil {
			rt.log.Warn("match degraded: three consecutive tick overruns", zap.String("match_id", rt.cfg.ID))
		}
	}
}

// Degraded reports whether validator work should be reduced (spec.md §5).
func (rt *Runtime) Degraded() bool { return rt.degraded }

func (rt *Runtime) endMatch(reason EndReason, winner *ecs.EntityID) {
	if rt.state == Ended {
		return
	}
	rt.state = Ended
	rt.outcome = &Outcome{Reason: reason, Winner: winner}
	event.Emit(rt.bus, event.MatchEnded{
		MatchID: rt.cfg.ID,
		Reason:  reason.String(),
		Winner:  winner,
	})
}

// EndNow is the admin override forcing Ended (spec.md §4.5).
func (rt *Runtime) EndNow(reason EndReason, winner *ecs.EntityID) {
	rt.endMatch(reason, winner)
}

// State reports the match's current lifecycle state.
func (rt *Runtime) State() State { return rt.state }

// Outcome returns the terminal outcome once Ended, or nil.
func (rt *Runtime) Outcome() *Outcome { return rt.outcome }

// ActionLogRoot exposes the settlement proof digest over confirmed actions.
func (rt *Runtime) ActionLogRoot() [32]byte { return rt.actions.Root() }

// Players returns the two player entity ids.
func (rt *Runtime) Players() (ecs.EntityID, ecs.EntityID) { return rt.player1, rt.player2 }

// MatchID returns the match's id.
func (rt *Runtime) MatchID() string { return rt.cfg.ID }

// GameStateView is snapshot()'s cheap per-entity read (spec.md §4.5).
type GameStateView struct {
	Tick    uint64
	State   State
	Players map[ecs.EntityID]EntityView
}

// EntityView is one entity's optimistic component snapshot.
type EntityView struct {
	Position component.Position
	Health   component.Health
	Combat   component.Combat
}

// Snapshot returns a cheap copy-on-read view of both players' current
// (optimistic) state (spec.md §4.5).
func (rt *Runtime) Snapshot() GameStateView {
	view := GameStateView{Tick: rt.currentTick, State: rt.state, Players: make(map[ecs.EntityID]EntityView, 2)}
	for _, e := range []ecs.EntityID{rt.player1, rt.player2} {
		pos, _ := rt.store.Position(e)
		hp, _ := rt.store.Health(e)
		combat, _ := rt.store.Combat(e)
		view.Players[e] = EntityView{Position: pos, Health: hp, Combat: combat}
	}
	return view
}

// Bus exposes the match's event bus for subscription by transport-layer
// adapters (out of scope here, but wired in so they have somewhere to
// attach).
func (rt *Runtime) Bus() *event.Bus { return rt.bus }
