package match

import (
	"sync"

	"go.uber.org/zap"

	"github.com/duelforge/matchengine/internal/clock"
	"github.com/duelforge/matchengine/internal/telemetry"
)

// Handle is the only way callers mutate a Runtime — it enforces
// single-writer semantics via a per-match mutex (spec.md §4.6). Readers
// that only need Snapshot() still go through Handle so they observe a
// state no writer is mid-mutation on, but never block a writer for longer
// than one method call.
type Handle struct {
	mu sync.Mutex
	rt *Runtime
}

func (h *Handle) With(fn func(rt *Runtime)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h.rt)
}

// Registry is the process-wide MatchId -> Handle map (spec.md §4.6).
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*Handle
	clock   clock.Source
	metric  *telemetry.Metrics
	log     *zap.Logger
}

func NewRegistry(clk clock.Source, metric *telemetry.Metrics, logger *zap.Logger) *Registry {
	return &Registry{
		matches: make(map[string]*Handle, 64),
		clock:   clk,
		metric:  metric,
		log:     logger,
	}
}

// Create constructs a new Runtime in the Waiting state and registers it.
func (r *Registry) Create(cfg Config, p1, p2 PlayerSeed) *Handle {
	rt := NewRuntime(cfg, p1, p2, r.clock, r.metric, r.log)
	h := &Handle{rt: rt}

	r.mu.Lock()
	r.matches[cfg.ID] = h
	r.mu.Unlock()

	if r.metric != nil {
		r.metric.MatchesActive.Inc()
	}
	return h
}

// Get looks up a match's Handle.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.matches[id]
	return h, ok
}

// Drop removes a match from the registry. The caller is responsible for
// having already torn the match down to Ended (the Cleanup phase handles
// entity teardown; Drop only releases the registry's reference).
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; ok {
		delete(r.matches, id)
		if r.metric != nil {
			r.metric.MatchesActive.Dec()
		}
	}
}

// Len reports the number of matches currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
