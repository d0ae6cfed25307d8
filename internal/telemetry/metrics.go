// Package telemetry exposes match-engine health to an operator via
// Prometheus — tick overruns, degraded matches, settlement outcomes. It
// never carries gameplay state; that boundary is explicit in spec.md's
// Non-goals (no metrics-as-gameplay-transport).
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the match engine registers.
type Metrics struct {
	TickDuration   *prometheus.HistogramVec
	TickOverruns   *prometheus.CounterVec
	DegradedMatch  *prometheus.GaugeVec
	ActionsTotal   *prometheus.CounterVec
	RejectionTotal *prometheus.CounterVec

	OptimisticExpired   prometheus.Counter
	OptimisticConfirmed prometheus.Counter

	SettlementJobsTotal    *prometheus.CounterVec
	SettlementJobDuration  prometheus.Histogram
	SettlementQueueDepth   prometheus.Gauge
	MatchesActive          prometheus.Gauge
}

// New creates and registers all collectors against reg. Each call builds a
// fresh, independent set of collectors, so tests and concurrent match
// engines under test must pass their own *prometheus.Registry rather than
// sharing the global DefaultRegisterer — registering the same collector
// names onto a shared registerer more than once panics with
// AlreadyRegisteredError.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matchengine_tick_duration_seconds",
				Help:    "Wall-clock time spent running one match tick",
				Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.03, 0.05, 0.1, 0.25},
			},
			[]string{"match_id"},
		),
		TickOverruns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_tick_overruns_total",
				Help: "Ticks whose processing exceeded the configured tick period",
			},
			[]string{"match_id"},
		),
		DegradedMatch: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "matchengine_match_degraded",
				Help: "1 if a match has entered degraded mode (consecutive overruns), else 0",
			},
			[]string{"match_id"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_actions_total",
				Help: "Actions submitted, labeled by kind",
			},
			[]string{"match_id", "kind"},
		),
		RejectionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_action_rejections_total",
				Help: "Actions rejected by the validator, labeled by reject reason",
			},
			[]string{"match_id", "reason"},
		),
		OptimisticExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_optimistic_expired_total",
			Help: "Optimistic updates rolled back after exceeding their TTL",
		}),
		OptimisticConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "matchengine_optimistic_confirmed_total",
			Help: "Optimistic updates confirmed by the settlement substrate",
		}),
		SettlementJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "matchengine_settlement_jobs_total",
				Help: "Settlement jobs processed, labeled by outcome",
			},
			[]string{"outcome"}, // completed, retried, disputed
		),
		SettlementJobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchengine_settlement_job_duration_seconds",
			Help:    "Time from job claim to terminal outcome",
			Buckets: prometheus.DefBuckets,
		}),
		SettlementQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "matchengine_settlement_queue_depth",
			Help: "Settlement jobs claimed by the most recent poll",
		}),
		MatchesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "matchengine_matches_active",
			Help: "Matches currently held in the match registry",
		}),
	}
}

func (m *Metrics) RecordTick(matchID string, seconds float64, overrun bool) {
	m.TickDuration.WithLabelValues(matchID).Observe(seconds)
	if overrun {
		m.TickOverruns.WithLabelValues(matchID).Inc()
	}
}

func (m *Metrics) SetDegraded(matchID string, degraded bool) {
	v := 0.0
	if degraded {
		v = 1.0
	}
	m.DegradedMatch.WithLabelValues(matchID).Set(v)
}

func (m *Metrics) RecordAction(matchID, kind string) {
	m.ActionsTotal.WithLabelValues(matchID, kind).Inc()
}

func (m *Metrics) RecordRejection(matchID, reason string) {
	m.RejectionTotal.WithLabelValues(matchID, reason).Inc()
}
