package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (s recordingSystem) Phase() Phase { return s.phase }
func (s recordingSystem) Update(dt time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestRunner_TickRunsSystemsInPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()

	// Register out of order to prove the runner sorts by phase, not
	// registration order.
	r.Register(recordingSystem{phase: PhaseCleanup, name: "cleanup", log: &log})
	r.Register(recordingSystem{phase: PhaseExpiry, name: "expiry", log: &log})
	r.Register(recordingSystem{phase: PhaseEvaluate, name: "evaluate", log: &log})
	r.Register(recordingSystem{phase: PhaseConfirm, name: "confirm", log: &log})
	r.Register(recordingSystem{phase: PhaseOutput, name: "output", log: &log})
	r.Register(recordingSystem{phase: PhaseReconcile, name: "reconcile", log: &log})

	r.Tick(0)

	require.Equal(t, []string{"expiry", "confirm", "reconcile", "evaluate", "output", "cleanup"}, log)
}

func TestRunner_TickPhaseRunsOnlyThatPhase(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recordingSystem{phase: PhaseExpiry, name: "expiry", log: &log})
	r.Register(recordingSystem{phase: PhaseEvaluate, name: "evaluate", log: &log})

	r.TickPhase(PhaseEvaluate, 0)

	require.Equal(t, []string{"evaluate"}, log)
}
