// Package testkit collects small test-only helpers shared across the
// module's own test suites: goroutine-leak verification for the
// server actor's background goroutines, a zap logger wired to the
// test's own t.Log output, and a couple of testify-based assertions
// for run status and event sequences.
package testkit

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"agentrt/agent"
)

// VerifyNoLeaks fails t if any goroutine spawned during the test is
// still running when it returns. Call as the first statement via
// defer testkit.VerifyNoLeaks(t) in tests that start an actor,
// executor worker, or any other background goroutine.
func VerifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t,
		// Redis/Mongo drivers keep idle connection-pool maintenance
		// goroutines alive past a single test's teardown.
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
		goleak.IgnoreTopFunction("go.mongodb.org/mongo-driver/x/mongo/driver/topology.(*pool).maintain"),
	)
}

// Logger returns a zap logger that writes through t.Log, so failures
// interleave log output with the failing assertion instead of racing
// stdout across parallel tests.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// RequireStatus asserts ctxState is in status, printing the full
// context on failure so a mis-transitioned run is easy to diagnose.
func RequireStatus(t *testing.T, ctxState agent.ExecutorContext, status agent.RunStatus) {
	t.Helper()
	require.Equal(t, status, ctxState.Status, "run %q: expected status %q, got %+v", ctxState.ID, status, ctxState)
}

// RequireEventTypes asserts events carries exactly the given sequence
// of event types, in order.
func RequireEventTypes(t *testing.T, events []agent.Event, want ...agent.EventType) {
	t.Helper()
	got := make([]agent.EventType, len(events))
	for i, e := range events {
		got[i] = e.Type
	}
	require.Equal(t, want, got)
}
