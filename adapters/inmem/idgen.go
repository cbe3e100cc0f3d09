package inmem

import (
	"context"
	"fmt"
	"sync/atomic"

	"agentrt/agent"
)

// CounterIDGenerator provides deterministic, reproducible run IDs for
// tests and demos in place of random UUIDs. It also mints child run
// IDs for a delegation batch (Server.Delegate), namespaced under the
// parent run so every sub-run a batch spawns stays traceable back to
// the run that started it.
type CounterIDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

func NewCounterIDGenerator(prefix string) *CounterIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &CounterIDGenerator{
		prefix: prefix,
	}
}

func (g *CounterIDGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	next := g.counter.Add(1)
	return agent.RunID(fmt.Sprintf("%s-%06d", g.prefix, next)), nil
}

// NewChildRunID mints one sub-run ID for a delegation batch, dotted
// under parent so the sub-runs of one delegation call share a
// grep-able, sortable namespace distinct from any other run's.
func (g *CounterIDGenerator) NewChildRunID(_ context.Context, parent agent.RunID) (agent.RunID, error) {
	next := g.counter.Add(1)
	return agent.RunID(fmt.Sprintf("%s.sub-%06d", parent, next)), nil
}
