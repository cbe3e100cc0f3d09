package inmem

import (
	"context"

	"github.com/google/uuid"

	"agentrt/agent"
)

// UUIDGenerator is the default agent.IDGenerator: every run ID is a
// fresh random UUID, so distinct processes never collide. See
// CounterIDGenerator for the deterministic alternate used by tests and
// reproducible replay.
type UUIDGenerator struct{}

func (UUIDGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	return agent.RunID(uuid.NewString()), nil
}

// NewChildRunID mints a random sub-run ID dotted under parent, mirroring
// CounterIDGenerator's deterministic namespacing for the default,
// non-reproducible generator.
func (UUIDGenerator) NewChildRunID(_ context.Context, parent agent.RunID) (agent.RunID, error) {
	return agent.RunID(string(parent) + ".sub-" + uuid.NewString()), nil
}

var (
	_ agent.IDGenerator      = UUIDGenerator{}
	_ agent.ChildIDGenerator = UUIDGenerator{}
	_ agent.IDGenerator      = (*CounterIDGenerator)(nil)
	_ agent.ChildIDGenerator = (*CounterIDGenerator)(nil)
)
