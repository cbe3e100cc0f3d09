package agent

import "context"

// ModelRequest is the transport-neutral LLM input contract: the full
// transcript plus the strict JSON schema (C4) the reply must satisfy.
type ModelRequest struct {
	Messages     []Message
	ActionSchema map[string]any
}

// Model requests a structured ActionReply from an LLM transport. A
// transport failure here is fatal to the loop iteration (§4.6 step 3)
// and is never retried by the executor itself.
type Model interface {
	Generate(ctx context.Context, request ModelRequest) (ActionReply, error)
}

// ModelDescriber is implemented optionally by a Model that can name
// itself for telemetry. A Model that doesn't implement it is described
// generically in emitted events.
type ModelDescriber interface {
	ModelName() string
}

// RunStore persists and reloads executor context for continuation and
// observability. Save uses optimistic concurrency based on
// ExecutorContext.Version and bumps it by one on success.
type RunStore interface {
	Save(ctx context.Context, ctxState ExecutorContext) error
	Load(ctx context.Context, runID RunID) (ExecutorContext, error)
}

// EventSink receives normalized runtime events.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// IDGenerator creates run IDs at the runtime boundary.
type IDGenerator interface {
	NewRunID(ctx context.Context) (RunID, error)
}

// ChildIDGenerator is implemented optionally by an IDGenerator that can
// derive a namespaced sub-run ID for one task in a delegation batch. An
// IDGenerator that doesn't implement it is simply asked for a fresh,
// unrelated run ID per task instead.
type ChildIDGenerator interface {
	NewChildRunID(ctx context.Context, parent RunID) (RunID, error)
}
