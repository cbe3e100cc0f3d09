package inmem

import (
	"context"
	"sync"

	"agentrt/agent"
)

// Sink captures runtime events in memory and exposes deterministic snapshots.
type Sink struct {
	mu     sync.RWMutex
	events []agent.Event
}

var _ agent.EventSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{events: make([]agent.Event, 0)}
}

func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := agent.ValidateEvent(event); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, cloneEvent(event))
	return nil
}

func (s *Sink) Events() []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]agent.Event, len(s.events))
	for i := range s.events {
		out[i] = cloneEvent(s.events[i])
	}
	return out
}

// EventsForRun returns, in publish order, the events captured for one
// run ID. One Sink accumulates events from every run a server hosts,
// including delegated sub-agent runs and successive Continue calls
// that mint a fresh run ID per turn, so most callers want a single
// run's slice rather than the full accumulated history.
func (s *Sink) EventsForRun(runID agent.RunID) []agent.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []agent.Event
	for _, event := range s.events {
		if event.RunID == runID {
			out = append(out, cloneEvent(event))
		}
	}
	return out
}

func cloneEvent(in agent.Event) agent.Event {
	out := in
	if in.Message != nil {
		message := agent.CloneMessage(*in.Message)
		out.Message = &message
	}
	return out
}
