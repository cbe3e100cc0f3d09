package server_test

import (
	"context"
	"testing"
	"time"

	"agentrt/adapters/modeltest"
	"agentrt/agent"
	"agentrt/allowlist"
	"agentrt/server"
)

// watchSink forwards every event to an inner in-memory sink (for later
// inspection) and additionally signals on matching(event) whenever it
// returns true, so a test can block until a specific lifecycle moment
// instead of polling.
type watchSink struct {
	matching func(agent.Event) bool
	signal   chan agent.Event
}

var _ agent.EventSink = (*watchSink)(nil)

func newWatchSink(matching func(agent.Event) bool) *watchSink {
	return &watchSink{matching: matching, signal: make(chan agent.Event, 8)}
}

func (s *watchSink) Publish(_ context.Context, event agent.Event) error {
	if s.matching(event) {
		select {
		case s.signal <- event:
		default:
		}
	}
	return nil
}

func (s *watchSink) awaitOne(t *testing.T) agent.Event {
	t.Helper()
	select {
	case event := <-s.signal:
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for expected event")
		return agent.Event{}
	}
}

func isTerminal(t agent.EventType) bool {
	switch t {
	case agent.EventTypeRunCompleted, agent.EventTypeRunFailed, agent.EventTypeRunCancelled:
		return true
	default:
		return false
	}
}

func basicDescriptor() agent.AgentDescriptor {
	return agent.AgentDescriptor{
		ModuleDoc:    "server test agent",
		OutputSchema: agent.OutputSchema{{Name: "value", Type: agent.FieldTypeString, Required: true}},
	}
}

func TestServer_StartReachesCompletedTerminalState(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "hello"}}},
	)
	sink := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	srv := server.New(basicDescriptor(), "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-1", "say hello")
	event := sink.awaitOne(t)

	if event.Type != agent.EventTypeRunCompleted {
		t.Fatalf("expected run.completed, got %s", event.Type)
	}
	if handle.RunID() != "run-1" {
		t.Fatalf("unexpected run id: %s", handle.RunID())
	}
}

func TestServer_CallRunsFollowUpTurnAndBlocksForResult(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "first"}}},
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "second"}}},
	)
	sink := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	srv := server.New(basicDescriptor(), "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-2", "say hello")
	sink.awaitOne(t)

	result, err := srv.Call(context.Background(), handle, "say it again")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if result.Context.Status != agent.RunStatusCompleted {
		t.Fatalf("expected completed status, got %s", result.Context.Status)
	}
	if result.Context.Iteration != 0 {
		t.Fatalf("expected a follow-up call to reset iteration, got %d", result.Context.Iteration)
	}
}

func TestServer_CastEnqueuesFollowUpWithoutBlocking(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "first"}}},
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "second"}}},
	)
	sink := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	srv := server.New(basicDescriptor(), "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-3", "say hello")
	first := sink.awaitOne(t)
	if first.Type != agent.EventTypeRunCompleted {
		t.Fatalf("expected first run.completed, got %s", first.Type)
	}

	if err := srv.Cast(handle, "say it again"); err != nil {
		t.Fatalf("cast: %v", err)
	}

	second := sink.awaitOne(t)
	if second.Type != agent.EventTypeRunCompleted {
		t.Fatalf("expected second run.completed, got %s", second.Type)
	}

	if err := srv.Cast(server.Handle{}, "ignored"); err == nil {
		t.Fatal("expected Cast against a zero-value handle to report no active run")
	}
}

func TestServer_RespondWithoutPendingRequestFails(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "hello"}}},
	)
	sink := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	srv := server.New(basicDescriptor(), "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-4", "say hello")
	sink.awaitOne(t)

	err := srv.Respond(context.Background(), handle, "answer")
	if err != agent.ErrNoPendingRequest {
		t.Fatalf("expected ErrNoPendingRequest, got %v", err)
	}
}

func TestServer_HumanAskSuspendsAndRespondResumes(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{
			Action: agent.ActionEvalAndComplete,
			Code:   `result = human.ask(question="continue?")`,
		}},
	)
	descriptor := basicDescriptor()
	descriptor.Allowlist = allowlist.New().Allow("human", allowlist.OnlyOf("ask", "confirm"))

	requested := newWatchSink(func(e agent.Event) bool { return e.Type == agent.EventTypeHumanRequested })
	terminal := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	sink := multiSink{requested, terminal}

	srv := server.New(descriptor, "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-5", "ask a human")
	ask := requested.awaitOne(t)
	if ask.Description != "continue?" {
		t.Fatalf("expected the question in the event description, got %q", ask.Description)
	}

	if err := srv.Respond(context.Background(), handle, "yes"); err != nil {
		t.Fatalf("respond: %v", err)
	}

	done := terminal.awaitOne(t)
	if done.Type != agent.EventTypeRunCompleted {
		t.Fatalf("expected run.completed, got %s", done.Type)
	}
}

func TestServer_CancelDuringHumanInputUnblocksRun(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{
			Action: agent.ActionEvalAndComplete,
			Code:   `result = human.ask(question="continue?")`,
		}},
	)
	descriptor := basicDescriptor()
	descriptor.Allowlist = allowlist.New().Allow("human", allowlist.OnlyOf("ask", "confirm"))

	requested := newWatchSink(func(e agent.Event) bool { return e.Type == agent.EventTypeHumanRequested })
	terminal := newWatchSink(func(e agent.Event) bool { return isTerminal(e.Type) })
	sink := multiSink{requested, terminal}

	srv := server.New(descriptor, "system", model, sink, agent.DefaultConfig())

	handle := srv.Start(context.Background(), "run-6", "ask a human")
	requested.awaitOne(t)

	if err := srv.Cancel(context.Background(), handle); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	terminal.awaitOne(t)

	if err := srv.Cancel(context.Background(), handle); err == nil {
		t.Fatal("expected cancelling an already-terminal run to fail")
	}
}

func TestServer_CancelUnknownRunFails(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel()
	srv := server.New(basicDescriptor(), "system", model, newWatchSink(func(agent.Event) bool { return false }), agent.DefaultConfig())

	if err := srv.Cancel(context.Background(), server.Handle{}); err == nil {
		t.Fatal("expected cancelling an unknown run to fail")
	}
}

// multiSink fans one event out to every inner sink, letting a test
// watch for more than one kind of lifecycle moment on a single run.
type multiSink []agent.EventSink

func (m multiSink) Publish(ctx context.Context, event agent.Event) error {
	for _, sink := range m {
		if err := sink.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
