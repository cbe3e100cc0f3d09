package server_test

import (
	"context"
	"strings"
	"testing"

	"agentrt/adapters/inmem"
	"agentrt/adapters/modeltest"
	"agentrt/agent"
	eventinginmem "agentrt/eventing/inmem"
	"agentrt/server"
)

func delegateDescriptor() agent.AgentDescriptor {
	return agent.AgentDescriptor{
		ModuleDoc:    "delegate test agent",
		OutputSchema: agent.OutputSchema{{Name: "value", Type: agent.FieldTypeString, Required: true}},
	}
}

func TestServer_DelegateRunsAllTasksToCompletion(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "one"}}},
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "two"}}},
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "three"}}},
	)
	srv := server.New(delegateDescriptor(), "system", model, eventinginmem.New(), agent.DefaultConfig())

	tasks := []server.DelegateTask{
		{RunID: "sub-1", Task: "first"},
		{RunID: "sub-2", Task: "second"},
		{RunID: "sub-3", Task: "third"},
	}
	results, err := srv.Delegate(context.Background(), tasks, 2)
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, result := range results {
		if result.Context.Status != agent.RunStatusCompleted {
			t.Fatalf("task %d: expected completed status, got %q", i, result.Context.Status)
		}
	}
}

func TestServer_DelegateEmptyTasksReturnsEmptyResults(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel()
	srv := server.New(delegateDescriptor(), "system", model, eventinginmem.New(), agent.DefaultConfig())

	results, err := srv.Delegate(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestServer_DelegatePropagatesPerTaskError(t *testing.T) {
	t.Parallel()

	model := modeltest.NewScriptedModel(
		modeltest.Response{Reply: agent.ActionReply{Action: agent.ActionReturn, Result: map[string]any{"value": "ok"}}},
	)
	srv := server.New(delegateDescriptor(), "system", model, eventinginmem.New(), agent.DefaultConfig())

	tasks := []server.DelegateTask{
		{RunID: "sub-1", Task: "first"},
		{RunID: "sub-2", Task: "second"},
	}
	if _, err := srv.Delegate(context.Background(), tasks, 1); err == nil {
		t.Fatal("expected an error once the scripted model runs out of responses")
	}
}

func TestNewDelegateTasks_NamespacesUnderParentWithChildIDGenerator(t *testing.T) {
	t.Parallel()

	gen := inmem.NewCounterIDGenerator("demo")
	tasks, err := server.NewDelegateTasks(context.Background(), gen, "parent-000001", []string{"first", "second"})
	if err != nil {
		t.Fatalf("new delegate tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if !strings.HasPrefix(string(task.RunID), "parent-000001.sub-") {
			t.Fatalf("task %d: expected run id namespaced under parent, got %q", i, task.RunID)
		}
	}
	if tasks[0].RunID == tasks[1].RunID {
		t.Fatalf("expected distinct sub-run IDs, got %q twice", tasks[0].RunID)
	}
}

func TestNewDelegateTasks_FallsBackToNewRunIDWithoutChildIDGenerator(t *testing.T) {
	t.Parallel()

	tasks, err := server.NewDelegateTasks(context.Background(), plainIDGenerator{}, "parent-1", []string{"only"})
	if err != nil {
		t.Fatalf("new delegate tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].RunID != "plain-run" {
		t.Fatalf("expected fallback run id, got %+v", tasks)
	}
}

// plainIDGenerator implements agent.IDGenerator only, to exercise
// NewDelegateTasks' fallback path when the generator can't namespace
// sub-run IDs under a parent.
type plainIDGenerator struct{}

func (plainIDGenerator) NewRunID(_ context.Context) (agent.RunID, error) {
	return "plain-run", nil
}
