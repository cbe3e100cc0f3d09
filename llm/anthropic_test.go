package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentrt/agent"
	"agentrt/llm"
)

type stubMessages struct {
	response *sdk.Message
	err      error
	captured sdk.MessageNewParams
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.captured = body
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func toolUseMessage(t *testing.T, input map[string]any) *sdk.Message {
	t.Helper()
	raw, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal input: %v", err)
	}
	var block sdk.ContentBlockUnion
	if err := json.Unmarshal([]byte(`{"type":"tool_use","name":"submit_action","id":"toolu_1","input":`+string(raw)+`}`), &block); err != nil {
		t.Fatalf("unmarshal content block: %v", err)
	}
	return &sdk.Message{Content: []sdk.ContentBlockUnion{block}}
}

func TestClient_GenerateDecodesForcedToolInputAsActionReply(t *testing.T) {
	t.Parallel()

	stub := &stubMessages{response: toolUseMessage(t, map[string]any{
		"action": "eval_and_continue",
		"code":   "1 + 1",
		"result": map[string]any{},
	})}

	client, err := llm.New(stub, llm.Options{Model: "claude-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reply, err := client.Generate(context.Background(), agent.ModelRequest{
		Messages: []agent.Message{
			{Role: agent.RoleSystem, Content: "you are an agent"},
			{Role: agent.RoleUser, Content: "do the task"},
		},
		ActionSchema: map[string]any{"properties": map[string]any{}},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply.Action != agent.ActionEvalAndContinue {
		t.Fatalf("unexpected action: %s", reply.Action)
	}
	if reply.Code != "1 + 1" {
		t.Fatalf("unexpected code: %s", reply.Code)
	}
	if stub.captured.ToolChoice.OfTool == nil {
		t.Fatalf("expected forced tool choice")
	}
}

func TestClient_GenerateRejectsEmptyMessages(t *testing.T) {
	t.Parallel()

	stub := &stubMessages{}
	client, err := llm.New(stub, llm.Options{Model: "claude-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), agent.ModelRequest{ActionSchema: map[string]any{"properties": map[string]any{}}})
	if err == nil {
		t.Fatal("expected error for empty messages")
	}
}

func TestClient_GeneratePropagatesTransportError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("network down")
	stub := &stubMessages{err: wantErr}
	client, err := llm.New(stub, llm.Options{Model: "claude-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), agent.ModelRequest{
		Messages:     []agent.Message{{Role: agent.RoleUser, Content: "hi"}},
		ActionSchema: map[string]any{"properties": map[string]any{}},
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestNew_RejectsMissingModel(t *testing.T) {
	t.Parallel()

	if _, err := llm.New(&stubMessages{}, llm.Options{}); err == nil {
		t.Fatal("expected error for missing model identifier")
	}
}
