// Package modeltest provides a deterministic agent.Model for executor
// and server tests: a fixed script of replies played back in order.
package modeltest

import (
	"context"
	"fmt"
	"sync"

	"agentrt/agent"
)

// Response configures one scripted model turn.
type Response struct {
	Reply agent.ActionReply
	Err   error
}

// ScriptedModel is a deterministic model adapter for runtime tests.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
}

// NewScriptedModel returns a model that plays back responses in order,
// one per Generate call.
func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(_ context.Context, _ agent.ModelRequest) (agent.ActionReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index >= len(m.responses) {
		return agent.ActionReply{}, fmt.Errorf("script exhausted at step %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return agent.ActionReply{}, current.Err
	}
	return current.Reply, nil
}
