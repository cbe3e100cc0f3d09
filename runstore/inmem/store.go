// Package inmem provides an in-memory RunStore (C6's persistence
// collaborator), exercising optimistic concurrency control the way the
// teacher's reference store does.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"agentrt/agent"
)

// Store persists executor contexts in memory with optimistic version checks.
type Store struct {
	mu     sync.RWMutex
	states map[agent.RunID]agent.ExecutorContext
}

var _ agent.RunStore = (*Store)(nil)

func New() *Store {
	return &Store{states: map[agent.RunID]agent.ExecutorContext{}}
}

func (s *Store) Save(ctx context.Context, ctxState agent.ExecutorContext) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := agent.ValidateExecutorContext(ctxState); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.states[ctxState.ID]
	switch {
	case !exists:
		if ctxState.Version != 0 {
			return fmt.Errorf(
				"%w: run %q expected version 0 on create, got %d",
				agent.ErrRunConflict,
				ctxState.ID,
				ctxState.Version,
			)
		}
		next := agent.CloneExecutorContext(ctxState)
		next.Version = 1
		s.states[ctxState.ID] = next
		return nil
	case ctxState.Version != current.Version:
		return fmt.Errorf(
			"%w: run %q expected version %d, got %d",
			agent.ErrRunConflict,
			ctxState.ID,
			current.Version,
			ctxState.Version,
		)
	default:
		next := agent.CloneExecutorContext(ctxState)
		next.Version = current.Version + 1
		s.states[ctxState.ID] = next
		return nil
	}
}

func (s *Store) Load(ctx context.Context, runID agent.RunID) (agent.ExecutorContext, error) {
	if err := checkContext(ctx); err != nil {
		return agent.ExecutorContext{}, err
	}
	if runID == "" {
		return agent.ExecutorContext{}, agent.ErrInvalidRunID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[runID]
	if !ok {
		return agent.ExecutorContext{}, agent.ErrRunNotFound
	}
	return agent.CloneExecutorContext(state), nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	return ctx.Err()
}
