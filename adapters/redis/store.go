// Package redis provides a RunStore (C6's persistence collaborator)
// backed by Redis, so a long-lived agent server can survive a process
// restart without losing in-flight run state. It exercises the same
// Save/Load contract as runstore/inmem, using Redis's optimistic
// WATCH/MULTI transaction instead of an in-process mutex to detect
// concurrent writers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"agentrt/agent"
)

// Store persists agent.ExecutorContext values as JSON under a
// per-run key, with optimistic concurrency on ExecutorContext.Version.
type Store struct {
	client *redis.Client
	prefix string
}

// New returns a Store that keys runs under prefix+runID. prefix
// defaults to "agentrt:run:" when empty.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "agentrt:run:"
	}
	return &Store{client: client, prefix: prefix}
}

var _ agent.RunStore = (*Store)(nil)

func (s *Store) key(runID agent.RunID) string {
	return s.prefix + string(runID)
}

// Save writes ctxState under an optimistic version check: creation
// requires Version 0, update requires the stored Version to match
// exactly. Both cases bump the stored Version by one on success.
func (s *Store) Save(ctx context.Context, ctxState agent.ExecutorContext) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := agent.ValidateExecutorContext(ctxState); err != nil {
		return err
	}

	key := s.key(ctxState.ID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		exists := err != redis.Nil
		if err != nil && err != redis.Nil {
			return fmt.Errorf("redis: get run %q: %w", ctxState.ID, err)
		}

		var current agent.ExecutorContext
		if exists {
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("redis: decode stored run %q: %w", ctxState.ID, err)
			}
		}

		if !exists {
			if ctxState.Version != 0 {
				return fmt.Errorf(
					"%w: run %q expected version 0 on create, got %d",
					agent.ErrRunConflict,
					ctxState.ID,
					ctxState.Version,
				)
			}
		} else if ctxState.Version != current.Version {
			return fmt.Errorf(
				"%w: run %q expected version %d, got %d",
				agent.ErrRunConflict,
				ctxState.ID,
				current.Version,
				ctxState.Version,
			)
		}

		next := agent.CloneExecutorContext(ctxState)
		next.Version = ctxState.Version + 1
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("redis: encode run %q: %w", ctxState.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis: write run %q: %w", ctxState.ID, err)
		}
		return nil
	}, key)
}

// Load reads and decodes the ExecutorContext stored for runID.
func (s *Store) Load(ctx context.Context, runID agent.RunID) (agent.ExecutorContext, error) {
	if err := checkContext(ctx); err != nil {
		return agent.ExecutorContext{}, err
	}
	if runID == "" {
		return agent.ExecutorContext{}, agent.ErrInvalidRunID
	}

	raw, err := s.client.Get(ctx, s.key(runID)).Bytes()
	if err == redis.Nil {
		return agent.ExecutorContext{}, agent.ErrRunNotFound
	}
	if err != nil {
		return agent.ExecutorContext{}, fmt.Errorf("redis: get run %q: %w", runID, err)
	}

	var stored agent.ExecutorContext
	if err := json.Unmarshal(raw, &stored); err != nil {
		return agent.ExecutorContext{}, fmt.Errorf("redis: decode run %q: %w", runID, err)
	}
	return stored, nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	return ctx.Err()
}
