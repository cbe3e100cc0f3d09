package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"agentrt/agent"
	"agentrt/executor"
)

// DelegateTask is one sub-agent invocation to run as part of a
// concurrent delegation batch.
type DelegateTask struct {
	RunID agent.RunID
	Task  string
}

// NewDelegateTasks builds one DelegateTask per prompt, deriving each
// sub-run's ID from parent via idGen so the whole batch stays traceable
// to the run that delegated it. If idGen also implements
// agent.ChildIDGenerator (as both adapters/inmem generators do), the
// derived IDs are namespaced under parent; otherwise each task gets an
// unrelated fresh ID from NewRunID.
func NewDelegateTasks(ctx context.Context, idGen agent.IDGenerator, parent agent.RunID, prompts []string) ([]DelegateTask, error) {
	tasks := make([]DelegateTask, len(prompts))
	for i, prompt := range prompts {
		runID, err := nextDelegateRunID(ctx, idGen, parent)
		if err != nil {
			return nil, err
		}
		tasks[i] = DelegateTask{RunID: runID, Task: prompt}
	}
	return tasks, nil
}

func nextDelegateRunID(ctx context.Context, idGen agent.IDGenerator, parent agent.RunID) (agent.RunID, error) {
	if childGen, ok := idGen.(agent.ChildIDGenerator); ok {
		return childGen.NewChildRunID(ctx, parent)
	}
	return idGen.NewRunID(ctx)
}

// Delegate runs every task as an independent, fresh conversation
// against this server's descriptor and waits for all of them to reach
// a terminal state, bounded to at most maxConcurrency concurrent runs
// (unbounded when maxConcurrency <= 0). Results are returned in task
// order. Unlike Start, a delegated task always runs to completion
// synchronously from the caller's perspective — delegation has no
// multi-turn or human-input surface of its own; a sub-agent that needs
// one should be started as a regular run via Start instead.
func (s *Server) Delegate(ctx context.Context, tasks []DelegateTask, maxConcurrency int) ([]agent.RunResult, error) {
	results := make([]agent.RunResult, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		group.SetLimit(maxConcurrency)
	}

	runner := executor.New(s.model, s.events, s.vault)
	for i, task := range tasks {
		i, task := i, task
		group.Go(func() error {
			result, err := runner.Run(groupCtx, task.RunID, s.descriptor, s.systemPrompt, task.Task, s.cfg)
			results[i] = result
			return err
		})
	}

	err := group.Wait()
	return results, err
}
