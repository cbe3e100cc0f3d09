package server

import (
	"context"
	"fmt"

	"agentrt/agent"
	"agentrt/executor"
)

// actor is the single-threaded serialization unit for one run. All
// mutation of its ExecutorContext happens inside loop, which is the
// only goroutine that ever touches ctxState.
type actor struct {
	server     *Server
	runID      agent.RunID
	mailbox    chan mailboxMsg
	loopRunner *executor.Loop

	ctxState agent.ExecutorContext
	waiter   *humanRequest

	// queued holds call/cast messages that arrived while a worker was
	// active; they are replayed in arrival order once it completes.
	queued []mailboxMsg
	busy   bool

	// runCancel cancels the context of whichever worker is currently
	// running, set fresh on every spawn so a cancelled run's context
	// never leaks into the next one.
	runCancel context.CancelFunc
}

// loop is the actor goroutine body: drain the mailbox, dispatch each
// message, and never run two executor iterations concurrently for
// this run. ctx is this actor's lifetime-bounding context; each spawned
// worker runs against its own child derived from it, so cancelling one
// run never affects a later one on the same actor.
func (a *actor) loop(ctx context.Context) {
	workerDone := make(chan actorResult, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.mailbox:
			a.handle(ctx, msg, workerDone)
		case result := <-workerDone:
			a.busy = false
			a.ctxState = result.result.Context
			a.flushQueue(ctx, workerDone)
		}
	}
}

func (a *actor) handle(ctx context.Context, msg mailboxMsg, workerDone chan actorResult) {
	switch {
	case msg.human != nil:
		// A human_input call from inside the currently running
		// evaluation. Always handled immediately regardless of busy
		// state — it is what busy is waiting on.
		a.waiter = msg.human
		_ = a.server.events.Publish(ctx, agent.Event{
			RunID:       a.runID,
			Type:        agent.EventTypeHumanRequested,
			Description: msg.human.question,
		})

	case msg.respond != nil:
		if a.waiter == nil {
			msg.respond.reply <- agent.ErrNoPendingRequest
			return
		}
		w := a.waiter
		a.waiter = nil
		w.reply <- humanAnswer{value: msg.respond.value}
		msg.respond.reply <- nil
		_ = a.server.events.Publish(ctx, agent.Event{
			RunID:       a.runID,
			Type:        agent.EventTypeHumanResolved,
			Description: w.question,
		})

	case msg.start != nil:
		a.spawnRun(ctx, *msg.start, workerDone)

	case msg.cast != nil:
		if a.busy {
			a.queued = append(a.queued, msg)
			return
		}
		a.spawnContinue(ctx, *msg.cast, nil, workerDone)

	case msg.call != nil:
		if a.busy {
			a.queued = append(a.queued, msg)
			return
		}
		a.spawnContinue(ctx, msg.call.text, msg.call.reply, workerDone)

	case msg.cancel != nil:
		a.cancel(ctx, msg.cancel)
	}
}

// cancel aborts the currently running worker, if any, and unblocks a
// pending human-input waiter with agent.ErrRunCancelled so an eval
// blocked on it does not hang forever. Queued follow-ups are dropped:
// a cancelled run does not resume them.
func (a *actor) cancel(ctx context.Context, req *cancelRequest) {
	if !a.busy && a.waiter == nil {
		req.reply <- fmt.Errorf("agrt: run %s is not active", a.runID)
		return
	}
	if a.waiter != nil {
		w := a.waiter
		a.waiter = nil
		w.reply <- humanAnswer{err: agent.ErrRunCancelled}
	}
	if a.runCancel != nil {
		a.runCancel()
	}
	a.queued = nil
	req.reply <- nil
}

func (a *actor) flushQueue(ctx context.Context, workerDone chan actorResult) {
	for len(a.queued) > 0 && !a.busy {
		next := a.queued[0]
		a.queued = a.queued[1:]
		a.handle(ctx, next, workerDone)
	}
}

func (a *actor) spawnRun(ctx context.Context, input agent.RunInput, workerDone chan actorResult) {
	a.busy = true
	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	go func() {
		defer cancel()
		result, err := a.loopRunner.Run(runCtx, input.RunID, a.server.descriptor, input.SystemPrompt, input.UserPrompt, a.server.cfg)
		workerDone <- actorResult{result: result, err: err}
	}()
}

func (a *actor) spawnContinue(ctx context.Context, text string, reply chan callOutcome, workerDone chan actorResult) {
	a.busy = true
	prior := a.ctxState
	runCtx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	go func() {
		defer cancel()
		result, err := a.loopRunner.Continue(runCtx, a.runID, prior, text, a.server.descriptor, a.server.cfg)
		if reply != nil {
			reply <- callOutcome{result: result, err: err}
		}
		workerDone <- actorResult{result: result, err: err}
	}()
}

// humanInput is passed to the executor.Loop as its HumanInput hook. It
// runs on the sandbox evaluation's own goroutine (not the actor's),
// so it is free to block: it posts a request onto the actor's mailbox
// and waits for the matching respond message to arrive.
func (a *actor) humanInput(kind, question string) (string, error) {
	reply := make(chan humanAnswer, 1)
	a.mailbox <- mailboxMsg{human: &humanRequest{kind: kind, question: question, reply: reply}}
	answer := <-reply
	return answer.value, answer.err
}
