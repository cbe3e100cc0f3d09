// Package server implements the agent server (C7): one cooperative,
// single-threaded serialization unit per agent instance. Mutating
// operations on a run's context are processed sequentially by an actor
// goroutine; long-running executor iterations are delegated to a
// spawned worker so the actor keeps draining its mailbox, which is how
// a human-input response can reach a run whose worker is mid-iteration.
package server

import (
	"context"
	"fmt"
	"sync"

	"agentrt/agent"
	"agentrt/executor"
	"agentrt/vault"
)

// Handle is the opaque client-facing reference to a started agent.
type Handle struct {
	runID  agent.RunID
	server *Server
}

// RunID returns the run this handle addresses.
func (h Handle) RunID() agent.RunID { return h.runID }

type humanAnswer struct {
	value string
	err   error
}

type humanRequest struct {
	kind     string
	question string
	reply    chan humanAnswer
}

type callRequest struct {
	text  string
	reply chan callOutcome
}

type callOutcome struct {
	result agent.RunResult
	err    error
}

type respondRequest struct {
	value string
	reply chan error
}

type cancelRequest struct {
	reply chan error
}

// mailboxMsg is the closed set of messages an actor goroutine accepts.
// Only one of its fields is ever set.
type mailboxMsg struct {
	start   *agent.RunInput
	cast    *string
	call    *callRequest
	human   *humanRequest
	respond *respondRequest
	cancel  *cancelRequest
}

// Server hosts one actor per started run. Construct one Server per
// process and call Start per agent instance; it owns the fan-out to
// per-run actors so callers never need to manage goroutines directly.
type Server struct {
	descriptor   agent.AgentDescriptor
	systemPrompt string
	model        agent.Model
	events       agent.EventSink
	vault        *vault.Vault
	cfg          agent.Config
}

// New builds a Server for one agent descriptor. cfg is the resolved
// config (C5 output) this server's runs execute against.
func New(descriptor agent.AgentDescriptor, systemPrompt string, model agent.Model, events agent.EventSink, cfg agent.Config) *Server {
	return &Server{
		descriptor:   descriptor,
		systemPrompt: systemPrompt,
		model:        model,
		events:       events,
		vault:        vault.New(),
		cfg:          cfg,
	}
}

// Start initializes config, context, and vault for a fresh run and
// spins up its actor goroutine, enqueuing the internal run_initial
// message per §4.7.
func (s *Server) Start(ctx context.Context, runID agent.RunID, initialTask string) Handle {
	a := newActor(s, runID)
	go a.loop(ctx)
	a.mailbox <- mailboxMsg{start: &agent.RunInput{RunID: runID, SystemPrompt: s.systemPrompt, UserPrompt: initialTask}}
	actorsMu.Lock()
	actors[runID] = a
	actorsMu.Unlock()
	return Handle{runID: runID, server: s}
}

// Cast enqueues a fire-and-forget follow-up message; no reply.
func (s *Server) Cast(h Handle, text string) error {
	a, ok := lookupActor(h.runID)
	if !ok {
		return fmt.Errorf("agrt: no active run %s", h.runID)
	}
	a.mailbox <- mailboxMsg{cast: &text}
	return nil
}

// Call enqueues a follow-up message and blocks until the executor
// reaches a terminal state for it.
func (s *Server) Call(ctx context.Context, h Handle, text string) (agent.RunResult, error) {
	a, ok := lookupActor(h.runID)
	if !ok {
		return agent.RunResult{}, fmt.Errorf("agrt: no active run %s", h.runID)
	}
	reply := make(chan callOutcome, 1)
	a.mailbox <- mailboxMsg{call: &callRequest{text: text, reply: reply}}
	select {
	case out := <-reply:
		return out.result, out.err
	case <-ctx.Done():
		return agent.RunResult{}, ctx.Err()
	}
}

// Cancel aborts a non-terminal run: it cancels the in-flight worker's
// context (unblocking a model call waiting on it) and, if the run is
// suspended on human input, resolves that wait with
// agent.ErrRunCancelled so the blocked sandbox evaluation returns
// instead of hanging. It returns an error if the run has no active
// worker and no pending human-input wait, which includes runs that
// already reached a terminal status.
func (s *Server) Cancel(ctx context.Context, h Handle) error {
	a, ok := lookupActor(h.runID)
	if !ok {
		return fmt.Errorf("agrt: no active run %s", h.runID)
	}
	reply := make(chan error, 1)
	a.mailbox <- mailboxMsg{cancel: &cancelRequest{reply: reply}}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Respond delivers a human-input response. It returns
// agent.ErrNoPendingRequest if no waiter is currently outstanding.
func (s *Server) Respond(ctx context.Context, h Handle, value string) error {
	a, ok := lookupActor(h.runID)
	if !ok {
		return fmt.Errorf("agrt: no active run %s", h.runID)
	}
	reply := make(chan error, 1)
	a.mailbox <- mailboxMsg{respond: &respondRequest{value: value, reply: reply}}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	actorsMu sync.RWMutex
	actors   = make(map[agent.RunID]*actor)
)

func lookupActor(runID agent.RunID) (*actor, bool) {
	actorsMu.RLock()
	defer actorsMu.RUnlock()
	a, ok := actors[runID]
	return a, ok
}

func newActor(s *Server, runID agent.RunID) *actor {
	a := &actor{
		server:  s,
		runID:   runID,
		mailbox: make(chan mailboxMsg, 32),
	}
	a.loopRunner = executor.New(s.model, s.events, s.vault)
	a.loopRunner.HumanInput = a.humanInput
	return a
}

type actorResult struct {
	result agent.RunResult
	err    error
}
