// Package executor implements the bounded executor loop (C6): the
// state machine that drives an agent's conversation with the LLM,
// dispatches structured replies into the sandbox, and terminates on
// success, cancellation, or a fatal transport error.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.starlark.net/starlark"

	"agentrt/agent"
	"agentrt/allowlist"
	"agentrt/sandbox"
	"agentrt/schema"
	"agentrt/vault"
)

// isCancellation reports whether err reflects the run's own context
// being cancelled (as opposed to a deadline or a transport failure),
// which terminates the run as Cancelled rather than Failed.
func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled
}

// Loop wires the LLM transport, sandbox module namespace, and event
// sink an agent's iterations run against.
type Loop struct {
	Model      agent.Model
	Events     agent.EventSink
	Modules    func(descriptor agent.AgentDescriptor) starlark.StringDict
	Vault      *vault.Vault
	HumanInput sandbox.HumanInputFunc
}

// New builds a Loop whose Modules returns the default sandbox module
// namespace (sandbox.BuiltinModules) for every descriptor; modules for
// the descriptor's Tools are not added.
func New(model agent.Model, events agent.EventSink, v *vault.Vault) *Loop {
	if events == nil {
		events = noopEventSink{}
	}
	return &Loop{
		Model:  model,
		Events: events,
		Vault:  v,
		Modules: func(agent.AgentDescriptor) starlark.StringDict {
			return sandbox.BuiltinModules()
		},
	}
}

type noopEventSink struct{}

func (noopEventSink) Publish(context.Context, agent.Event) error { return nil }

// Run is the fresh-conversation entry point of §4.6: conversation =
// [system, user(task)], iteration=0, retry=0.
func (l *Loop) Run(ctx context.Context, runID agent.RunID, descriptor agent.AgentDescriptor, systemPrompt, task string, cfg agent.Config) (agent.RunResult, error) {
	ectx := agent.ExecutorContext{
		ID: runID,
		Messages: []agent.Message{
			{Role: agent.RoleSystem, Content: systemPrompt},
			{Role: agent.RoleUser, Content: task},
		},
	}
	return l.runFrom(ctx, ectx, descriptor, cfg)
}

// Continue is the re-entry point of §4.6: append user(message) only
// if non-empty, reset iteration and retry to 0. A completed run is
// terminal, so continuing one starts a new run ID carrying forward
// the prior transcript rather than mutating the finished run in place.
func (l *Loop) Continue(ctx context.Context, nextRunID agent.RunID, prior agent.ExecutorContext, message string, descriptor agent.AgentDescriptor, cfg agent.Config) (agent.RunResult, error) {
	next := agent.CloneExecutorContext(prior)
	next.ID = nextRunID
	next.Status = ""
	next.Output = nil
	next.Error = ""
	if message != "" {
		next.Messages = append(next.Messages, agent.Message{Role: agent.RoleUser, Content: message})
	}
	next.Iteration = 0
	next.Retry = 0
	return l.runFrom(ctx, next, descriptor, cfg)
}

func (l *Loop) runFrom(ctx context.Context, ectx agent.ExecutorContext, descriptor agent.AgentDescriptor, cfg agent.Config) (agent.RunResult, error) {
	if ectx.Status == "" {
		if err := transitionTo(&ectx, agent.RunStatusPending); err != nil {
			return agent.RunResult{Context: ectx}, err
		}
	}
	if err := transitionTo(&ectx, agent.RunStatusRunning); err != nil {
		return agent.RunResult{Context: ectx}, err
	}

	l.setupVault(descriptor)

	actionSchema := schema.BuildActionSchema(descriptor.OutputSchema)
	modules := l.Modules(descriptor)
	spec := resolveSpec(descriptor)

	l.publish(ctx, ectx, agent.EventTypeCallStart, lastMessage(ectx.Messages), "")
	var result agent.RunResult
	var err error
	defer func() {
		l.publish(ctx, result.Context, agent.EventTypeCallEnd, lastMessage(result.Context.Messages), "")
	}()

	for {
		if ectx.Iteration >= cfg.MaxIterations {
			result, err = l.terminate(ctx, &ectx, agent.RunStatusMaxIterations, nil, agent.ErrMaxIterationsExceeded)
			return result, err
		}

		var terminal bool
		terminal, result, err = l.runIteration(ctx, &ectx, actionSchema, spec, modules, descriptor, cfg)
		if terminal {
			return result, err
		}
	}
}

// runIteration drives one LLM call plus, if the reply names one, one
// sandbox evaluation. It reports (terminal, result, err): terminal is
// true once runFrom should stop looping and return result/err as-is.
func (l *Loop) runIteration(ctx context.Context, ectx *agent.ExecutorContext, actionSchema map[string]any, spec map[string]allowlist.Permission, modules starlark.StringDict, descriptor agent.AgentDescriptor, cfg agent.Config) (bool, agent.RunResult, error) {
	l.publish(ctx, *ectx, agent.EventTypeIterationStart, nil, "")
	var assistantMsg *agent.Message
	defer func() { l.publish(ctx, *ectx, agent.EventTypeIterationEnd, assistantMsg, "") }()

	reqMeta := llmRequestMeta{
		Model:        describeModel(l.Model),
		Messages:     agent.CloneMessages(ectx.Messages),
		MessageCount: len(ectx.Messages),
		Iteration:    ectx.Iteration,
		Retry:        ectx.Retry,
	}
	l.publish(ctx, *ectx, agent.EventTypeLLMRequestStart, nil, marshalMeta(reqMeta))

	reply, genErr := l.Model.Generate(ctx, agent.ModelRequest{
		Messages:     agent.CloneMessages(ectx.Messages),
		ActionSchema: actionSchema,
	})
	if genErr != nil {
		failureMsg := agent.Message{Role: agent.RoleSystem, Content: genErr.Error()}
		assistantMsg = &failureMsg
		l.publish(ctx, *ectx, agent.EventTypeLLMRequestEnd, nil, genErr.Error())
		if isCancellation(ctx, genErr) {
			result, err := l.terminate(ctx, ectx, agent.RunStatusCancelled, nil, genErr)
			return true, result, err
		}
		ectx.Error = genErr.Error()
		_ = transitionTo(ectx, agent.RunStatusFailed)
		l.publish(ctx, *ectx, agent.EventTypeRunFailed, nil, fmt.Sprintf("llm transport error: %v", genErr))
		return true, agent.RunResult{Context: *ectx}, genErr
	}
	l.publish(ctx, *ectx, agent.EventTypeLLMRequestEnd, nil, marshalMeta(llmResponseMeta{llmRequestMeta: reqMeta, Response: reply}))

	msg := agent.Message{Role: agent.RoleAssistant, Content: renderReply(reply)}
	assistantMsg = &msg
	ectx.Messages = append(ectx.Messages, msg)

	if !isValidAction(reply) {
		terminal, result, err := l.retryOrTerminate(ctx, ectx, cfg, invalidActionMessage(reply))
		return terminal, result, err
	}

	switch reply.Action {
	case agent.ActionEvalAndContinue:
		evalResult, evalErr := l.evalCode(ctx, ectx, reply.Code, spec, modules, descriptor, cfg)
		if evalErr != nil {
			terminal, result, err := l.retryOrTerminate(ctx, ectx, cfg, codeFailureMessage(evalErr))
			return terminal, result, err
		}
		ectx.Messages = append(ectx.Messages, agent.Message{
			Role:    agent.RoleUser,
			Content: fmt.Sprintf("Code executed successfully. Result:\n```\n%s\n```", evalResult.Rendered),
		})
		ectx.Iteration++
		ectx.Retry = 0
		return false, agent.RunResult{}, nil

	case agent.ActionEvalAndComplete:
		evalResult, evalErr := l.evalCode(ctx, ectx, reply.Code, spec, modules, descriptor, cfg)
		if evalErr != nil {
			terminal, result, err := l.retryOrTerminate(ctx, ectx, cfg, codeFailureMessage(evalErr))
			return terminal, result, err
		}
		result, err := l.terminate(ctx, ectx, agent.RunStatusCompleted, evalResult.Rendered, nil)
		return true, result, err

	case agent.ActionReturn:
		result, err := l.terminate(ctx, ectx, agent.RunStatusCompleted, reply.Result, nil)
		return true, result, err

	case agent.ActionDone:
		result, err := l.terminate(ctx, ectx, agent.RunStatusCompleted, nil, nil)
		return true, result, err
	}

	return false, agent.RunResult{}, nil
}

// llmRequestMeta is the structured record attached to every
// llm.request.start (and, embedded, llm.request.end) event.
type llmRequestMeta struct {
	Model        string          `json:"model"`
	Messages     []agent.Message `json:"messages"`
	MessageCount int             `json:"message_count"`
	Iteration    int             `json:"iteration"`
	Retry        int             `json:"retry"`
}

type llmResponseMeta struct {
	llmRequestMeta
	Response agent.ActionReply `json:"response"`
}

// lastMessage returns a pointer to the final message in messages, or
// nil for an empty transcript. call.start/call.end events carry the
// boundary message they open or close on.
func lastMessage(messages []agent.Message) *agent.Message {
	if len(messages) == 0 {
		return nil
	}
	return &messages[len(messages)-1]
}

func marshalMeta(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

// describeModel names l.Model for telemetry via the optional
// agent.ModelDescriber interface, falling back to a generic label for
// transports (including test doubles) that don't implement it.
func describeModel(model agent.Model) string {
	if describer, ok := model.(agent.ModelDescriber); ok {
		return describer.ModelName()
	}
	return "unknown"
}

func (l *Loop) evalCode(ctx context.Context, ectx *agent.ExecutorContext, code string, spec map[string]allowlist.Permission, modules starlark.StringDict, descriptor agent.AgentDescriptor, cfg agent.Config) (sandbox.Result, error) {
	l.publish(ctx, *ectx, agent.EventTypeSandboxEvalStart, nil, "")
	result, err := sandbox.Eval(code, spec, modules, sandbox.Options{
		TimeoutMS:  cfg.Sandbox.TimeoutMS,
		HumanInput: l.wrapHumanInput(ctx, ectx),
	})
	l.publish(ctx, *ectx, agent.EventTypeSandboxEvalEnd, nil, evalEndDescription(err))
	return result, err
}

func evalEndDescription(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}

// wrapHumanInput publishes run.suspended around a blocking human-input
// call so a suspended run is visible to observers even though the
// suspension itself lives entirely inside one sandbox evaluation.
func (l *Loop) wrapHumanInput(ctx context.Context, ectx *agent.ExecutorContext) sandbox.HumanInputFunc {
	if l.HumanInput == nil {
		return nil
	}
	return func(kind, question string) (string, error) {
		_ = transitionTo(ectx, agent.RunStatusSuspended)
		l.publish(ctx, *ectx, agent.EventTypeRunSuspended, nil, question)
		value, err := l.HumanInput(kind, question)
		_ = transitionTo(ectx, agent.RunStatusRunning)
		return value, err
	}
}

// retryOrTerminate appends the recoverable-failure feedback message
// and either bumps retry (continuing the loop) or terminates with
// Cancel(reached_max_retries), per §4.6's retry handling and §7's
// taxonomy (iteration unchanged, retry += 1 on every recoverable
// failure transition).
func (l *Loop) retryOrTerminate(ctx context.Context, ectx *agent.ExecutorContext, cfg agent.Config, message string) (bool, agent.RunResult, error) {
	if ectx.Retry >= cfg.MaxRetries {
		result, err := l.terminate(ctx, ectx, agent.RunStatusMaxRetries, nil, agent.ErrMaxRetriesExceeded)
		return true, result, err
	}
	ectx.Messages = append(ectx.Messages, agent.Message{Role: agent.RoleUser, Content: message})
	ectx.Retry++
	return false, agent.RunResult{}, nil
}

func (l *Loop) terminate(ctx context.Context, ectx *agent.ExecutorContext, status agent.RunStatus, output any, err error) (agent.RunResult, error) {
	if transitionErr := transitionTo(ectx, status); transitionErr != nil {
		return agent.RunResult{Context: *ectx}, errors.Join(err, transitionErr)
	}
	ectx.Output = output
	if err != nil {
		ectx.Error = err.Error()
	}
	eventType := terminalEventType(status)
	l.publish(ctx, *ectx, eventType, nil, terminalDescription(status, err))
	return agent.RunResult{Context: *ectx}, err
}

func terminalEventType(status agent.RunStatus) agent.EventType {
	switch status {
	case agent.RunStatusCompleted:
		return agent.EventTypeRunCompleted
	case agent.RunStatusCancelled:
		return agent.EventTypeRunCancelled
	default:
		return agent.EventTypeRunFailed
	}
}

func terminalDescription(status agent.RunStatus, err error) string {
	if err != nil {
		return err.Error()
	}
	return string(status)
}

func (l *Loop) publish(ctx context.Context, ectx agent.ExecutorContext, eventType agent.EventType, message *agent.Message, description string) {
	_ = l.Events.Publish(ctx, agent.Event{
		RunID:       ectx.ID,
		Iteration:   ectx.Iteration,
		Type:        eventType,
		Message:     message,
		Description: description,
	})
}

func (l *Loop) setupVault(descriptor agent.AgentDescriptor) {
	if l.Vault == nil || descriptor.ToolOptions == nil {
		return
	}
	entries := make(map[string]map[string]any, len(descriptor.Tools))
	for _, tool := range descriptor.Tools {
		entries[tool.Name] = descriptor.ToolOptions(tool.Name)
	}
	l.Vault.SetAll(entries)
}

func resolveSpec(descriptor agent.AgentDescriptor) map[string]allowlist.Permission {
	base := allowlist.Default()
	if descriptor.Allowlist == nil {
		return base.Materialize()
	}
	return descriptor.Allowlist.Extend(base).Materialize()
}

func transitionTo(ectx *agent.ExecutorContext, status agent.RunStatus) error {
	return agent.TransitionRunStatus(ectx, status)
}

func isValidAction(reply agent.ActionReply) bool {
	switch reply.Action {
	case agent.ActionEvalAndContinue, agent.ActionEvalAndComplete:
		return reply.Code != ""
	case agent.ActionReturn, agent.ActionDone:
		return true
	default:
		return false
	}
}

func invalidActionMessage(reply agent.ActionReply) string {
	return fmt.Sprintf(
		"Invalid response format: action=%q code_empty=%t. Please respond with valid JSON in the expected format.",
		reply.Action, reply.Code == "",
	)
}

func codeFailureMessage(err error) string {
	return fmt.Sprintf("Code execution failed:\n\n%s\n\nPlease fix the error and try again.", err.Error())
}

func renderReply(reply agent.ActionReply) string {
	raw, err := json.Marshal(reply)
	if err != nil {
		return fmt.Sprintf(`{"action":%q,"code":%q}`, reply.Action, reply.Code)
	}
	return string(raw)
}
