// Command demo wires the runtime's components together end to end:
// config resolution, prompt construction, and a running agent server,
// observed the way the server's design intends — through its event
// sink, since Start itself is fire-and-forget.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentrt/adapters/inmem"
	"agentrt/adapters/modeltest"
	"agentrt/agent"
	"agentrt/config"
	eventsink "agentrt/eventing/inmem"
	"agentrt/logging"
	"agentrt/prompt"
	"agentrt/server"

	"go.uber.org/zap"
)

func main() {
	logger, err := logging.New(logging.Config{
		Level:       "info",
		ServiceName: "agentrt-demo",
		LogFile:     "agentrt-demo.log",
		MaxSizeMB:   10,
		MaxBackups:  3,
		MaxAgeDays:  7,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "demo: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("demo run failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	resolver, err := config.New(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := resolver.Resolve(agent.Config{}, agent.Config{})

	var idGen inmem.UUIDGenerator
	runID, err := idGen.NewRunID(context.Background())
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	descriptor := agent.AgentDescriptor{
		ModuleDoc: "A demo agent that answers arithmetic questions using only the sandbox's built-in math module.",
		OutputSchema: agent.OutputSchema{
			{Name: "value", Type: agent.FieldTypeInteger, Required: true},
		},
	}
	systemPrompt := prompt.Build(descriptor)

	events := eventsink.New()
	done := make(chan agent.Event, 1)
	sink := &notifyingSink{inner: events, done: done, watch: runID}

	// A scripted model stands in for a real LLM transport so the demo
	// runs without network access or an API key; llm.Client implements
	// the same agent.Model interface against the real Anthropic API.
	model := modeltest.NewScriptedModel(modeltest.Response{
		Reply: agent.ActionReply{Action: agent.ActionEvalAndComplete, Code: "result = 2 + 3"},
	})

	srv := server.New(descriptor, systemPrompt, model, sink, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := srv.Start(ctx, runID, "What is 2 + 3?")
	logger.Info("run started", zap.String("run_id", string(handle.RunID())))

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	select {
	case event := <-done:
		logger.Info("run finished", zap.String("type", string(event.Type)), zap.String("description", event.Description))
	case <-ctx.Done():
		logger.Warn("interrupted before the run reached a terminal state")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("run did not reach a terminal state within %s", timeout)
	}

	for _, e := range events.EventsForRun(runID) {
		logger.Debug("event", zap.Int("iteration", e.Iteration), zap.String("type", string(e.Type)))
	}
	return nil
}

// notifyingSink forwards every event to inner and additionally signals
// done, once, when a terminal event for watch arrives.
type notifyingSink struct {
	inner *eventsink.Sink
	done  chan agent.Event
	watch agent.RunID
}

var _ agent.EventSink = (*notifyingSink)(nil)

func (s *notifyingSink) Publish(ctx context.Context, event agent.Event) error {
	if err := s.inner.Publish(ctx, event); err != nil {
		return err
	}
	if event.RunID == s.watch && isTerminal(event.Type) {
		select {
		case s.done <- event:
		default:
		}
	}
	return nil
}

func isTerminal(t agent.EventType) bool {
	switch t {
	case agent.EventTypeRunCompleted, agent.EventTypeRunFailed, agent.EventTypeRunCancelled:
		return true
	default:
		return false
	}
}
