// Package telemetry bridges agent.Event values onto OpenTelemetry
// spans/metrics and structured zap logs. It implements agent.EventSink
// so it can sit directly where an in-memory sink would, wired in
// alongside (not instead of) the reference adapter: production
// descriptors fan events out to both.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"agentrt/agent"
)

const instrumentationName = "agentrt/executor"

// spanPair correlates a *.start event with its matching *.end/resolved
// event so the emitted span covers the operation's full duration.
type spanPair struct {
	category string
	runID    agent.RunID
}

// Sink is an agent.EventSink that logs every event through zap and
// emits OpenTelemetry spans for start/end event pairs plus a counter
// per event type.
type Sink struct {
	logger *zap.Logger
	tracer trace.Tracer
	events metric.Int64Counter

	mu    sync.Mutex
	spans map[spanPair]trace.Span
}

// New builds a Sink. A nil logger falls back to zap.NewNop so callers
// that don't care about logs can still get tracing/metrics.
func New(logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)
	counter, err := meter.Int64Counter(
		"agentrt.events",
		metric.WithDescription("count of executor/server lifecycle events by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build event counter: %w", err)
	}
	return &Sink{
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		events: counter,
		spans:  make(map[spanPair]trace.Span),
	}, nil
}

var _ agent.EventSink = (*Sink)(nil)

// Publish logs the event, increments its counter, and opens or closes
// a span when the event type is the start or end half of a tracked
// operation.
func (s *Sink) Publish(ctx context.Context, event agent.Event) error {
	s.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(event.Type)),
	))

	s.logger.Info("agent event",
		zap.String("run_id", string(event.RunID)),
		zap.Int("iteration", event.Iteration),
		zap.String("type", string(event.Type)),
		zap.String("description", event.Description),
	)

	category, phase := splitEventType(event.Type)
	switch phase {
	case "start", "requested":
		s.startSpan(ctx, category, event)
	case "end", "resolved", "completed", "failed", "cancelled":
		s.endSpan(category, event, phase)
	}
	return nil
}

func (s *Sink) startSpan(ctx context.Context, category string, event agent.Event) {
	_, span := s.tracer.Start(ctx, category,
		trace.WithAttributes(
			attribute.String("run_id", string(event.RunID)),
			attribute.Int("iteration", event.Iteration),
		),
	)
	s.mu.Lock()
	s.spans[spanPair{category: category, runID: event.RunID}] = span
	s.mu.Unlock()
}

func (s *Sink) endSpan(category string, event agent.Event, phase string) {
	key := spanPair{category: category, runID: event.RunID}
	s.mu.Lock()
	span, ok := s.spans[key]
	if ok {
		delete(s.spans, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if phase == "failed" || phase == "cancelled" {
		span.SetStatus(codes.Error, event.Description)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(time.Now()))
}

// splitEventType splits a dotted event name ("llm.request.start") into
// its correlating category ("llm.request") and terminal phase
// ("start"). Two-segment names (e.g. "call.start") split the same way.
func splitEventType(t agent.EventType) (category, phase string) {
	s := string(t)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
