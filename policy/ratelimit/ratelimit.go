// Package ratelimit wraps an agent.Model with a token-bucket limiter
// over its LLM transport calls, so a burst of iterations across many
// concurrent runs cannot exceed the provider's request/token budget.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"agentrt/agent"
)

// Config controls the limiter's steady-state and burst allowance,
// expressed in requests per second.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// Limiter enforces Config against an underlying model, halving its
// effective rate (down to a tenth of the configured rate) whenever the
// wrapped call returns an error of any kind, and recovering it
// gradually as calls succeed.
type Limiter struct {
	next agent.Model

	mu      sync.Mutex
	limiter *rate.Limiter
	base    rate.Limit
	current rate.Limit
}

// Wrap returns a Limiter around model. A zero-value cfg disables
// throttling by allowing effectively unbounded requests.
func Wrap(model agent.Model, cfg Config) *Limiter {
	rps := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		rps = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		next:    model,
		limiter: rate.NewLimiter(rps, burst),
		base:    rps,
		current: rps,
	}
}

var _ agent.Model = (*Limiter)(nil)

// Generate waits for a token before delegating, then adjusts the
// effective rate based on whether the call succeeded.
func (l *Limiter) Generate(ctx context.Context, request agent.ModelRequest) (agent.ActionReply, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return agent.ActionReply{}, err
	}
	reply, err := l.next.Generate(ctx, request)
	if err != nil {
		l.backoff()
	} else {
		l.recover()
	}
	return reply, err
}

func (l *Limiter) backoff() {
	if l.base == rate.Inf {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.current / 2
	if next < l.base/10 {
		next = l.base / 10
	}
	l.current = next
	l.limiter.SetLimit(next)
}

func (l *Limiter) recover() {
	if l.base == rate.Inf {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current >= l.base {
		return
	}
	next := l.current + l.base/20
	if next > l.base {
		next = l.base
	}
	l.current = next
	l.limiter.SetLimit(next)
}
