package provider

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"kcourse/internal/logger"
	"kcourse/internal/pkg/circuit"

	"golang.org/x/time/rate"
)

// GuardSettings bounds every outbound model call.
type GuardSettings struct {
	Timeout          time.Duration
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
	RPS              float64
	Burst            int
}

// Guard applies rate limiting, a circuit breaker, a per-attempt timeout and
// bounded retry with full jitter to calls against one provider.
type Guard struct {
	id       string
	settings GuardSettings
	limiter  *rate.Limiter
	breaker  *circuit.Breaker
	sleep    func(context.Context, time.Duration) error
}

func NewGuard(id string, s GuardSettings) *Guard {
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 1
	}
	var limiter *rate.Limiter
	if s.RPS > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.RPS), burst)
	}
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Guard{
		id:       id,
		settings: s,
		limiter:  limiter,
		breaker:  circuit.NewCircuitBreaker("provider:"+id, s.FailureThreshold, openTimeout, circuit.WithFailurePredicate(countsAgainstBreaker)),
		sleep:    sleepCtx,
	}
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer func() { callDuration.WithLabelValues(g.id).Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 1; attempt <= g.settings.MaxAttempts; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return g.finish(&ProviderError{Provider: g.id, Message: "rate limit wait: " + err.Error(), Err: err})
			}
		}
		err := g.breaker.Execute(func() error {
			callCtx := ctx
			if g.settings.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.settings.Timeout)
				defer cancel()
			}
			return fn(callCtx)
		})
		if err == nil {
			return g.finish(nil)
		}
		if circuit.IsOpen(err) {
			callsTotal.WithLabelValues(g.id, "circuit_open").Inc()
			return &ProviderError{Provider: g.id, Status: 503, Message: "circuit open", Err: err}
		}
		lastErr = err
		attemptTimedOut := errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
		if !(IsTransient(err) || attemptTimedOut) || ctx.Err() != nil || attempt == g.settings.MaxAttempts {
			break
		}
		wait := g.backoff(attempt, err)
		retriesTotal.WithLabelValues(g.id).Inc()
		logger.Warnf("[AI] %s attempt %d/%d failed: %v; retrying in %s", g.id, attempt, g.settings.MaxAttempts, err, wait)
		if serr := g.sleep(ctx, wait); serr != nil {
			break
		}
	}
	return g.finish(lastErr)
}

func (g *Guard) finish(err error) error {
	if err == nil {
		callsTotal.WithLabelValues(g.id, "ok").Inc()
		return nil
	}
	callsTotal.WithLabelValues(g.id, "error").Inc()
	var pe *ProviderError
	if !errors.As(err, &pe) {
		err = &ProviderError{Provider: g.id, Message: err.Error(), Err: err}
	}
	return err
}

// backoff returns a full-jitter delay for the given attempt, honouring a
// server supplied Retry-After when it is longer.
func (g *Guard) backoff(attempt int, err error) time.Duration {
	base := g.settings.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	ceiling := base << (attempt - 1)
	if g.settings.MaxDelay > 0 && ceiling > g.settings.MaxDelay {
		ceiling = g.settings.MaxDelay
	}
	wait := time.Duration(rand.Int63n(int64(ceiling) + 1))
	var pe *ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > wait {
		wait = pe.RetryAfter
		if g.settings.MaxDelay > 0 && wait > g.settings.MaxDelay {
			wait = g.settings.MaxDelay
		}
	}
	return wait
}

// Only upstream faults trip the breaker; 4xx request errors and caller
// cancellation do not.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status == 0 || pe.Status >= 500 || pe.Status == 429
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type guardedProvider struct {
	inner ModelProvider
	guard *Guard
}

// Guarded wraps p so every Call passes through g.
func Guarded(p ModelProvider, g *Guard) ModelProvider {
	return &guardedProvider{inner: p, guard: g}
}

func (p *guardedProvider) ID() string           { return p.inner.ID() }
func (p *guardedProvider) SupportsVision() bool { return p.inner.SupportsVision() }

func (p *guardedProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	var out string
	err := p.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = p.inner.Call(ctx, payload)
		return err
	})
	return out, err
}

type guardedImages struct {
	inner ImageGenerator
	guard *Guard
}

// GuardedImages wraps an image generator with g.
func GuardedImages(gen ImageGenerator, g *Guard) ImageGenerator {
	return &guardedImages{inner: gen, guard: g}
}

func (p *guardedImages) ID() string { return p.inner.ID() }

func (p *guardedImages) GenerateImage(ctx context.Context, prompt string) ([]Part, error) {
	var out []Part
	err := p.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = p.inner.GenerateImage(ctx, prompt)
		return err
	})
	return out, err
}
