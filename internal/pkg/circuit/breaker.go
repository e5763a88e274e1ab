package circuit

import (
	"errors"
	"time"

	"kcourse/internal/logger"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// Breaker guards one upstream dependency. It opens after threshold consecutive
// failures and lets a single trial call through once timeout has elapsed.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

type Option func(*gobreaker.Settings)

// WithFailurePredicate decides which errors count against the breaker. Errors for
// which it returns false are passed through without tripping.
func WithFailurePredicate(isFailure func(error) bool) Option {
	return func(s *gobreaker.Settings) {
		s.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}
}

func NewCircuitBreaker(name string, threshold int, timeout time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("circuit %s: %s -> %s", name, from, to)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

func (b *Breaker) Name() string { return b.name }

// State reports "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// IsOpen reports whether err came from a rejected call rather than from fn.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
