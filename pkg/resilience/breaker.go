package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/angelmondragon/distribridge/pkg/logger"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold uint32 = 5
	defaultTimeout                 = 30 * time.Second
	defaultMaxRequests      uint32 = 1
)

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32        // consecutive failures that trip the breaker
	Timeout          time.Duration // open -> half-open delay
	MaxRequests      uint32        // probes allowed while half-open
}

// Breaker wraps gobreaker so upstream outages fail fast instead of stalling a
// whole sync run on timeouts.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker
	name string
}

// NewBreaker builds a breaker. Errors marked with Permanent never count as failures.
func NewBreaker(cfg BreakerConfig, logg *logger.Logger) *Breaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = defaultMaxRequests
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: maxRequests,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state changed")
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), name: cfg.Name}
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(fn func() ([]byte, error)) ([]byte, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	body, _ := result.([]byte)
	return body, err
}

// State reports the breaker state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as a caller-side failure (4xx, rejected payload) that
// says nothing about upstream health.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
