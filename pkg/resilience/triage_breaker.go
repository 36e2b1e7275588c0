// Package resilience provides fault tolerance for external service calls.
package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned without calling the protected function while
// the circuit is open or saturated in half-open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds configuration for a circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed in half-open
	Interval         time.Duration // counter reset period while closed
	Timeout          time.Duration // open duration before half-open
	ConsecutiveTrips uint32        // trip after more than this many consecutive failures
	MinRequests      uint32        // minimum requests before the ratio rule applies
	FailureRatio     float64

	// IsFailure decides which errors count against the circuit. Nil counts
	// every error.
	IsFailure func(err error) bool

	OnStateChange func(name string, from, to string)
}

// DefaultBreakerConfig returns the thresholds used for outbound APIs.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ConsecutiveTrips: 5,
		MinRequests:      10,
		FailureRatio:     0.6,
	}
}

// Breaker wraps gobreaker with a typed Execute.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures > cfg.ConsecutiveTrips {
				return true
			}
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}
	if cfg.IsFailure != nil {
		isFailure := cfg.IsFailure
		st.IsSuccessful = func(err error) bool { return err == nil || !isFailure(err) }
	}
	if cfg.OnStateChange != nil {
		notify := cfg.OnStateChange
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			notify(name, from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Execute runs fn under the breaker. Rejections are reported as
// ErrCircuitOpen wrapping the gobreaker error.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, errors.Join(ErrCircuitOpen, err)
	}
	if err != nil {
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }
