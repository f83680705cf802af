package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes Breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
	// OnStateChange, if set, is called with the new state ("closed", "open",
	// "half-open").
	OnStateChange func(state string)
}

// Breaker wraps next in a circuit breaker. While the circuit is open, Send
// returns ErrUnavailable immediately. Throttled sends don't count as failures:
// they say nothing about the health of the relay.
func Breaker(next Sender, cfg BreakerConfig, logger *slog.Logger) Sender {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mail",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrThrottled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(to.String())
			}
		},
	})

	return SenderFunc(func(ctx context.Context, msg Message) error {
		_, err := cb.Execute(func() (struct{}, error) {
			return struct{}{}, next.Send(ctx, msg)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	})
}
