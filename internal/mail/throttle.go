package mail

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits how fast next is called. When the token bucket is empty it
// fails with ErrThrottled instead of queueing: a signup request shouldn't
// stall behind other people's email.
func Throttle(next Sender, perSecond float64, burst int) Sender {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return SenderFunc(func(ctx context.Context, msg Message) error {
		if !limiter.Allow() {
			return ErrThrottled
		}
		return next.Send(ctx, msg)
	})
}
