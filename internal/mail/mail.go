// Package mail delivers outbound notifications, in practice the signup
// confirmation code.
//
// A Sender is built by composition:
//
//	Breaker(Throttle(SMTPSender or LogSender))
//
// The throttle keeps a burst of signups from hammering the SMTP relay, and
// the breaker stops us from waiting on a relay that is down. Both fail fast,
// and the signup flow treats a delivery failure as a warning, never as a
// reason to roll back the account.
package mail

import (
	"context"
	"errors"
	"fmt"
)

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

var (
	// ErrThrottled is returned when the outbound rate limit is exhausted.
	ErrThrottled = errors.New("mail: send rate exceeded")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("mail: transport unavailable")
)

// ConfirmationSubject is the subject line of signup emails.
const ConfirmationSubject = "YaMDb confirmation code"

// ConfirmationMessage builds the email carrying a signup confirmation code.
func ConfirmationMessage(to, username, code string) Message {
	return Message{
		To:      to,
		Subject: ConfirmationSubject,
		Body: fmt.Sprintf(
			"Hello, %s!\n\nYour confirmation code: %s\n\n"+
				"Exchange it for an access token at POST /api/v1/auth/token/ "+
				"with your username and this code.\n",
			username, code),
	}
}
