package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yamdb/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a Sender that records messages and returns err.
type recorder struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage("alice@example.com", "alice", "CODE123")

	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "YaMDb confirmation code", msg.Subject)
	assert.Contains(t, msg.Body, "alice")
	assert.Contains(t, msg.Body, "CODE123")
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Body: "code"}))
	assert.Contains(t, buf.String(), "a@example.com")
	assert.Contains(t, buf.String(), "code")
}

func TestThrottle(t *testing.T) {
	next := &recorder{}
	s := Throttle(next, 0.001, 2)

	ctx := context.Background()
	require.NoError(t, s.Send(ctx, Message{}))
	require.NoError(t, s.Send(ctx, Message{}))

	err := s.Send(ctx, Message{})
	assert.ErrorIs(t, err, ErrThrottled)
	assert.Equal(t, 2, next.calls(), "throttled send must not reach the transport")
}

func TestThrottle_DisabledPassesThrough(t *testing.T) {
	next := &recorder{}
	s := Throttle(next, 0, 0)
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Send(context.Background(), Message{}))
	}
	assert.Equal(t, 50, next.calls())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &recorder{err: errors.New("relay down")}
	var states []string
	s := Breaker(next, BreakerConfig{
		MaxFailures:   3,
		Timeout:       time.Hour,
		OnStateChange: func(state string) { states = append(states, state) },
	}, discardLogger())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		err := s.Send(ctx, Message{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	}

	err := s.Send(ctx, Message{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, next.calls(), "open circuit must not call the transport")
	assert.Equal(t, []string{"open"}, states)
}

func TestBreaker_ThrottleIsNotAFailure(t *testing.T) {
	next := &recorder{err: ErrThrottled}
	s := Breaker(next, BreakerConfig{MaxFailures: 1, Timeout: time.Hour}, discardLogger())

	for i := 0; i < 5; i++ {
		err := s.Send(context.Background(), Message{})
		assert.ErrorIs(t, err, ErrThrottled)
	}
	assert.Equal(t, 5, next.calls())
}

func TestSMTPFormat(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "noreply@yamdb.local"})
	out := s.format(Message{To: "a@example.com", Subject: "Subj", Body: "line1\nline2"})

	head, body, ok := strings.Cut(out, "\r\n\r\n")
	require.True(t, ok, "headers and body must be separated by a blank CRLF line")
	assert.Contains(t, head, "From: noreply@yamdb.local")
	assert.Contains(t, head, "To: a@example.com")
	assert.Contains(t, head, "Subject: Subj")
	assert.Equal(t, "line1\r\nline2", body)
}

func TestSMTPSender_ConnectFailure(t *testing.T) {
	// Port 1 on localhost is essentially never listening.
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1, From: "x@y", Timeout: time.Second})
	err := s.Send(context.Background(), Message{To: "a@example.com"})
	assert.Error(t, err)
}

func TestNew_LogBackend(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Defaults().Mail
	s := New(cfg, slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), ConfirmationMessage("a@example.com", "alice", "CODE")))
	assert.Contains(t, buf.String(), "a@example.com")
}
