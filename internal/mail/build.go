package mail

import (
	"log/slog"

	"github.com/sakif/yamdb/internal/config"
	"github.com/sakif/yamdb/internal/metrics"
)

// New builds the configured sender chain:
//
//	Breaker(Throttle(transport))
//
// where transport is an SMTPSender or, for the "log" backend, a LogSender.
// Breaker state changes are exported as the mail breaker gauge.
func New(cfg config.MailConfig, logger *slog.Logger) Sender {
	var transport Sender
	switch cfg.Backend {
	case config.MailBackendSMTP:
		transport = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			StartTLS: cfg.SMTPStartTLS,
			Timeout:  cfg.SendTimeout,
		})
	default:
		transport = NewLogSender(logger)
	}

	metrics.SetBreakerState("closed")
	return Breaker(
		Throttle(transport, cfg.RatePerSecond, cfg.Burst),
		BreakerConfig{
			MaxFailures:   cfg.BreakerMaxFailures,
			Timeout:       cfg.BreakerTimeout,
			OnStateChange: metrics.SetBreakerState,
		},
		logger,
	)
}
