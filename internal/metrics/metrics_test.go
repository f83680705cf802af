package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/titles", "200"))
	RecordRequest("GET", "/api/v1/titles", 200, 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/titles", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordRequest_UnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404"))
	RecordRequest("GET", "", 404, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordMail(t *testing.T) {
	sent := testutil.ToFloat64(MailSendTotal.WithLabelValues("sent"))
	failed := testutil.ToFloat64(MailSendTotal.WithLabelValues("failed"))

	RecordMail(nil)
	RecordMail(errors.New("boom"))

	assert.Equal(t, sent+1, testutil.ToFloat64(MailSendTotal.WithLabelValues("sent")))
	assert.Equal(t, failed+1, testutil.ToFloat64(MailSendTotal.WithLabelValues("failed")))
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("open")
	assert.Equal(t, 1.0, testutil.ToFloat64(MailBreakerState.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(MailBreakerState.WithLabelValues("closed")))

	SetBreakerState("closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(MailBreakerState.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(MailBreakerState.WithLabelValues("closed")))
}
