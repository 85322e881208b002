package service

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.ObserveUpdate("callback", "s:tasks", 10*time.Millisecond, nil)
	m.ObserveUpdate("message", "text", 5*time.Millisecond, errors.New("boom"))
	m.ObserveNotification(true)
	m.ObserveNotification(false)
	m.ObserveNotification(false)
	m.ObserveReminder("lesson")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.updates.WithLabelValues("callback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerErrors.WithLabelValues("text")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reminders.WithLabelValues("lesson")))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveUpdate("message", "text", time.Millisecond, nil)
		m.ObserveNotification(true)
		m.ObserveReminder("deadline")
		m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
	assert.NotNil(t, m.Handler())
}
