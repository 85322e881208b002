package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the bot process.
// All observe methods are no-ops on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	updates         *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	reminders       *prometheus.CounterVec
	updateDuration  *prometheus.HistogramVec
	requestDuration *prometheus.HistogramVec
}

// NewMetricsService registers the bot collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	updates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorbot_updates_total",
		Help: "Telegram updates received, by kind",
	}, []string{"kind"})

	handlerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorbot_handler_errors_total",
		Help: "Updates whose handler returned an error, by route",
	}, []string{"route"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorbot_notifications_total",
		Help: "Outbound notifications, by result",
	}, []string{"result"})

	reminders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutorbot_reminders_scheduled_total",
		Help: "Reminder jobs handed to the scheduler, by kind",
	}, []string{"kind"})

	updateDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutorbot_update_duration_seconds",
		Help:    "Time spent handling one update",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(updates, handlerErrors, notifications, reminders, updateDuration, requestDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		updates:         updates,
		handlerErrors:   handlerErrors,
		notifications:   notifications,
		reminders:       reminders,
		updateDuration:  updateDuration,
		requestDuration: requestDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry is exposed for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveUpdate counts an incoming update and how long its route took.
func (m *MetricsService) ObserveUpdate(kind, route string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
	m.updateDuration.WithLabelValues(route).Observe(duration.Seconds())
	if err != nil {
		m.handlerErrors.WithLabelValues(route).Inc()
	}
}

// ObserveNotification counts a delivered or dropped notification.
func (m *MetricsService) ObserveNotification(delivered bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !delivered {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// ObserveReminder counts a reminder job placed on the scheduler.
func (m *MetricsService) ObserveReminder(kind string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(kind).Inc()
}

// ObserveHTTPRequest records the webhook/health/metrics server latency.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
