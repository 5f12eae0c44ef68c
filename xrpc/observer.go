package xrpc

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Receives a notification for every outbound attempt and its outcome,
// including retried attempts. Implementations must be fast and must not
// block; the client invokes them synchronously and ignores anything they
// do, so they can never affect the outcome of a call.
type RequestObserver interface {
	OnRequestStart(method, url string, ts time.Time)
	OnRequestEnd(status int, dur time.Duration)
}

// Observer logging each attempt at debug level.
type SlogObserver struct {
	Logger *slog.Logger
}

var _ RequestObserver = (*SlogObserver)(nil)

func (o *SlogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *SlogObserver) OnRequestStart(method, url string, ts time.Time) {
	o.logger().Debug("xrpc request", "method", method, "url", url, "ts", ts)
}

func (o *SlogObserver) OnRequestEnd(status int, dur time.Duration) {
	o.logger().Debug("xrpc response", "status", status, "duration", dur)
}

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "atpeek_xrpc_requests",
	Help: "Outbound XRPC attempts, including retries",
}, []string{"status"})

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "atpeek_xrpc_request_duration",
	Help:    "Duration of outbound XRPC attempts",
	Buckets: prometheus.ExponentialBucketsRange(0.001, 30, 20),
}, []string{"status"})

// Observer recording attempt counts and durations as prometheus metrics.
// Status label is the HTTP status code, or "network" for transport-level
// failures.
type PrometheusObserver struct{}

var _ RequestObserver = (*PrometheusObserver)(nil)

func (PrometheusObserver) OnRequestStart(method, url string, ts time.Time) {}

func (PrometheusObserver) OnRequestEnd(status int, dur time.Duration) {
	label := "network"
	if status != statusNetworkError {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(label).Inc()
	requestDuration.WithLabelValues(label).Observe(dur.Seconds())
}

// Fans a notification out to several observers.
type MultiObserver []RequestObserver

var _ RequestObserver = (MultiObserver)(nil)

func (m MultiObserver) OnRequestStart(method, url string, ts time.Time) {
	for _, o := range m {
		o.OnRequestStart(method, url, ts)
	}
}

func (m MultiObserver) OnRequestEnd(status int, dur time.Duration) {
	for _, o := range m {
		o.OnRequestEnd(status, dur)
	}
}
