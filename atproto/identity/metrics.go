package identity

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// swapped out in tests
var nowFunc = time.Now

var handleResolution = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "atpeek_identity_resolve_handle",
	Help: "Handle resolutions",
}, []string{"method", "status"})

var handleResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "atpeek_identity_resolve_handle_duration",
	Help:    "Time to resolve a handle",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2, 20),
}, []string{"method", "status"})

var didResolution = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "atpeek_identity_resolve_did",
	Help: "DID resolutions",
}, []string{"method", "status"})

var didResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "atpeek_identity_resolve_did_duration",
	Help:    "Time to resolve a DID",
	Buckets: prometheus.ExponentialBucketsRange(0.0001, 2, 20),
}, []string{"method", "status"})

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
