package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, updated from the uploader and resolver.
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_uploads_total",
			Help: "Uploads processed by the orchestrator, by result",
		},
		[]string{"result"},
	)

	EnqueueFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_enqueue_fallbacks_total",
			Help: "Uploads that wrote to object storage synchronously because the broker enqueue failed",
		},
	)

	SignedURLFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_signed_url_failures_total",
			Help: "Per-item signed URL resolutions that degraded to null",
		},
	)
)
