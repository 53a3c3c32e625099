package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EncodeJobsTotal counts encode jobs by outcome: ok, requeued,
// exhausted, fatal, malformed.
var EncodeJobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "photo_encode_jobs_total",
		Help: "Encode jobs processed by the worker, by outcome",
	},
	[]string{"outcome"},
)
