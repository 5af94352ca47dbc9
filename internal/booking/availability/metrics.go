package availability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "availability_resolve_seconds",
		Help:    "Time spent resolving vehicle availability for a date range.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	candidatesReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "availability_candidates_returned",
		Help:    "Number of free vehicles returned per availability query.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
)
