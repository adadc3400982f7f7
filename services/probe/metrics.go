package probesvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbesTotal counts image probes by outcome
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ukmiverse_avatar_probes_total",
			Help: "Total number of avatar image probes",
		},
		[]string{"outcome"},
	)

	// ProbeLatency tracks how long an image takes to answer
	ProbeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ukmiverse_avatar_probe_latency_seconds",
			Help:    "Avatar image probe latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"outcome"},
	)
)
