package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kcourse_provider_calls_total",
		Help: "Model provider calls by outcome (ok, error, circuit_open).",
	}, []string{"provider", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kcourse_provider_call_duration_seconds",
		Help:    "Latency of model provider calls including retries.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kcourse_provider_retries_total",
		Help: "Retries issued after transient provider failures.",
	}, []string{"provider"})
)
