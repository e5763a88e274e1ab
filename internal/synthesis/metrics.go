package synthesis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kcourse_pipeline_stage_duration_seconds",
		Help:    "Duration of each trip plan synthesis stage.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"stage", "outcome"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kcourse_pipeline_runs_total",
		Help: "Trip plan synthesis runs by outcome and failing stage.",
	}, []string{"outcome", "stage"})
)

func observeStage(stage Stage, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	stageDuration.WithLabelValues(string(stage), outcome).Observe(time.Since(start).Seconds())
}
