package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlanItemsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmforge_plan_items_total",
			Help: "Number of execution plan items built, by lifecycle",
		},
		[]string{"lifecycle"},
	)

	MojoExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realmforge_mojo_executions_total",
			Help: "Mojo executions by plugin and outcome",
		},
		[]string{"plugin", "outcome"},
	)

	MojoExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realmforge_mojo_execution_duration_seconds",
			Help:    "Mojo execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"plugin"},
	)

	ProjectRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realmforge_project_run_duration_seconds",
			Help:    "Duration of a whole project plan in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"project"},
	)
)

// Execution outcomes reported on MojoExecutions
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)
