package generation

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "jobs_total",
			Help:      "Generation jobs by outcome",
		},
		[]string{"outcome"},
	)

	activeJobs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "active_jobs",
			Help:      "Jobs currently tracked by the manager, including those in their removal grace period",
		},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "job_duration_seconds",
			Help:      "Time from submission to a terminal state",
			Buckets:   []float64{15, 30, 60, 120, 180, 240, 360, 480, 720, 1200},
		},
		[]string{"outcome"},
	)

	pollRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "generation",
			Name:      "poll_requests_total",
			Help:      "Provider status requests by result",
		},
		[]string{"result"},
	)
)

// Outcome labels.
const (
	outcomeSubmitted = "submitted"
	outcomeRejected  = "rejected"
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

func init() {
	prometheus.MustRegister(jobsTotal, activeJobs, jobDuration, pollRequestsTotal)
}
