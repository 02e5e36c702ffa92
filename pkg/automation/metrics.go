package automation

import "github.com/prometheus/client_golang/prometheus"

var (
	alertsClassified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_guardian",
		Name:      "alerts_classified_total",
		Help:      "Entities classified at an alertable severity.",
	}, []string{"kind", "severity"})

	notificationsSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_guardian",
		Name:      "notifications_suppressed_total",
		Help:      "Alert notifications skipped because the cooldown was still open.",
	}, []string{"kind"})

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus_guardian",
		Name:      "job_runs_total",
		Help:      "Finished job runs by final status.",
	}, []string{"job", "status"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus_guardian",
		Name:      "job_run_duration_seconds",
		Help:      "Wall time of job runs including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(alertsClassified, notificationsSuppressed, jobRuns, jobDuration)
}
