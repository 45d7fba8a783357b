// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchemaLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_schema_loads_total",
			Help: "Total number of trial field schema loads",
		},
		[]string{"trial_type", "status"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Total number of local validation failures by reason",
		},
		[]string{"trial_type", "reason"},
	)

	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_applications_submitted_total",
			Help: "Total number of single applications submitted",
		},
		[]string{"trial_type", "eligibility"},
	)

	SubmissionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submission_failures_total",
			Help: "Total number of failed single submissions",
		},
		[]string{"trial_type"},
	)

	FilesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_files_rejected_total",
			Help: "Total number of cohort files rejected by the local gate",
		},
		[]string{"reason"},
	)

	CohortUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_cohort_uploads_total",
			Help: "Total number of bulk cohort uploads",
		},
		[]string{"trial_type", "status"},
	)

	CohortUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_cohort_upload_duration_seconds",
			Help:    "Duration of bulk cohort uploads in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"trial_type"},
	)
)
