package download

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels of tasksTotal.
const (
	outcomeCompleted = "completed"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
	outcomeCancelled = "cancelled"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craft_keeper",
			Subsystem: "download",
			Name:      "tasks_total",
			Help:      "Download tasks by artifact kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	bytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craft_keeper",
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Bytes received for verified artifacts",
		},
		[]string{"kind"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "craft_keeper",
			Subsystem: "download",
			Name:      "retries_total",
			Help:      "Attempts repeated after a transport failure or checksum mismatch",
		},
		[]string{"kind"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "craft_keeper",
			Subsystem: "download",
			Name:      "task_duration_seconds",
			Help:      "Time from first attempt to verified registration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal)
	prometheus.MustRegister(bytesTotal)
	prometheus.MustRegister(retriesTotal)
	prometheus.MustRegister(taskDuration)
}

// Collectors returns the download metrics, used to push them from short lived commands.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{tasksTotal, bytesTotal, retriesTotal, taskDuration}
}
