package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resume_screening"

var (
	processingStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "processing_started_total",
		Help:      "Total processing attempts started.",
	})

	processingOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "processing_outcomes_total",
		Help:      "Processing attempts by outcome and failure kind.",
	}, []string{"outcome", "failure"})

	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "processing_duration_seconds",
		Help:      "Duration of a single processing attempt.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	staleRequeuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stale_requeued_total",
		Help:      "Resumes moved back to PENDING by the stale sweep.",
	})

	manualRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "manual_retries_total",
		Help:      "Explicit retries of FAILED resumes.",
	})

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "uploads_total",
		Help:      "Resumes accepted for processing.",
	})

	enqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "enqueued_total",
		Help:      "Messages handed to the queue backend.",
	}, []string{"backend", "result"})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "messages_total",
		Help:      "Queue messages handled by pull workers, by result.",
	}, []string{"result"})
)

// Worker message results.
const (
	MessageReceived      = "received"
	MessageCompleted     = "completed"
	MessageFailed        = "failed"
	MessageUnrecoverable = "deleted_unrecoverable"
)

// IncMessage counts a pull-worker message event.
func IncMessage(result string) {
	messagesTotal.WithLabelValues(result).Inc()
}

// IncProcessingStarted increments the started counter.
func IncProcessingStarted() {
	processingStartedTotal.Inc()
}

// IncOutcome records the end of a processing attempt. failure is empty on success.
func IncOutcome(outcome, failure string) {
	processingOutcomeTotal.WithLabelValues(outcome, failure).Inc()
}

// ObserveProcessingDuration records how long an attempt took.
func ObserveProcessingDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	processingDuration.Observe(d.Seconds())
}

// IncStaleRequeued counts sweep requeues.
func IncStaleRequeued(n int) {
	if n > 0 {
		staleRequeuedTotal.Add(float64(n))
	}
}

func IncManualRetry() {
	manualRetriesTotal.Inc()
}

func IncUpload() {
	uploadsTotal.Inc()
}

// IncEnqueued counts a publish attempt against a queue backend.
func IncEnqueued(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	enqueuedTotal.WithLabelValues(backend, result).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
