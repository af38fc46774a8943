package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Grading sources.
const (
	SourceSubmit  = "submit"
	SourceManual  = "manual"
	SourceSingle  = "auto_single"
	SourceWorker  = "worker"
	SourcePreview = "preview"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	GradingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursegrade_gradings_total",
			Help: "Submissions run through the grading engine, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	GradingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursegrade_grading_duration_seconds",
			Help:    "Time spent in the grading engine per submission",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
		[]string{"source"},
	)

	ScorePercent = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursegrade_score_percent",
			Help:    "Distribution of auto-graded score percentages",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	WorkerBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coursegrade_worker_batch_size",
			Help:    "Number of jobs flushed per grading worker batch",
			Buckets: prometheus.LinearBuckets(5, 5, 10),
		},
	)

	WorkerRequeued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coursegrade_worker_requeued_total",
			Help: "Grading jobs pushed back onto the queue after a failed write",
		},
	)
)

// Init registers every collector with the default registry.
func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		GradingsTotal,
		GradingDuration,
		ScorePercent,
		WorkerBatchSize,
		WorkerRequeued,
	)
}

// ObserveGrading records one pass of the grading engine.
func ObserveGrading(source, outcome string, elapsed time.Duration, pct float64, autoGradeable bool) {
	GradingsTotal.WithLabelValues(source, outcome).Inc()
	GradingDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if autoGradeable {
		ScorePercent.Observe(pct)
	}
}

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
