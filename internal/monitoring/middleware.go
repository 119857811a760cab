package monitoring

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures the duration of one operation against a stage metric.
type Timer struct {
	start   time.Time
	metrics *Metrics
	stage   string
}

// NewTimer starts a timer for the given stage.
func NewTimer(metrics *Metrics, stage string) *Timer {
	return &Timer{start: time.Now(), metrics: metrics, stage: stage}
}

// Stop records the elapsed time as one processed item.
func (t *Timer) Stop() {
	t.metrics.RecordProcessed(t.stage, time.Since(t.start))
}

// Middleware creates a Gin middleware recording control-API requests.
func Middleware(metrics *Metrics) gin.HandlerFunc {
	requests := metrics.controlRequests()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		requests.WithLabelValues(c.Request.Method, c.FullPath()).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) controlRequests() *prometheus.HistogramVec {
	m.controlOnce.Do(func() {
		m.controlHist = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_control_request_duration_seconds",
				Help:    "Control API request duration",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"method", "path"},
		)
		m.registry.MustRegister(m.controlHist)
	})
	return m.controlHist
}
