package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 训练会话状态流转
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_session_transitions_total",
			Help: "Training session lifecycle transitions",
		},
		[]string{"transition"},
	)

	SessionScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_session_score",
			Help:    "Final scores of completed training sessions",
			Buckets: []float64{20, 40, 60, 80, 90, 100},
		},
		[]string{"outcome"},
	)

	AccessDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_denials_total",
			Help: "Operations rejected by the access policy",
		},
		[]string{"operation"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(SessionTransitions)
		prometheus.MustRegister(SessionScores)
		prometheus.MustRegister(AccessDenials)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
