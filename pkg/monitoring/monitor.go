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
			Name: "prep_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prep_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// PointsAwarded 按动作统计发放的积分
	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prep_points_awarded_total",
			Help: "Loyalty points credited, by action",
		},
		[]string{"action"},
	)

	// PaymentsSettled 按网关和结果统计支付结算
	PaymentsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prep_payments_settled_total",
			Help: "Payments moved out of pending, by gateway and status",
		},
		[]string{"gateway", "status"},
	)

	VouchersRedeemed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prep_vouchers_redeemed_total",
			Help: "Voucher codes successfully redeemed",
		},
	)

	SubscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "prep_subscriptions_expired_total",
			Help: "Subscriptions deactivated by the expiry sweep",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			PointsAwarded,
			PaymentsSettled,
			VouchersRedeemed,
			SubscriptionsExpired,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
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

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
