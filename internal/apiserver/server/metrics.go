// Prometheus 指标导出
package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 包含所有 API Server 指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// 证书业务指标
	CertificateUploadsTotal *prometheus.CounterVec
	CertificateReviewsTotal *prometheus.CounterVec

	// 积分对账指标
	RewardReconcileTotal *prometheus.CounterVec
}

// NewMetrics 创建指标实例
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		CertificateUploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "certificate_uploads_total",
				Help:      "Total certificate uploads by file type",
			},
			[]string{"file_type"},
		),
		CertificateReviewsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "certificate_reviews_total",
				Help:      "Total certificate review decisions",
			},
			[]string{"decision"},
		),
		RewardReconcileTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reward_reconcile_total",
				Help:      "Total reward reconciliation outcomes",
			},
			[]string{"outcome"},
		),
	}
}

// MetricsMiddleware 创建 HTTP 指标中间件
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		// 包装 ResponseWriter 以捕获状态码
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter 包装 http.ResponseWriter 以捕获状态码
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath 规范化路径，将 ID 替换为占位符，避免高基数
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/certificates/") &&
		strings.HasSuffix(path, "/file"):
		return "/api/certificates/{id}/file"
	case strings.HasPrefix(path, "/api/admin/certificates/") &&
		strings.HasSuffix(path, "/verify"):
		return "/api/admin/certificates/{id}/verify"
	case strings.HasPrefix(path, "/api/admin/certificates/") &&
		strings.HasSuffix(path, "/reject"):
		return "/api/admin/certificates/{id}/reject"
	case strings.HasPrefix(path, "/api/admin/certificates/") &&
		path != "/api/admin/certificates":
		return "/api/admin/certificates/{id}"
	default:
		return path
	}
}

// MetricsHandler 返回 Prometheus HTTP Handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordCertificateUpload 记录一次证书上传
func (m *Metrics) RecordCertificateUpload(fileType string) {
	m.CertificateUploadsTotal.WithLabelValues(fileType).Inc()
}

// RecordCertificateReview 记录一次审核结论
func (m *Metrics) RecordCertificateReview(decision string) {
	m.CertificateReviewsTotal.WithLabelValues(decision).Inc()
}

// RecordRewardReconcile 记录一次积分对账结果
func (m *Metrics) RecordRewardReconcile(outcome string) {
	m.RewardReconcileTotal.WithLabelValues(outcome).Inc()
}
