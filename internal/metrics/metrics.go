// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// サービス層のEventRecorderとIDプロバイダークライアントのCallRecorderを兼ねる。
type Collector struct {
	signupTotal     prometheus.Counter
	loginTotal      *prometheus.CounterVec
	userDeleted     prometheus.Counter
	providerCalls   *prometheus.CounterVec
	providerLatency prometheus.Histogram
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signupTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nvc_signup_total",
			Help: "ユーザー登録成功の合計数",
		}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nvc_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"outcome"}),
		userDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nvc_user_deleted_total",
			Help: "ユーザー削除成功の合計数",
		}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nvc_provider_calls_total",
			Help: "IDプロバイダー呼び出しの操作・ステータスコード別合計数",
		}, []string{"op", "status_code"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nvc_provider_call_latency_seconds",
			Help:    "IDプロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nvc_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signupTotal,
		c.loginTotal,
		c.userDeleted,
		c.providerCalls,
		c.providerLatency,
		c.httpStatus,
	)

	return c
}

// RecordSignup はユーザー登録成功を記録する。
func (c *Collector) RecordSignup() {
	c.signupTotal.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.loginTotal.WithLabelValues(outcome).Inc()
}

// RecordUserDeleted はユーザー削除成功を記録する。
func (c *Collector) RecordUserDeleted() {
	c.userDeleted.Inc()
}

// RecordProviderCall はIDプロバイダー呼び出しの結果とレイテンシを記録する。
// ネットワークエラーで応答が得られなかった場合、statusCodeは0。
func (c *Collector) RecordProviderCall(op string, statusCode int, duration time.Duration) {
	c.providerCalls.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	c.providerLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
