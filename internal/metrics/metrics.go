// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ログインフロー、カレンダー操作、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	// RecordLoginTransition はログインの状態遷移を記録する。
	RecordLoginTransition(provider, stage string)
	// RecordLoginResult はログイン1回の結果と所要時間を記録する。
	RecordLoginResult(provider, outcome string, duration time.Duration)
	RecordUserCreated(provider string)
	RecordCalendarOperation(op string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginTransitions *prometheus.CounterVec
	loginResults     *prometheus.CounterVec
	loginLatency     *prometheus.HistogramVec
	usersCreated     *prometheus.CounterVec
	calendarOps      *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplatform_login_transitions_total",
			Help: "ログインフローの状態遷移数",
		}, []string{"provider", "stage"}),
		loginResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplatform_login_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"provider", "outcome"}),
		loginLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyplatform_login_latency_seconds",
			Help:    "ログインフロー全体のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		usersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplatform_users_created_total",
			Help: "ログイン時に新規作成されたユーザー数",
		}, []string{"provider"}),
		calendarOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplatform_calendar_operations_total",
			Help: "カレンダー操作の合計数",
		}, []string{"op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplatform_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginTransitions,
		c.loginResults,
		c.loginLatency,
		c.usersCreated,
		c.calendarOps,
		c.httpStatus,
	)

	return c
}

// RecordLoginTransition はログインの状態遷移を記録する。
func (c *Collector) RecordLoginTransition(provider, stage string) {
	c.loginTransitions.WithLabelValues(provider, stage).Inc()
}

// RecordLoginResult はログインの結果とレイテンシを記録する。
func (c *Collector) RecordLoginResult(provider, outcome string, duration time.Duration) {
	c.loginResults.WithLabelValues(provider, outcome).Inc()
	c.loginLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordUserCreated は新規ユーザー作成を記録する。
func (c *Collector) RecordUserCreated(provider string) {
	c.usersCreated.WithLabelValues(provider).Inc()
}

// RecordCalendarOperation はカレンダー操作を記録する。
func (c *Collector) RecordCalendarOperation(op string) {
	c.calendarOps.WithLabelValues(op).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordLoginTransition(string, string)            {}
func (Nop) RecordLoginResult(string, string, time.Duration) {}
func (Nop) RecordUserCreated(string)                        {}
func (Nop) RecordCalendarOperation(string)                  {}
func (Nop) RecordHTTPStatus(int)                            {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
