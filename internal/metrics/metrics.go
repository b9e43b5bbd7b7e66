// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作結果のラベル値
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultCanceled = "canceled"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストアとHTTPミドルウェアから利用する。
type MetricsCollector interface {
	ObserveOperation(store, op string, d time.Duration, err error)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	operations     *prometheus.CounterVec
	operationTime  *prometheus.HistogramVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloghub_store_operations_total",
			Help: "ストア操作の合計数（結果別）",
		}, []string{"store", "op", "result"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloghub_store_operation_duration_seconds",
			Help:    "ストア操作の所要時間（秒）。擬似遅延を含む",
			Buckets: prometheus.DefBuckets,
		}, []string{"store", "op"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bloghub_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloghub_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.operations,
		c.operationTime,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// ObserveOperation はストア操作の結果と所要時間を記録する。
// pending.Observerを満たす。
func (c *Collector) ObserveOperation(store, op string, d time.Duration, err error) {
	c.operations.WithLabelValues(store, op, result(err)).Inc()
	c.operationTime.WithLabelValues(store, op).Observe(d.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultFailure
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
