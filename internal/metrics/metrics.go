package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathtutor_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// APIResponseSize API 响应体大小（字节）
	APIResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathtutor_api_response_size_bytes",
			Help:    "API 响应体大小分布",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
)

// 向量生成指标
var (
	// EmbeddingRequestsTotal 向量生成调用总数
	EmbeddingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_embedding_requests_total",
			Help: "向量生成调用总数",
		},
		[]string{"model", "status"}, // status: success, 或错误码
	)

	// EmbeddingDuration 向量生成耗时（秒）
	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mathtutor_embedding_duration_seconds",
			Help:    "向量生成耗时分布",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"model"},
	)

	// ProviderFailuresTotal 上游 AI 服务错误数（按分类错误码）
	ProviderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_provider_failures_total",
			Help: "上游 AI 服务错误总数",
		},
		[]string{"code"},
	)
)

// 存储指标
var (
	// StorageFailuresTotal 存储层错误数（按分类错误码）
	StorageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_storage_failures_total",
			Help: "存储层错误总数",
		},
		[]string{"operation", "code"},
	)
)

// RecordEmbedding 记录一次向量生成调用
func RecordEmbedding(model, status string, seconds float64) {
	EmbeddingRequestsTotal.WithLabelValues(model, status).Inc()
	EmbeddingDuration.WithLabelValues(model).Observe(seconds)
}

// 批处理指标
var (
	// BatchItemsTotal 批处理条目结果数
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_batch_items_total",
			Help: "批处理条目结果总数",
		},
		[]string{"pipeline", "outcome"}, // outcome: succeeded, failed, skipped
	)

	// BatchRetriesTotal 批处理重试次数
	BatchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mathtutor_batch_retries_total",
			Help: "批处理条目重试总数",
		},
		[]string{"pipeline"},
	)
)
