// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lexsim"

// routeLabels HTTP 指标的标签；route 取 gin 路由模板，未匹配记为 unmatched
var routeLabels = []string{"method", "route"}

// sizeBuckets 100B 到 10MB
var sizeBuckets = prometheus.ExponentialBuckets(100, 10, 6)

func httpHistogram(name, help string, buckets []float64) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, routeLabels)
}

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status code",
	}, append(routeLabels[:len(routeLabels):len(routeLabels)], "status"))

	// 生成请求可能持续一分钟以上，桶延伸到 180s
	HTTPRequestDuration = httpHistogram("request_duration_seconds", "HTTP request latency",
		[]float64{.005, .025, .1, .5, 1, 5, 15, 30, 60, 120, 180})
	HTTPRequestSize  = httpHistogram("request_size_bytes", "HTTP request body size", sizeBuckets)
	HTTPResponseSize = httpHistogram("response_size_bytes", "HTTP response body size", sizeBuckets)

	// 业务指标 - 模拟生成
	SimulationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "total",
			Help:      "Total number of simulation requests by outcome",
		},
		[]string{"mode", "status"}, // status: success/invalid/rate_limited/provider_error
	)

	SimulationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "duration_seconds",
			Help:      "End-to-end simulation duration in seconds",
			Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	ParseWarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "parse_warnings_total",
			Help:      "Warnings attached to successful simulation results",
		},
		[]string{"kind"}, // kind: json_missing/json_invalid/fallback
	)

	// 限流指标
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter decisions",
		},
		[]string{"backend", "result"}, // result: allowed/rejected/error
	)

	// LLM 指标（由 eino 全局回调上报）
	LLMTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_used_total",
			Help:      "Total tokens used for LLM calls",
		},
		[]string{"workflow", "provider", "model", "type"}, // type: prompt/completion
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   []float64{.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"workflow", "provider", "model"},
	)

	LLMCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"workflow", "provider", "model", "status"},
	)

	// LLM 网关尝试指标（含回退）
	LLMAttemptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "attempt_total",
			Help:      "Provider gateway attempts by outcome",
		},
		[]string{"provider", "model", "outcome"}, // outcome: success/error/timeout/rejected
	)
)
