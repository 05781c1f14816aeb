// Package metrics exposes Prometheus collectors for tool call outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steve_mcp",
		Name:      "tool_calls_total",
		Help:      "Completed tool calls by tool and result.",
	}, []string{"tool", "result"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "steve_mcp",
		Name:      "tool_call_duration_seconds",
		Help:      "Tool call latency by tool.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})
)

// ObserveToolCall records one completed tool call.
func ObserveToolCall(tool, result string, duration time.Duration) {
	if tool == "" {
		tool = "unknown"
	}
	if result == "" {
		result = "error"
	}
	toolCallsTotal.WithLabelValues(tool, result).Inc()
	toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
