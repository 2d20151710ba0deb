package session

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genloop",
			Subsystem: "session",
			Name:      "tokens_total",
			Help:      "Tokens delivered to the handler, by type",
		},
		[]string{"type"},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "genloop",
			Subsystem: "session",
			Name:      "queries_total",
			Help:      "Queries by outcome (stop reason or error class)",
		},
		[]string{"outcome"},
	)

	queryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "genloop",
			Subsystem: "session",
			Name:      "query_duration_seconds",
			Help:      "Duration of successful queries in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	contextTokens = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "genloop",
			Subsystem: "session",
			Name:      "context_tokens",
			Help:      "Positions occupied in the session context",
		},
	)
)

func init() {
	prometheus.MustRegister(tokensTotal, queriesTotal, queryDuration, contextTokens)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrContextExhausted):
		return "context_exhausted"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "error"
	}
}
