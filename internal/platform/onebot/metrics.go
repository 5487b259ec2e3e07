package onebot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "onebot_api_calls_total",
	Help: "Control API calls by action and outcome.",
}, []string{"action", "outcome"})

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "onebot_api_retries_total",
	Help: "Control API attempts beyond the first, by action.",
}, []string{"action"})

var callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "onebot_api_call_duration_seconds",
	Help:    "Duration of control API calls including retries.",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
}, []string{"action"})

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
