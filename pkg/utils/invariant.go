// Invariants are conditions that must hold unless there is a bug in dlist itself, e.g. a list whose forward walk
// ends before its recorded size, or a size that drops below zero. They are not meant for caller mistakes that
// have a defined result (a missing index, popping an empty list); those are reported through return values.
//
// When an invariant is violated, an error is logged and the `invariants_total` counter is incremented so the
// violation shows up on the metrics endpoint. Binaries built with `-X ...utils.TestMode=true` panic instead, so
// tests catch the bug at its source. The caller still has to recover from the bad state on its own, usually by
// returning early.

package utils

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	promclient "github.com/prometheus/client_model/go"
)

var invariantsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "invariants_total",
	Help: "The total number of invariant violations",
}, []string{
	"module", // The module in which this invariant occurred.
	"type",   // The type of the invariant that occurred.
})

// RaiseInvariant records a violated invariant of `invariantType` in `module`. `args` are slog key/value pairs.
func RaiseInvariant(module, invariantType, msg string, args ...any) {
	invariantsMetric.WithLabelValues(module, invariantType).Inc()
	slog.With("invariant", invariantType, "module", module).Error(msg, args...)
	if IsTestMode {
		panic("invariant violated: " + invariantType)
	}
}

// GetMetricValue returns the current value of the invariant counter for the given `module` and `invariantType`.
func GetMetricValue(module, invariantType string) int {
	return CounterValue(invariantsMetric.WithLabelValues(module, invariantType))
}

// CounterValue reads back the current value of a single prometheus counter.
func CounterValue(counter prometheus.Counter) int {
	var metric = &promclient.Metric{}
	if err := counter.Write(metric); err != nil {
		slog.Error("Failed to read counter value.", "error", err)
		return 0
	}
	return int(metric.Counter.GetValue())
}
