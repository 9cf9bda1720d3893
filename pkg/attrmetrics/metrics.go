// Package attrmetrics exposes the Prometheus counters/histograms the
// resolver, filter and reload components publish, adapted from the service
// layer's pkg/metrics package. Unlike that package's process-wide global
// registry, Recorder is constructed per engine instance against a
// caller-supplied prometheus.Registerer so that multiple engines (or tests)
// never collide on collector names; NoOp returns a Recorder that discards
// every observation, used when the caller doesn't care to wire metrics.
package attrmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder records resolver/filter/reload metrics. The zero value is not
// usable; construct with New or NoOp.
type Recorder struct {
	resolveDuration    prometheus.Histogram
	filterDuration     prometheus.Histogram
	connectorFailures  *prometheus.CounterVec
	connectorFailovers *prometheus.CounterVec
	reloadTotal        *prometheus.CounterVec
}

// New constructs a Recorder and registers its collectors against reg. reg
// may be nil, in which case the collectors are created but never exposed
// (equivalent to NoOp for scraping purposes, but the Recorder still tracks
// values in memory via the created collectors).
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attribute_engine",
			Subsystem: "resolver",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of a full attribute resolution request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		filterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "attribute_engine",
			Subsystem: "filter",
			Name:      "filter_duration_seconds",
			Help:      "Duration of a full attribute filtering pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		connectorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attribute_engine",
			Subsystem: "resolver",
			Name:      "connector_failures_total",
			Help:      "Total data connector invocations that returned an error.",
		}, []string{"connector_id"}),
		connectorFailovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attribute_engine",
			Subsystem: "resolver",
			Name:      "connector_failovers_total",
			Help:      "Total times a connector's configured failover was engaged.",
		}, []string{"from_connector", "to_connector"}),
		reloadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attribute_engine",
			Subsystem: "service",
			Name:      "reload_total",
			Help:      "Total configuration reload attempts by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			r.resolveDuration,
			r.filterDuration,
			r.connectorFailures,
			r.connectorFailovers,
			r.reloadTotal,
		)
	}
	return r
}

// NoOp returns a Recorder backed by unregistered collectors, for callers
// that don't want to wire a registry (resolver.NewEngine and
// filter.NewEngine default to this when given a nil metrics argument).
func NoOp() *Recorder {
	return New(nil)
}

// ObserveResolveDuration records the duration of one Engine.Resolve call.
func (r *Recorder) ObserveResolveDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.resolveDuration.Observe(d.Seconds())
}

// ObserveFilterDuration records the duration of one filter engine pass.
func (r *Recorder) ObserveFilterDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.filterDuration.Observe(d.Seconds())
}

// IncConnectorFailure increments the failure counter for connectorID.
func (r *Recorder) IncConnectorFailure(connectorID string) {
	if r == nil {
		return
	}
	r.connectorFailures.WithLabelValues(connectorID).Inc()
}

// IncConnectorFailover increments the failover counter for the (from, to)
// connector pair.
func (r *Recorder) IncConnectorFailover(fromConnectorID, toConnectorID string) {
	if r == nil {
		return
	}
	r.connectorFailovers.WithLabelValues(fromConnectorID, toConnectorID).Inc()
}

// IncReload increments the reload counter, labeled "success" or "failure".
func (r *Recorder) IncReload(success bool) {
	if r == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	r.reloadTotal.WithLabelValues(result).Inc()
}
