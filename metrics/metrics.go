// Package metrics exposes the prometheus collectors the orchestrator
// and device packages update, grounded on arx-os-arxos's use of
// github.com/prometheus/client_golang for service-level instrumentation.
// Unlike arx-os-arxos there is no HTTP surface in this module (spec.md
// §6: "no CLI, no environment variables, no files owned by the core");
// callers that run a metrics endpoint register these collectors on
// their own prometheus.Registry via Registry().
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry returns a new *prometheus.Registry with every collector in
// this package already registered. Each call builds a fresh registry,
// so calling it more than once does not panic; all returned registries
// share the same package-level collectors.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		DeviceTimeouts,
		FlagPollSpins,
		SearchFanoutLatency,
		ArenaHighWaterMark,
		TopKQueueDepth,
		InvertedListBytes,
	)
	return reg
}

var (
	// DeviceTimeouts counts flag-poll deadlines exceeded, by device id.
	DeviceTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vectorengine",
		Name:      "device_timeouts_total",
		Help:      "Flag-poll deadlines exceeded per device.",
	}, []string{"device"})

	// FlagPollSpins histograms how many poll iterations a completion
	// token needed before observing both flag halves non-zero.
	FlagPollSpins = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vectorengine",
		Name:      "flag_poll_spins",
		Help:      "Spin count before a completion flag resolved.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
	}, []string{"device"})

	// SearchFanoutLatency histograms per-device search latency within
	// one logical Search call, by device id.
	SearchFanoutLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vectorengine",
		Name:      "search_fanout_latency_seconds",
		Help:      "Latency of one device's share of a Search fan-out.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"device"})

	// ArenaHighWaterMark gauges the highest-seen bump-pointer offset
	// in each device's stack arena.
	ArenaHighWaterMark = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vectorengine",
		Name:      "arena_high_water_mark_bytes",
		Help:      "Highest stack-arena offset observed, per device.",
	}, []string{"device"})

	// TopKQueueDepth gauges, per device, how many host.Orchestrator.Search
	// per-device search tasks have been queued and not yet finished.
	TopKQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vectorengine",
		Name:      "topk_queue_depth",
		Help:      "Per-device search tasks queued or running and not yet finished.",
	}, []string{"device"})

	// InvertedListBytes gauges the byte size of the codes column of
	// each (device, list) inverted list.
	InvertedListBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "vectorengine",
		Name:      "inverted_list_bytes",
		Help:      "Byte size of an inverted list's codes column.",
	}, []string{"device", "list"})
)
