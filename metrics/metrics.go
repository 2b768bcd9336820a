// Package metrics exposes the server's atomic stat counters (spec §3.6,
// §9) as Prometheus instruments, grounded on the pack's Prometheus-based
// repos (runZeroInc-sockstats, snapetech-plexTuner).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every counter/gauge the server publishes.
type Metrics struct {
	ClientsConnected prometheus.Gauge
	ClientsActive    prometheus.Gauge

	PacketsReceived *prometheus.CounterVec
	PacketsDropped  *prometheus.CounterVec
	FramesReceived  prometheus.Counter
	FramesDropped   prometheus.Counter

	HandshakeSuccesses prometheus.Counter
	HandshakeFailures  *prometheus.CounterVec

	BufferPoolBytesInUse prometheus.Gauge
	BufferPoolHits       prometheus.Counter
	BufferPoolNewAllocs  prometheus.Counter

	BroadcastTickDuration prometheus.Histogram
}

// New registers and returns the full metrics bundle against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ascii_chat", Name: "clients_connected", Help: "Currently connected clients.",
		}),
		ClientsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ascii_chat", Name: "clients_active", Help: "Clients with an active video or audio stream.",
		}),
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "packets_received_total", Help: "Packets received by type.",
		}, []string{"type"}),
		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "packets_dropped_total", Help: "Packets dropped by queue and reason.",
		}, []string{"queue", "reason"}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "video_frames_received_total", Help: "Inbound IMAGE_FRAME packets accepted.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "video_frames_dropped_total", Help: "Outbound ASCII_FRAME enqueues dropped for a full client queue.",
		}),
		HandshakeSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "handshake_successes_total", Help: "Completed crypto handshakes.",
		}),
		HandshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "handshake_failures_total", Help: "Failed crypto handshakes by reason.",
		}, []string{"reason"}),
		BufferPoolBytesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ascii_chat", Name: "bufferpool_bytes_in_use", Help: "Bytes currently checked out of the buffer pool.",
		}),
		BufferPoolHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "bufferpool_hits_total", Help: "Buffer pool acquires served from a free list.",
		}),
		BufferPoolNewAllocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ascii_chat", Name: "bufferpool_new_allocs_total", Help: "Buffer pool acquires that allocated fresh memory.",
		}),
		BroadcastTickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ascii_chat", Name: "broadcast_tick_duration_seconds", Help: "Wall time spent compositing one broadcast tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.ClientsConnected, m.ClientsActive,
		m.PacketsReceived, m.PacketsDropped,
		m.FramesReceived, m.FramesDropped,
		m.HandshakeSuccesses, m.HandshakeFailures,
		m.BufferPoolBytesInUse, m.BufferPoolHits, m.BufferPoolNewAllocs,
		m.BroadcastTickDuration,
	)
	return m
}
