// Package metrics centralizes the prometheus collectors the core exposes,
// mirroring the teacher's per-component gauge/counter variables
// (decoder/stream's tcpStreamFeedDataTime and friends) but registered once
// instead of scattered across package-level vars.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReassemblyBytesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opcap",
			Subsystem: "reassembly",
			Name:      "bytes_emitted_total",
			Help:      "Bytes emitted by the stream reassembler, per direction.",
		},
		[]string{"direction"},
	)

	ReassemblyConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opcap",
			Subsystem: "reassembly",
			Name:      "connections_active",
			Help:      "Number of TCP connections currently tracked by the reassembler.",
		},
	)

	BundleDiagnostics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opcap",
			Subsystem: "bundle",
			Name:      "resync_diagnostics_total",
			Help:      "Bytes skipped one at a time while resynchronizing on a bad bundle signature.",
		},
	)

	BundleDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opcap",
			Subsystem: "bundle",
			Name:      "dropped_total",
			Help:      "Bundles dropped due to decompression or decode failure.",
		},
		[]string{"reason"},
	)

	DispatchedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opcap",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "IPC messages dispatched to a handler, per opcode name.",
		},
		[]string{"direction", "opcode"},
	)

	PendingEffects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opcap",
			Subsystem: "effect",
			Name:      "pending",
			Help:      "Number of effect announcements awaiting per-target results.",
		},
	)

	ChatRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opcap",
			Subsystem: "chat",
			Name:      "records_total",
			Help:      "Chat records normalized, per channel.",
		},
		[]string{"channel"},
	)
)

// Registry bundles every collector above. None of them is registered with
// any prometheus.Registerer, the global one included, until MustRegister
// is called.
var Registry = []prometheus.Collector{
	ReassemblyBytesEmitted,
	ReassemblyConnectionsActive,
	BundleDiagnostics,
	BundleDropped,
	DispatchedMessages,
	PendingEffects,
	ChatRecords,
}

// MustRegister registers every collector against reg, panicking on
// duplicate registration the way prometheus.MustRegister does.
func MustRegister(reg prometheus.Registerer) {
	for _, c := range Registry {
		reg.MustRegister(c)
	}
}
