// Package metrics implements Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds only arprobe metrics, without Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	// ProbesTotal counts finished probes by outcome
	ProbesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "arprobe_probes_total",
			Help: "Total number of probes by result",
		},
		[]string{"result"},
	)

	// FramesReceivedTotal counts frames read from the raw socket
	FramesReceivedTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "arprobe_frames_received_total",
			Help: "Total number of frames received while waiting for a reply",
		},
	)

	// FramesDiscardedTotal counts frames rejected by the reply matcher
	FramesDiscardedTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "arprobe_frames_discarded_total",
			Help: "Total number of received frames discarded, by filter stage",
		},
		[]string{"stage"},
	)

	// ReplyLatencySeconds measures time from send to matching reply
	ReplyLatencySeconds = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arprobe_reply_latency_seconds",
			Help:    "Time between sending the request and receiving the matching reply",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
		},
	)
)

// Probe results
const (
	ResultMatched = "matched"
	ResultTimeout = "timeout"
	ResultError   = "error"
)

// WriteTextfile writes all arprobe metrics to path in the Prometheus text
// format, suitable for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
