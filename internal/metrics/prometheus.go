package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the protocol engine.
type Metrics struct {
	// Frame metrics
	FramesRead    prometheus.Counter
	FramesWritten prometheus.Counter
	FrameErrors   prometheus.Counter

	// Codec metrics
	DecodeErrors *prometheus.CounterVec
	UnknownTags  prometheus.Counter

	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsClosed    prometheus.Counter
	HeartbeatsSent    prometheus.Counter
	HandshakeDuration prometheus.Histogram

	// Audio passthrough metrics
	AudioBytesForwarded prometheus.Counter
	GateOpenings        prometheus.Counter
}

// New creates and registers all engine metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		FramesRead: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_frames_read_total",
			Help: "Total number of complete frames read from the server",
		}),
		FramesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_frames_written_total",
			Help: "Total number of frames written to the server",
		}),
		FrameErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_frame_errors_total",
			Help: "Total number of fatal framing errors (oversize, desync)",
		}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "slimproto_decode_errors_total",
			Help: "Total number of message decode errors by kind",
		}, []string{"kind"}),
		UnknownTags: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_unknown_tags_total",
			Help: "Total number of frames skipped for an unrecognised tag",
		}),
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_sessions_closed_total",
			Help: "Total number of sessions closed",
		}),
		HeartbeatsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_heartbeats_sent_total",
			Help: "Total number of STAT heartbeat messages sent",
		}),
		HandshakeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "slimproto_handshake_duration_seconds",
			Help:    "Time from HELO to the first server frame",
			Buckets: prometheus.DefBuckets,
		}),
		AudioBytesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_audio_bytes_forwarded_total",
			Help: "Total number of audio bytes forwarded to the sink",
		}),
		GateOpenings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "slimproto_gate_openings_total",
			Help: "Total number of times the audio passthrough gate opened",
		}),
	}
}
