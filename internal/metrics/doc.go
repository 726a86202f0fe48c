// Package metrics defines the Prometheus instrumentation for the protocol
// engine: frame and codec counters, heartbeat activity and audio passthrough
// volume.
package metrics
