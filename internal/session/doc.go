// Package session implements the connection state machine of the protocol
// engine. One Engine drives one connection: it performs the handshake, emits
// heartbeat status reports, applies server playback commands and diverts
// stream bytes to the audio sink while the passthrough gate is open.
package session
