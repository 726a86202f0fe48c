package slimproto

import "time"

// EventCode is the 4-character event carried in a STAT message.
type EventCode string

// Event codes recognised by the server.
const (
	EventConnect           EventCode = "STMc"
	EventDecoderReady      EventCode = "STMd"
	EventStreamEstablished EventCode = "STMe"
	EventFlushed           EventCode = "STMf"
	EventHeadersReceived   EventCode = "STMh"
	EventBufferThreshold   EventCode = "STMl"
	EventNotSupported      EventCode = "STMn"
	EventOutputUnderrun    EventCode = "STMo"
	EventPause             EventCode = "STMp"
	EventResume            EventCode = "STMr"
	EventTrackStarted      EventCode = "STMs"
	EventTimer             EventCode = "STMt"
	EventUnderrun          EventCode = "STMu"
)

// StatusData holds the counters reported to the server in STAT messages.
// The server requires these regularly; the session keeps one instance per
// connection and mutates it as bytes arrive and playback state changes.
type StatusData struct {
	CRLF                 uint8
	BufferSize           uint32
	Fullness             uint32
	BytesReceived        uint64
	SignalStrength       uint16
	Jiffies              time.Duration
	OutputBufferSize     uint32
	OutputBufferFullness uint32
	ElapsedSeconds       uint32
	Voltage              uint16
	ElapsedMilliseconds  uint32
	Timestamp            time.Duration
	ErrorCode            uint16
}

// SetBufferSize records the input buffer capacity reported to the server.
func (s *StatusData) SetBufferSize(size uint32) {
	s.BufferSize = size
}

// SetFullness records how many buffered bytes are waiting to be played.
func (s *StatusData) SetFullness(fullness uint32) {
	s.Fullness = fullness
}

// AddBytesReceived accumulates the stream byte counter, wrapping on overflow
// as the protocol expects.
func (s *StatusData) AddBytesReceived(n uint64) {
	s.BytesReceived += n
}

// SetTimestamp records the server timestamp to echo back, taken from the
// most recent status request.
func (s *StatusData) SetTimestamp(ts time.Duration) {
	s.Timestamp = ts
}

// MakeStatus builds a STAT message from the current counters.
func (s *StatusData) MakeStatus(event EventCode) *Stat {
	return &Stat{Event: event, Status: *s}
}
