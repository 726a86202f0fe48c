package slimproto

import (
	"encoding/binary"
	"fmt"
)

// Encode serialises a client message into its wire body. The returned bytes
// exclude the tag and length header; framing is applied by the frame writer.
// Encoding is deterministic over valid messages.
func Encode(msg ClientMessage) ([]byte, error) {
	switch m := msg.(type) {
	case *Helo:
		return encodeHelo(m), nil
	case *Stat:
		return encodeStat(m)
	case *Bye:
		return []byte{m.Upgrade}, nil
	case *DeviceName:
		body := make([]byte, 0, 1+len(m.Name))
		body = append(body, 0)
		body = append(body, m.Name...)
		return body, nil
	default:
		return nil, fmt.Errorf("cannot encode message type %T", msg)
	}
}

func encodeHelo(m *Helo) []byte {
	body := make([]byte, 0, 36+len(m.Capabilities))
	body = append(body, m.DeviceID, m.Revision)
	body = append(body, m.MAC[:]...)
	body = append(body, m.UUID[:]...)
	body = binary.BigEndian.AppendUint16(body, m.WLANChannels)
	body = binary.BigEndian.AppendUint64(body, m.BytesReceived)
	body = append(body, m.Language[:]...)
	body = append(body, m.Capabilities...)
	return body
}

func encodeStat(m *Stat) ([]byte, error) {
	if len(m.Event) != TagSize {
		return nil, fmt.Errorf("stat event code must be %d bytes, got %q", TagSize, m.Event)
	}

	s := &m.Status
	body := make([]byte, 0, 53)
	body = append(body, m.Event...)
	body = append(body, s.CRLF)
	body = binary.BigEndian.AppendUint16(body, 0) // mas_initialized + mas_mode, unused
	body = binary.BigEndian.AppendUint32(body, s.BufferSize)
	body = binary.BigEndian.AppendUint32(body, s.Fullness)
	body = binary.BigEndian.AppendUint64(body, s.BytesReceived)
	body = binary.BigEndian.AppendUint16(body, s.SignalStrength)
	body = binary.BigEndian.AppendUint32(body, uint32(s.Jiffies.Milliseconds()))
	body = binary.BigEndian.AppendUint32(body, s.OutputBufferSize)
	body = binary.BigEndian.AppendUint32(body, s.OutputBufferFullness)
	body = binary.BigEndian.AppendUint32(body, s.ElapsedSeconds)
	body = binary.BigEndian.AppendUint16(body, s.Voltage)
	body = binary.BigEndian.AppendUint32(body, s.ElapsedMilliseconds)
	body = binary.BigEndian.AppendUint32(body, uint32(s.Timestamp.Milliseconds()))
	body = binary.BigEndian.AppendUint16(body, s.ErrorCode)
	return body, nil
}
