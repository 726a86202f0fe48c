package framing

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/GeoffClements/slimproto/internal/slimproto"
)

// Writer encodes client messages and writes each one as a single frame.
// The mutex enforces single-writer discipline: a frame is never interleaved
// with another frame's bytes on the same connection.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps the outbound half of the connection.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage encodes msg and writes tag, length header and body with one
// Write call.
func (w *Writer) WriteMessage(msg slimproto.ClientMessage) error {
	body, err := slimproto.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Tag(), err)
	}
	return w.WriteFrame(msg.Tag(), body)
}

// WriteFrame writes one raw frame. The tag must be exactly 4 ASCII bytes.
func (w *Writer) WriteFrame(tag string, body []byte) error {
	if len(tag) != slimproto.TagSize {
		return fmt.Errorf("tag %q must be %d bytes", tag, slimproto.TagSize)
	}
	if len(body) > slimproto.MaxBodyLen {
		return fmt.Errorf("tag %q body is %d bytes (max %d): %w",
			tag, len(body), slimproto.MaxBodyLen, ErrFrameTooLarge)
	}

	frame := make([]byte, 0, slimproto.HeaderSize+len(body))
	frame = append(frame, tag...)
	frame = binary.BigEndian.AppendUint32(frame, uint32(len(body)))
	frame = append(frame, body...)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("write frame %s: %w", tag, err)
	}
	return nil
}
