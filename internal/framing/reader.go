package framing

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/GeoffClements/slimproto/internal/slimproto"
)

// Frame-level errors. Both are unrecoverable for the connection: after an
// oversized or corrupt header there is no reliable way to find the next
// frame boundary.
var (
	// ErrFrameTooLarge means a frame declared a body longer than the
	// protocol maximum.
	ErrFrameTooLarge = errors.New("frame body exceeds protocol maximum")

	// ErrDesync means the frame header is corrupt and frame-boundary
	// alignment has been lost.
	ErrDesync = errors.New("protocol desync")
)

// Frame is one tag+length+body unit from the wire.
type Frame struct {
	Tag  string
	Body []byte
}

// Reader accumulates transport bytes and yields complete frames. It never
// consumes a partial frame: bytes stay buffered until the full header and
// body are available. A Reader is owned by exactly one connection.
type Reader struct {
	buf     []byte
	maxBody int
}

// NewReader returns a Reader enforcing the protocol's maximum body length.
func NewReader() *Reader {
	return &Reader{maxBody: slimproto.MaxBodyLen}
}

// Feed appends a chunk of transport bytes to the internal buffer.
func (r *Reader) Feed(p []byte) {
	r.buf = append(r.buf, p...)
}

// Next returns the next complete frame. ok is false when more bytes are
// needed. ErrFrameTooLarge and ErrDesync are fatal: the caller must close
// the connection and discard the Reader.
func (r *Reader) Next() (frame Frame, ok bool, err error) {
	if len(r.buf) < slimproto.HeaderSize {
		return Frame{}, false, nil
	}

	tag := r.buf[:slimproto.TagSize]
	for _, c := range tag {
		if c < 0x20 || c > 0x7e {
			return Frame{}, false, fmt.Errorf("non-ASCII tag byte 0x%02x: %w", c, ErrDesync)
		}
	}

	bodyLen := binary.BigEndian.Uint32(r.buf[slimproto.TagSize:slimproto.HeaderSize])
	if bodyLen > uint32(r.maxBody) {
		return Frame{}, false, fmt.Errorf("tag %q declares %d byte body (max %d): %w",
			tag, bodyLen, r.maxBody, ErrFrameTooLarge)
	}

	total := slimproto.HeaderSize + int(bodyLen)
	if len(r.buf) < total {
		return Frame{}, false, nil
	}

	body := make([]byte, bodyLen)
	copy(body, r.buf[slimproto.HeaderSize:total])
	r.buf = r.buf[total:]

	return Frame{Tag: string(tag), Body: body}, true, nil
}

// Buffered reports how many unconsumed bytes the Reader is holding.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

// TakeBuffered removes and returns all unconsumed bytes. The session uses
// this when the passthrough gate opens: bytes already read past the stream
// command belong to the audio payload, not to the next frame.
func (r *Reader) TakeBuffered() []byte {
	rest := r.buf
	r.buf = nil
	return rest
}
