package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/GeoffClements/slimproto/internal/clock"
	"github.com/GeoffClements/slimproto/internal/framing"
	"github.com/GeoffClements/slimproto/internal/metrics"
	"github.com/GeoffClements/slimproto/internal/slimproto"
	"github.com/GeoffClements/slimproto/internal/transport"
)

// Session-level errors.
var (
	// ErrHandshakeTimeout means the server never answered the HELO within
	// the configured timeout.
	ErrHandshakeTimeout = errors.New("handshake timeout")

	// ErrClosed is returned by Send and ResumeControl after the engine
	// has terminated.
	ErrClosed = errors.New("session closed")
)

// Phase is the connection lifecycle state.
type Phase int32

const (
	PhaseConnecting Phase = iota
	PhaseHandshaking
	PhaseEstablished
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseHandshaking:
		return "handshaking"
	case PhaseEstablished:
		return "established"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// PlaybackState is the nested playback sub-state while established.
type PlaybackState int32

const (
	PlaybackStopped PlaybackState = iota
	PlaybackBuffering
	PlaybackPlaying
	PlaybackPaused
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackBuffering:
		return "buffering"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return fmt.Sprintf("PlaybackState(%d)", int32(s))
	}
}

// AudioSink receives the bytes forwarded through the passthrough gate. The
// engine calls it only from its own goroutine and never buffers or decodes
// audio itself.
type AudioSink interface {
	// StreamStart announces a new stream with the format parameters from
	// the triggering server command.
	StreamStart(cmd *slimproto.Stream)

	// Write receives a run of audio payload bytes in wire order.
	Write(p []byte) (int, error)

	// StreamStop announces the end of the current stream.
	StreamStop()
}

// Config carries the per-connection parameters of an Engine.
type Config struct {
	// Device identity announced in the HELO message.
	DeviceID     uint8
	Revision     uint8
	MAC          [6]byte
	UUID         [16]byte
	Capabilities slimproto.Capabilities

	// HeartbeatInterval is the STAT cadence while established.
	// Defaults to 5 seconds.
	HeartbeatInterval time.Duration

	// HandshakeTimeout bounds the wait for the first server frame after
	// HELO. Defaults to 10 seconds.
	HandshakeTimeout time.Duration

	// ReadBufferSize is the transport read chunk size. Defaults to 8192.
	ReadBufferSize int

	// AudioWindow limits each passthrough window to this many bytes
	// (finite stream mode). Zero keeps the window open until a stop or
	// flush arrives (continuous mode).
	AudioWindow int64

	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Sink    AudioSink
}

// Engine is one connection's protocol state machine. It owns the frame
// reader, the writer and all session state exclusively; an Engine is used
// for exactly one Run and never reused.
type Engine struct {
	cfg    Config
	stream transport.Stream
	reader *framing.Reader
	writer *framing.Writer
	clk    clock.Clock
	logger *slog.Logger
	sink   AudioSink

	phase    atomic.Int32
	playback atomic.Int32

	// Owned by the run loop.
	status        slimproto.StatusData
	gate          gate
	currentStream *slimproto.Stream
	sinkActive    bool
	lastTag       string
	startTime     time.Time
	hsTimer       clock.Timer
	heartbeat     clock.Ticker

	msgs    chan slimproto.ServerMessage
	sendq   chan slimproto.ClientMessage
	resume  chan struct{}
	chunks  chan []byte
	readErr chan error
	done    chan struct{}
}

// New builds an Engine over an established transport stream. Run must be
// called to start the session.
func New(stream transport.Stream, cfg Config) *Engine {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 8192
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}

	e := &Engine{
		cfg:     cfg,
		stream:  stream,
		reader:  framing.NewReader(),
		writer:  framing.NewWriter(stream),
		clk:     cfg.Clock,
		logger:  cfg.Logger,
		sink:    cfg.Sink,
		msgs:    make(chan slimproto.ServerMessage, 32),
		sendq:   make(chan slimproto.ClientMessage),
		resume:  make(chan struct{}),
		chunks:  make(chan []byte),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	e.phase.Store(int32(PhaseConnecting))
	e.playback.Store(int32(PlaybackStopped))
	return e
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Playback returns the current playback sub-state.
func (e *Engine) Playback() PlaybackState {
	return PlaybackState(e.playback.Load())
}

// Messages returns the decoded server messages. The channel is closed when
// the session terminates.
func (e *Engine) Messages() <-chan slimproto.ServerMessage {
	return e.msgs
}

// Send queues an outbound client message. The write happens on the engine's
// goroutine so frames are never interleaved.
func (e *Engine) Send(msg slimproto.ClientMessage) error {
	select {
	case e.sendq <- msg:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// ResumeControl closes a continuous passthrough window from the caller's
// side channel, returning the connection to framed-message parsing.
func (e *Engine) ResumeControl() error {
	select {
	case e.resume <- struct{}{}:
		return nil
	case <-e.done:
		return ErrClosed
	}
}

// Run drives the session until the context is cancelled or a fatal error
// occurs. It sends the HELO, then loops reacting to transport bytes,
// heartbeat ticks and outbound requests. Run returns nil on deliberate
// cancellation and the terminal error otherwise; the Engine cannot be run
// again.
func (e *Engine) Run(ctx context.Context) error {
	if m := e.cfg.Metrics; m != nil {
		m.SessionsStarted.Inc()
	}
	e.startTime = e.clk.Now()
	e.setPhase(PhaseHandshaking)

	helo := &slimproto.Helo{
		DeviceID:     e.cfg.DeviceID,
		Revision:     e.cfg.Revision,
		MAC:          e.cfg.MAC,
		UUID:         e.cfg.UUID,
		Language:     [2]byte{'e', 'n'},
		Capabilities: e.cfg.Capabilities.String(),
	}
	if err := e.write(helo); err != nil {
		return e.close(err)
	}
	e.logger.Debug("handshake sent",
		slog.Int("device_id", int(e.cfg.DeviceID)),
		slog.String("capabilities", helo.Capabilities),
	)

	e.hsTimer = e.clk.NewTimer(e.cfg.HandshakeTimeout)
	go e.readPump()

	var terminal error

loop:
	for {
		var hsC, hbC <-chan time.Time
		if e.hsTimer != nil {
			hsC = e.hsTimer.C()
		}
		if e.heartbeat != nil {
			hbC = e.heartbeat.C()
		}

		select {
		case <-ctx.Done():
			// Best effort goodbye; the connection is going away anyway.
			_ = e.write(&slimproto.Bye{})
			terminal = ctx.Err()
			break loop

		case <-hsC:
			terminal = ErrHandshakeTimeout
			break loop

		case <-hbC:
			if err := e.sendStatus(slimproto.EventTimer); err != nil {
				terminal = err
				break loop
			}

		case msg := <-e.sendq:
			if err := e.write(msg); err != nil {
				terminal = err
				break loop
			}

		case <-e.resume:
			e.closeGate()

		case err := <-e.readErr:
			terminal = fmt.Errorf("transport: %w", err)
			break loop

		case chunk := <-e.chunks:
			if err := e.consume(chunk); err != nil {
				terminal = err
				break loop
			}
		}
	}

	return e.close(terminal)
}

// readPump turns blocking transport reads into an ordered chunk channel so
// the run loop can select over bytes and timers at once. The unbuffered
// channel gives natural backpressure: the transport is not read faster than
// the loop consumes.
func (e *Engine) readPump() {
	buf := make([]byte, e.cfg.ReadBufferSize)
	for {
		n, err := e.stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case e.chunks <- chunk:
			case <-e.done:
				return
			}
		}
		if err != nil {
			select {
			case e.readErr <- err:
			case <-e.done:
			}
			return
		}
	}
}

// consume routes one chunk of transport bytes: through the gate while a
// passthrough window is open, into the frame reader otherwise. The boundary
// is byte exact in both directions.
func (e *Engine) consume(data []byte) error {
	for {
		if e.gate.isOpen() {
			var err error
			data, err = e.forwardAudio(data)
			if err != nil {
				return err
			}
			if e.gate.isOpen() {
				return nil
			}
		}

		if len(data) > 0 {
			e.reader.Feed(data)
			data = nil
		}

		frame, ok, err := e.reader.Next()
		if err != nil {
			if m := e.cfg.Metrics; m != nil {
				m.FrameErrors.Inc()
			}
			return err
		}
		if !ok {
			return nil
		}
		if m := e.cfg.Metrics; m != nil {
			m.FramesRead.Inc()
		}

		e.lastTag = frame.Tag
		if e.Phase() == PhaseHandshaking {
			e.establish()
		}
		if err := e.dispatch(frame); err != nil {
			return err
		}

		if e.gate.isOpen() {
			// Bytes already buffered past the stream command are the
			// start of the audio payload, not the next frame.
			data = e.reader.TakeBuffered()
		}
	}
}

// establish moves from Handshaking to Established on the first complete
// server frame and starts the heartbeat.
func (e *Engine) establish() {
	if e.hsTimer != nil {
		e.hsTimer.Stop()
		e.hsTimer = nil
	}
	e.setPhase(PhaseEstablished)
	e.heartbeat = e.clk.NewTicker(e.cfg.HeartbeatInterval)

	if m := e.cfg.Metrics; m != nil {
		m.HandshakeDuration.Observe(e.clk.Now().Sub(e.startTime).Seconds())
	}
	e.logger.Info("session established",
		slog.Duration("handshake", e.clk.Now().Sub(e.startTime)),
		slog.Duration("heartbeat_interval", e.cfg.HeartbeatInterval),
	)
}

// dispatch decodes one frame and applies it to the state machine. Unknown
// tags and message-level decode errors are absorbed here: the frame boundary
// is intact, so the connection continues.
func (e *Engine) dispatch(frame framing.Frame) error {
	msg, err := slimproto.Decode(frame.Tag, frame.Body)
	if err != nil {
		switch {
		case errors.Is(err, slimproto.ErrUnknownTag):
			if m := e.cfg.Metrics; m != nil {
				m.UnknownTags.Inc()
			}
			e.logger.Debug("skipping unrecognised message",
				slog.String("tag", frame.Tag),
				slog.Int("body_len", len(frame.Body)),
			)
			return nil
		case errors.Is(err, slimproto.ErrMalformedBody), errors.Is(err, slimproto.ErrTruncatedBody):
			if m := e.cfg.Metrics; m != nil {
				m.DecodeErrors.WithLabelValues(decodeErrorKind(err)).Inc()
			}
			e.logger.Warn("dropping undecodable message",
				slog.String("tag", frame.Tag),
				slog.String("error", err.Error()),
			)
			return nil
		default:
			return err
		}
	}

	switch m := msg.(type) {
	case *slimproto.Stream:
		e.setPlayback(PlaybackBuffering)
		e.openGate(m)
		if err := e.sendStatus(slimproto.EventConnect); err != nil {
			return err
		}

	case slimproto.StatusRequest:
		e.status.SetTimestamp(m.Timestamp)
		if err := e.sendStatus(slimproto.EventTimer); err != nil {
			return err
		}

	case slimproto.Pause:
		if s := e.Playback(); s == PlaybackPlaying || s == PlaybackBuffering {
			e.setPlayback(PlaybackPaused)
			if err := e.sendStatus(slimproto.EventPause); err != nil {
				return err
			}
		}

	case slimproto.Unpause:
		if e.Playback() == PlaybackPaused {
			e.setPlayback(PlaybackPlaying)
			if err := e.sendStatus(slimproto.EventResume); err != nil {
				return err
			}
		}

	case slimproto.Stop:
		if err := e.stopPlayback(); err != nil {
			return err
		}

	case slimproto.Flush:
		if err := e.stopPlayback(); err != nil {
			return err
		}
	}

	e.notify(msg)
	return nil
}

// forwardAudio sends the audio prefix of data to the sink and returns the
// residue that belongs to framed parsing again. Exhausting a finite window
// closes the gate without dropping or reordering a byte.
func (e *Engine) forwardAudio(data []byte) ([]byte, error) {
	n := e.gate.take(len(data))
	if n > 0 {
		if _, err := e.sink.Write(data[:n]); err != nil {
			return nil, fmt.Errorf("audio sink: %w", err)
		}
		e.status.AddBytesReceived(uint64(n))
		if m := e.cfg.Metrics; m != nil {
			m.AudioBytesForwarded.Add(float64(n))
		}

		if e.Playback() == PlaybackBuffering &&
			e.currentStream != nil && e.currentStream.Autostart != slimproto.AutostartNone {
			e.setPlayback(PlaybackPlaying)
			if err := e.sendStatus(slimproto.EventTrackStarted); err != nil {
				return nil, err
			}
		}
	}

	if e.gate.exhausted() {
		e.closeGate()
	}
	return data[n:], nil
}

func (e *Engine) openGate(cmd *slimproto.Stream) {
	e.currentStream = cmd
	e.gate.openWindow(e.cfg.AudioWindow)
	e.sink.StreamStart(cmd)
	e.sinkActive = true

	if m := e.cfg.Metrics; m != nil {
		m.GateOpenings.Inc()
	}
	e.logger.Debug("passthrough gate opened",
		slog.String("format", cmd.Format.String()),
		slog.Int64("window", e.cfg.AudioWindow),
	)
}

func (e *Engine) closeGate() {
	if !e.gate.isOpen() && !e.sinkActive {
		return
	}
	e.gate.close()
	if e.sinkActive {
		e.sink.StreamStop()
		e.sinkActive = false
	}
	e.logger.Debug("passthrough gate closed")
}

func (e *Engine) stopPlayback() error {
	e.closeGate()
	e.currentStream = nil
	e.status.SetFullness(0)
	if e.Playback() != PlaybackStopped {
		e.setPlayback(PlaybackStopped)
		return e.sendStatus(slimproto.EventFlushed)
	}
	return nil
}

// sendStatus emits one STAT message with up-to-date counters. Both the
// heartbeat tick and state-changing events funnel through here.
func (e *Engine) sendStatus(event slimproto.EventCode) error {
	e.status.Jiffies = e.clk.Now().Sub(e.startTime)
	if err := e.write(e.status.MakeStatus(event)); err != nil {
		return err
	}
	if m := e.cfg.Metrics; m != nil {
		m.HeartbeatsSent.Inc()
	}
	return nil
}

func (e *Engine) write(msg slimproto.ClientMessage) error {
	if err := e.writer.WriteMessage(msg); err != nil {
		return err
	}
	if m := e.cfg.Metrics; m != nil {
		m.FramesWritten.Inc()
	}
	return nil
}

func (e *Engine) notify(msg slimproto.ServerMessage) {
	select {
	case e.msgs <- msg:
	default:
		e.logger.Warn("message channel full, dropping server message",
			slog.String("type", fmt.Sprintf("%T", msg)),
		)
	}
}

// close tears the session down exactly once and shapes the terminal error.
// Deliberate cancellation is a clean shutdown, not a failure.
func (e *Engine) close(cause error) error {
	failPhase := e.Phase()
	e.setPhase(PhaseClosing)

	close(e.done)
	e.closeGate()
	if e.heartbeat != nil {
		e.heartbeat.Stop()
		e.heartbeat = nil
	}
	if e.hsTimer != nil {
		e.hsTimer.Stop()
		e.hsTimer = nil
	}
	if err := e.stream.Close(); err != nil {
		e.logger.Debug("transport close", slog.String("error", err.Error()))
	}

	e.setPhase(PhaseClosed)
	close(e.msgs)
	if m := e.cfg.Metrics; m != nil {
		m.SessionsClosed.Inc()
	}

	if cause == nil || errors.Is(cause, context.Canceled) {
		e.logger.Info("session closed")
		return nil
	}

	err := fmt.Errorf("session failed in phase %s (last tag %q): %w", failPhase, e.lastTag, cause)
	e.logger.Error("session failed",
		slog.String("phase", failPhase.String()),
		slog.String("last_tag", e.lastTag),
		slog.String("error", cause.Error()),
	)
	return err
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
}

func (e *Engine) setPlayback(s PlaybackState) {
	e.playback.Store(int32(s))
	e.logger.Debug("playback state changed", slog.String("state", s.String()))
}

func decodeErrorKind(err error) string {
	switch {
	case errors.Is(err, slimproto.ErrMalformedBody):
		return "malformed"
	case errors.Is(err, slimproto.ErrTruncatedBody):
		return "truncated"
	default:
		return "other"
	}
}

// nopSink drops forwarded audio. Used when the caller supplies no sink.
type nopSink struct{}

func (nopSink) StreamStart(*slimproto.Stream) {}
func (nopSink) Write(p []byte) (int, error)   { return len(p), nil }
func (nopSink) StreamStop()                   {}
