package slimproto

import (
	"fmt"
	"net"
	"time"
)

// SlimProto wire constants.
const (
	// DefaultPort is the TCP port the Slim server listens on.
	DefaultPort = 3483

	// TagSize is the size of the ASCII message tag.
	TagSize = 4

	// HeaderSize is tag plus big-endian uint32 body length.
	HeaderSize = TagSize + 4

	// MaxBodyLen bounds the declared body length of a single frame.
	// Larger declared lengths are treated as protocol corruption.
	MaxBodyLen = 8192
)

// Client (device to server) message tags.
const (
	TagHelo = "HELO"
	TagStat = "STAT"
	TagBye  = "BYE!"
	TagSetd = "SETD"
)

// Server (to device) message tags.
const (
	TagStream     = "strm"
	TagAudioOut   = "aude"
	TagGain       = "audg"
	TagSetting    = "setd"
	TagServerMove = "serv"
)

// ClientMessage is a message sent from the device to the server.
type ClientMessage interface {
	// Tag returns the 4-byte ASCII wire tag of the message.
	Tag() string
}

// ServerMessage is a decoded command or request received from the server.
type ServerMessage interface {
	serverMessage()
}

// Helo announces the device to the server. It is the only message the device
// sends unprompted and must be the first message on a new connection.
type Helo struct {
	DeviceID      uint8
	Revision      uint8
	MAC           [6]byte
	UUID          [16]byte
	WLANChannels  uint16
	BytesReceived uint64
	Language      [2]byte
	Capabilities  string
}

func (Helo) Tag() string { return TagHelo }

// Stat is the periodic status report the server requires from the device.
type Stat struct {
	// Event is the 4-character event code, e.g. EventTimer for the
	// heartbeat tick.
	Event  EventCode
	Status StatusData
}

func (Stat) Tag() string { return TagStat }

// Bye tells the server the device is disconnecting. Upgrade is non-zero when
// the device is going down for a firmware upgrade.
type Bye struct {
	Upgrade uint8
}

func (Bye) Tag() string { return TagBye }

// DeviceName is the reply to a name query from the server.
type DeviceName struct {
	Name string
}

func (DeviceName) Tag() string { return TagSetd }

// Stream is the strm 's' command: start streaming with the given parameters.
type Stream struct {
	Autostart        Autostart
	Format           Format
	SampleSize       PCMSampleSize
	SampleRate       PCMSampleRate
	Channels         PCMChannels
	Endian           PCMEndian
	Threshold        uint32 // input buffer bytes before playback starts
	SPDIF            SPDIFEnable
	TransitionPeriod time.Duration
	TransitionType   TransitionType
	Flags            StreamFlags
	OutputThreshold  time.Duration
	ReplayGain       float64
	ServerPort       uint16
	ServerIP         net.IP
	HTTPHeaders      string
}

func (*Stream) serverMessage() {}

// StatusRequest is the strm 't' command: the server wants an immediate status
// report echoing its timestamp.
type StatusRequest struct {
	Timestamp time.Duration
}

func (StatusRequest) serverMessage() {}

// Pause is the strm 'p' command. A zero timestamp means pause immediately.
type Pause struct {
	Timestamp uint32
}

func (Pause) serverMessage() {}

// Unpause is the strm 'u' command.
type Unpause struct {
	Timestamp uint32
}

func (Unpause) serverMessage() {}

// Stop is the strm 'q' command: stop playback and discard buffered audio.
type Stop struct{}

func (Stop) serverMessage() {}

// Flush is the strm 'f' command: discard buffered audio but keep state.
type Flush struct{}

func (Flush) serverMessage() {}

// Skip is the strm 'a' command: skip ahead the given number of milliseconds.
type Skip struct {
	Interval uint32
}

func (Skip) serverMessage() {}

// AudioEnable is the aude message: enable or disable the audio outputs.
type AudioEnable struct {
	SPDIF bool
	DAC   bool
}

func (AudioEnable) serverMessage() {}

// Gain is the audg message carrying the left and right channel gains.
type Gain struct {
	Left  float64
	Right float64
}

func (Gain) serverMessage() {}

// QueryName asks the device to report its name with a DeviceName message.
type QueryName struct{}

func (QueryName) serverMessage() {}

// SetName tells the device to adopt a new name.
type SetName struct {
	Name string
}

func (SetName) serverMessage() {}

// DisableDAC is the setd id 4 message.
type DisableDAC struct{}

func (DisableDAC) serverMessage() {}

// ChangeServer asks the device to drop this connection and reconnect to
// another server. Reconnection is caller policy, not handled by the engine.
type ChangeServer struct {
	IP          net.IP
	SyncGroupID string
}

func (ChangeServer) serverMessage() {}

// Autostart controls whether playback starts without an explicit unpause.
type Autostart uint8

const (
	AutostartNone Autostart = iota
	AutostartAuto
	AutostartDirect
	AutostartAutoDirect
)

// Format identifies the audio codec of a stream.
type Format uint8

const (
	FormatPCM Format = iota
	FormatMP3
	FormatFLAC
	FormatWMA
	FormatOgg
	FormatAAC
	FormatALAC
)

func (f Format) String() string {
	switch f {
	case FormatPCM:
		return "pcm"
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	case FormatWMA:
		return "wma"
	case FormatOgg:
		return "ogg"
	case FormatAAC:
		return "aac"
	case FormatALAC:
		return "alac"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// SelfDescribing marks PCM parameters carried in the stream itself rather
// than the strm command.
const SelfDescribing = 0xFF

// PCMSampleSize is the sample width in bits, or SelfDescribing.
type PCMSampleSize uint8

const (
	SampleSize8  PCMSampleSize = 8
	SampleSize16 PCMSampleSize = 16
	SampleSize20 PCMSampleSize = 20
	SampleSize32 PCMSampleSize = 32
)

// PCMSampleRate is the sample rate in Hz, or SelfDescribing.
type PCMSampleRate uint32

// PCMChannels is the channel count, or SelfDescribing.
type PCMChannels uint8

const (
	ChannelsMono   PCMChannels = 1
	ChannelsStereo PCMChannels = 2
)

// PCMEndian is the byte order of PCM samples.
type PCMEndian uint8

const (
	EndianBig PCMEndian = iota
	EndianLittle
)

// SPDIFEnable controls the S/PDIF output for the stream.
type SPDIFEnable uint8

const (
	SPDIFAuto SPDIFEnable = iota
	SPDIFOn
	SPDIFOff
)

// TransitionType selects the fade applied between tracks.
type TransitionType uint8

const (
	TransitionNone TransitionType = iota
	TransitionCrossfade
	TransitionFadeIn
	TransitionFadeOut
	TransitionFadeInOut
)

// StreamFlags is the bit-packed option field of the strm 's' command.
type StreamFlags uint8

const (
	FlagInfiniteLoop     StreamFlags = 0x80
	FlagNoRestartDecoder StreamFlags = 0x40
	FlagInvertLeft       StreamFlags = 0x01
	FlagInvertRight      StreamFlags = 0x02
)

// String returns a human-readable summary of the stream command.
func (s *Stream) String() string {
	return fmt.Sprintf("Stream{Format:%s, Rate:%d, Channels:%d, Threshold:%d, Server:%s:%d}",
		s.Format, uint32(s.SampleRate), uint8(s.Channels), s.Threshold, s.ServerIP, s.ServerPort)
}
