package slimproto

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"
)

// gainFactor converts the 16.16 fixed-point gain fields to float.
const gainFactor = 65536.0

// minStreamBody is the fixed portion of every strm command body.
const minStreamBody = 24

// Decode turns a frame tag and exactly its body bytes into a typed server
// message. Unknown tags yield ErrUnknownTag so callers can skip the frame
// without dropping the connection.
func Decode(tag string, body []byte) (ServerMessage, error) {
	switch tag {
	case TagStream:
		return decodeStream(body)
	case TagAudioOut:
		if len(body) < 2 {
			return nil, fmt.Errorf("aude: need 2 bytes, got %d: %w", len(body), ErrTruncatedBody)
		}
		return AudioEnable{SPDIF: body[0] != 0, DAC: body[1] != 0}, nil
	case TagGain:
		if len(body) < 18 {
			return nil, fmt.Errorf("audg: need 18 bytes, got %d: %w", len(body), ErrTruncatedBody)
		}
		left := float64(binary.BigEndian.Uint32(body[10:14])) / gainFactor
		right := float64(binary.BigEndian.Uint32(body[14:18])) / gainFactor
		return Gain{Left: left, Right: right}, nil
	case TagSetting:
		return decodeSetting(body)
	case TagServerMove:
		if len(body) < 4 {
			return nil, fmt.Errorf("serv: need 4 bytes, got %d: %w", len(body), ErrTruncatedBody)
		}
		msg := ChangeServer{IP: ipv4(body[:4])}
		if len(body) > 4 {
			msg.SyncGroupID = string(body[4:])
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("tag %q: %w", tag, ErrUnknownTag)
	}
}

func decodeStream(body []byte) (ServerMessage, error) {
	if len(body) < minStreamBody {
		return nil, fmt.Errorf("strm: need %d bytes, got %d: %w", minStreamBody, len(body), ErrTruncatedBody)
	}

	switch cmd := body[0]; cmd {
	case 't':
		ms := binary.BigEndian.Uint32(body[15:19])
		return StatusRequest{Timestamp: time.Duration(ms) * time.Millisecond}, nil
	case 's':
		return decodeStreamStart(body)
	case 'q':
		return Stop{}, nil
	case 'f':
		return Flush{}, nil
	case 'p':
		return Pause{Timestamp: binary.BigEndian.Uint32(body[15:19])}, nil
	case 'u':
		return Unpause{Timestamp: binary.BigEndian.Uint32(body[15:19])}, nil
	case 'a':
		return Skip{Interval: binary.BigEndian.Uint32(body[15:19])}, nil
	default:
		return nil, fmt.Errorf("tag %q command %q: %w", TagStream, cmd, ErrUnknownTag)
	}
}

func decodeStreamStart(body []byte) (ServerMessage, error) {
	msg := &Stream{}

	switch body[1] {
	case '0':
		msg.Autostart = AutostartNone
	case '1':
		msg.Autostart = AutostartAuto
	case '2':
		msg.Autostart = AutostartDirect
	case '3':
		msg.Autostart = AutostartAutoDirect
	default:
		return nil, streamField("autostart", body[1])
	}

	switch body[2] {
	case 'p':
		msg.Format = FormatPCM
	case 'm':
		msg.Format = FormatMP3
	case 'f':
		msg.Format = FormatFLAC
	case 'w':
		msg.Format = FormatWMA
	case 'o':
		msg.Format = FormatOgg
	case 'a':
		msg.Format = FormatAAC
	case 'l':
		msg.Format = FormatALAC
	default:
		return nil, streamField("format", body[2])
	}

	switch body[3] {
	case '0':
		msg.SampleSize = SampleSize8
	case '1':
		msg.SampleSize = SampleSize16
	case '2':
		msg.SampleSize = SampleSize20
	case '3':
		msg.SampleSize = SampleSize32
	case '?':
		msg.SampleSize = SelfDescribing
	default:
		return nil, streamField("pcm sample size", body[3])
	}

	switch body[4] {
	case '0':
		msg.SampleRate = 11000
	case '1':
		msg.SampleRate = 22000
	case '2':
		msg.SampleRate = 32000
	case '3':
		msg.SampleRate = 44100
	case '4':
		msg.SampleRate = 48000
	case '5':
		msg.SampleRate = 8000
	case '6':
		msg.SampleRate = 12000
	case '7':
		msg.SampleRate = 16000
	case '8':
		msg.SampleRate = 24000
	case '9':
		msg.SampleRate = 96000
	case '?':
		msg.SampleRate = SelfDescribing
	default:
		return nil, streamField("pcm sample rate", body[4])
	}

	switch body[5] {
	case '1':
		msg.Channels = ChannelsMono
	case '2':
		msg.Channels = ChannelsStereo
	case '?':
		msg.Channels = SelfDescribing
	default:
		return nil, streamField("pcm channels", body[5])
	}

	switch body[6] {
	case '0':
		msg.Endian = EndianBig
	case '1':
		msg.Endian = EndianLittle
	case '?':
		msg.Endian = SelfDescribing
	default:
		return nil, streamField("pcm endian", body[6])
	}

	msg.Threshold = uint32(body[7]) * 1024

	switch body[8] {
	case 0:
		msg.SPDIF = SPDIFAuto
	case 1:
		msg.SPDIF = SPDIFOn
	case 2:
		msg.SPDIF = SPDIFOff
	default:
		return nil, streamField("spdif enable", body[8])
	}

	msg.TransitionPeriod = time.Duration(body[9]) * time.Second

	switch body[10] {
	case '0':
		msg.TransitionType = TransitionNone
	case '1':
		msg.TransitionType = TransitionCrossfade
	case '2':
		msg.TransitionType = TransitionFadeIn
	case '3':
		msg.TransitionType = TransitionFadeOut
	case '4':
		msg.TransitionType = TransitionFadeInOut
	default:
		return nil, streamField("transition type", body[10])
	}

	msg.Flags = StreamFlags(body[11])
	msg.OutputThreshold = time.Duration(body[12]) * time.Millisecond
	// body[13] reserved
	msg.ReplayGain = float64(binary.BigEndian.Uint32(body[14:18])) / gainFactor
	msg.ServerPort = binary.BigEndian.Uint16(body[18:20])
	msg.ServerIP = ipv4(body[20:24])
	if len(body) > minStreamBody {
		msg.HTTPHeaders = string(body[minStreamBody:])
	}
	return msg, nil
}

func decodeSetting(body []byte) (ServerMessage, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("setd: empty body: %w", ErrTruncatedBody)
	}

	switch id := body[0]; id {
	case 0:
		if len(body) == 1 {
			return QueryName{}, nil
		}
		return SetName{Name: strings.TrimRight(string(body[1:]), "\x00")}, nil
	case 4:
		return DisableDAC{}, nil
	default:
		return nil, fmt.Errorf("tag %q id %d: %w", TagSetting, id, ErrUnknownTag)
	}
}

func streamField(field string, value byte) error {
	return fmt.Errorf("strm: bad %s 0x%02x: %w", field, value, ErrMalformedBody)
}

func ipv4(b []byte) net.IP {
	return net.IPv4(b[0], b[1], b[2], b[3])
}
