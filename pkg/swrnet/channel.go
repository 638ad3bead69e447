package swrnet

import (
	"strings"

	"k8s.io/klog/v2"

	"swrgateway/pkg/utils/binutil"
)

type ChannelKind byte

const (
	Analog  ChannelKind = 1
	Digital ChannelKind = 2
	Counter ChannelKind = 4
	Status  ChannelKind = 8
)

var ChannelKindToString = map[ChannelKind]string{
	Analog:  "analog",
	Digital: "digital",
	Counter: "counter",
	Status:  "status",
}

// Channel is one measurement variable advertised by a device. Only the
// fields selected by Kind are populated.
type Channel struct {
	Index  byte        `json:"index"`
	Kind   ChannelKind `json:"kind"`
	Flags  byte        `json:"flags"`
	Format uint16      `json:"format"`
	Access uint16      `json:"access"`
	Name   string      `json:"name"`

	Unit   string  `json:"unit,omitempty"`
	Gain   float32 `json:"gain,omitempty"`
	Offset float32 `json:"offset,omitempty"`

	TextLow  string `json:"textLow,omitempty"`
	TextHigh string `json:"textHigh,omitempty"`

	Status []byte `json:"status,omitempty"`
}

/**
CINFO record grammar, repeated until the payload is exhausted

index:1 type1:1 type2:1 format:2LE access:2LE name:16
  type1=1 analog   unit:8 gain:f32LE offset:f32LE
  type1=2 digital  text_low:16 text_high:16
  type1=4 counter  unit:8 gain:f32LE
  type1=8 status   size:2LE status:size
*/
const channelRecordHead = 23

// DecodeChannels parses a GET_CINFO payload into the device's channel
// catalogue. Names are canonicalized (trailing whitespace and NULs
// stripped) once here; every later lookup uses the canonical form.
func DecodeChannels(payload []byte) (map[string]*Channel, []string, error) {
	catalogue := make(map[string]*Channel)
	order := make([]string, 0)
	rest := payload
	for len(rest) > 0 {
		ch, r, err := decodeChannel(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r
		if _, exist := catalogue[ch.Name]; exist {
			klog.V(2).InfoS("Duplicate channel name in catalogue", "name", ch.Name)
		} else {
			order = append(order, ch.Name)
		}
		catalogue[ch.Name] = ch
	}
	return catalogue, order, nil
}

func decodeChannel(rest []byte) (*Channel, []byte, error) {
	if len(rest) < channelRecordHead {
		return nil, nil, ErrChannelMalformed
	}
	ch := &Channel{
		Index:  rest[0],
		Kind:   ChannelKind(rest[1]),
		Flags:  rest[2],
		Format: binutil.ParseUint16(rest[3:]),
		Access: binutil.ParseUint16(rest[5:]),
		Name:   trimPadded(rest[7:23]),
	}
	rest = rest[channelRecordHead:]

	switch ch.Kind {
	case Analog:
		if len(rest) < 16 {
			return nil, nil, ErrChannelMalformed
		}
		ch.Unit = trimPadded(rest[0:8])
		ch.Gain = binutil.ParseFloat32(rest[8:])
		ch.Offset = binutil.ParseFloat32(rest[12:])
		rest = rest[16:]
	case Digital:
		if len(rest) < 32 {
			return nil, nil, ErrChannelMalformed
		}
		ch.TextLow = trimPadded(rest[0:16])
		ch.TextHigh = trimPadded(rest[16:32])
		rest = rest[32:]
	case Counter:
		if len(rest) < 12 {
			return nil, nil, ErrChannelMalformed
		}
		ch.Unit = trimPadded(rest[0:8])
		ch.Gain = binutil.ParseFloat32(rest[8:])
		rest = rest[12:]
	case Status:
		if len(rest) < 2 {
			return nil, nil, ErrChannelMalformed
		}
		size := int(binutil.ParseUint16(rest))
		if len(rest) < 2+size {
			return nil, nil, ErrChannelMalformed
		}
		ch.Status = append([]byte(nil), rest[2:2+size]...)
		rest = rest[2+size:]
	default:
		klog.V(2).InfoS("Unknown channel primary type", "type", byte(ch.Kind), "index", ch.Index)
		return nil, nil, ErrChannelUnknownType
	}
	return ch, rest, nil
}

func trimPadded(b []byte) string {
	return strings.TrimRight(string(b), " \t\x00")
}
