package swrnet

import (
	"k8s.io/klog/v2"

	"swrgateway/pkg/utils/binutil"
)

// Sample is one measurement captured during a poll. Raw carries the wire
// value before scaling; Value the scaled reading for analog and counter
// channels. Digital channels report the text pair, status channels the
// raw bitmap.
type Sample struct {
	Addr    uint16
	Channel string

	Raw   uint32
	Value float64

	TextLow  string
	TextHigh string
	Status   []byte

	DataSets  uint16
	Since     uint32
	TimeBasis uint32
}

/**
GET_DATA payload

type1:1 type2:1 channel_idx:1 data_sets:2LE since:4LE time_basis:4LE
  analog   value:2LE  (unsigned; scaled raw*gain+offset)
  counter  value:4LE  (scaled raw*gain)
  digital  text_low:16 text_high:16
  status   value:4
*/
const sampleHead = 13

// DecodeSample parses a GET_DATA payload against the descriptor the
// request referenced. Bytes beyond the first record are permitted and
// ignored.
func DecodeSample(payload []byte, ch *Channel) (*Sample, error) {
	if len(payload) < sampleHead {
		return nil, ErrSampleMalformed
	}
	if ChannelKind(payload[0]) != ch.Kind || payload[2] != ch.Index {
		klog.V(3).InfoS("Sample header differs from requested channel",
			"channel", ch.Name, "type", payload[0], "index", payload[2])
	}
	s := &Sample{
		Channel:   ch.Name,
		DataSets:  binutil.ParseUint16(payload[3:]),
		Since:     binutil.ParseUint32(payload[5:]),
		TimeBasis: binutil.ParseUint32(payload[9:]),
	}
	body := payload[sampleHead:]

	switch ch.Kind {
	case Analog:
		if len(body) < 2 {
			return nil, ErrSampleMalformed
		}
		// the raw analog word is decoded unsigned, even for channels that
		// can go negative; ch.Format is retained but not consulted here
		s.Raw = uint32(binutil.ParseUint16(body))
		s.Value = float64(s.Raw)*float64(ch.Gain) + float64(ch.Offset)
	case Counter:
		if len(body) < 4 {
			return nil, ErrSampleMalformed
		}
		s.Raw = binutil.ParseUint32(body)
		s.Value = float64(s.Raw) * float64(ch.Gain)
	case Digital:
		if len(body) < 32 {
			return nil, ErrSampleMalformed
		}
		s.TextLow = trimPadded(body[0:16])
		s.TextHigh = trimPadded(body[16:32])
	case Status:
		if len(body) < 4 {
			return nil, ErrSampleMalformed
		}
		s.Status = append([]byte(nil), body[0:4]...)
	default:
		return nil, ErrChannelUnknownType
	}
	return s, nil
}
