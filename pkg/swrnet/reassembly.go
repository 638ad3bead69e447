package swrnet

import (
	"time"

	"k8s.io/klog/v2"

	"swrgateway/pkg/transport"
)

// Response is the logical result of one command, reassembled from one or
// more frames sharing src/dst/ctl/cmd.
type Response struct {
	Src     uint16
	Dst     uint16
	Ctl     Control
	Cmd     Command
	Payload []byte
}

type reassembler struct {
	resp    *Response
	started bool
	lastCnt byte
}

func (r *reassembler) feed(f *Frame) (bool, error) {
	if !r.started {
		r.resp = &Response{
			Src:     f.Src,
			Dst:     f.Dst,
			Ctl:     f.Ctl,
			Cmd:     f.Cmd,
			Payload: append([]byte(nil), f.Payload...),
		}
		r.started = true
		r.lastCnt = f.Cnt
		return f.Cnt == 0, nil
	}
	if f.Src != r.resp.Src || f.Dst != r.resp.Dst || f.Ctl != r.resp.Ctl || f.Cmd != r.resp.Cmd {
		klog.V(2).InfoS("Fragment header differs from pending response",
			"src", f.Src, "pendingSrc", r.resp.Src, "cmd", f.Cmd, "pendingCmd", r.resp.Cmd)
		return false, ErrFragmentInconsistent
	}
	if f.Cnt >= r.lastCnt {
		// the counter counts down to zero; a jump up means lost frames
		klog.V(3).InfoS("Packet counter not decreasing", "cnt", f.Cnt, "last", r.lastCnt)
	}
	r.resp.Payload = append(r.resp.Payload, f.Payload...)
	r.lastCnt = f.Cnt
	return f.Cnt == 0, nil
}

// Receiver drains the transport into frames and reassembles fragmented
// responses. One instance owns the link's read side; leftover bytes from
// a burst carrying more than one frame survive across Next calls.
type Receiver struct {
	transport transport.Transport
	long      time.Duration
	quiet     time.Duration
	buf       []byte
}

func NewReceiver(t transport.Transport) *Receiver {
	return &Receiver{transport: t, long: TimeoutLong, quiet: TimeoutShort}
}

// Next blocks until one complete logical response has been reassembled.
// ErrNoResponse reports a link gone quiet, whether or not fragments of an
// unfinished response had already arrived.
func (rx *Receiver) Next() (*Response, error) {
	ra := &reassembler{}
	for {
		for len(rx.buf) > 0 {
			f, rest, err := DecodeFrame(rx.buf)
			if err != nil {
				// a damaged frame is treated as missing; drop the burst
				// and let the timeout decide
				klog.V(2).InfoS("Discarded undecodable bytes", "count", len(rx.buf), "err", err)
				rx.buf = nil
				break
			}
			rx.buf = rest
			done, err := ra.feed(f)
			if err != nil {
				return nil, err
			}
			if done {
				return ra.resp, nil
			}
		}
		data, err := rx.transport.ReadUntilQuiet(rx.long, rx.quiet)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, ErrNoResponse
		}
		rx.buf = append(rx.buf, data...)
	}
}
