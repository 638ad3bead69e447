package swrnet

import (
	"swrgateway/pkg/utils/binutil"
	"swrgateway/pkg/utils/sumutil"
)

// Frame is one on-wire unit. A logical response may span several frames;
// see Receiver for reassembly.
type Frame struct {
	Src     uint16
	Dst     uint16
	Ctl     Control
	Cnt     byte
	Cmd     Command
	Payload []byte
}

// BuildFrame encodes one outbound telegram. The source address is always
// the controller's.
func BuildFrame(dst uint16, cnt byte, cmd Command, ctl Control, payload []byte) []byte {
	l := byte(len(payload))
	buf := make([]byte, 0, len(payload)+frameOverhead+2)
	buf = append(buf, WakeByte, WakeByte, TelegramStart, l, l, TelegramStart)

	body := make([]byte, 0, headerLength+len(payload))
	body = binutil.AppendUint16(body, ControllerAddr)
	body = binutil.AppendUint16(body, dst)
	body = append(body, byte(ctl), cnt, byte(cmd))
	body = append(body, payload...)

	buf = append(buf, body...)
	buf = binutil.AppendUint16(buf, sumutil.CheckSum16(body))
	buf = append(buf, EndMarker)
	return buf
}

// DecodeFrame parses one telegram from the front of buf and returns the
// remaining bytes. The leading wake bytes are optional on receive.
func DecodeFrame(buf []byte) (*Frame, []byte, error) {
	for len(buf) > 0 && buf[0] == WakeByte {
		buf = buf[1:]
	}
	if len(buf) < 4 {
		return nil, buf, ErrFrameMalformed
	}
	if buf[0] != TelegramStart || buf[3] != TelegramStart {
		return nil, buf, ErrFrameMalformed
	}
	if buf[1] != buf[2] {
		return nil, buf, ErrFrameLengthMismatch
	}
	l := int(buf[1])
	total := frameOverhead + l
	if len(buf) < total {
		return nil, buf, ErrFrameMalformed
	}
	if buf[total-1] != EndMarker {
		return nil, buf, ErrFrameMalformed
	}

	body := buf[4 : 4+headerLength+l]
	crc := binutil.ParseUint16(buf[4+headerLength+l:])
	if crc != sumutil.CheckSum16(body) {
		return nil, buf, ErrFrameChecksum
	}

	f := &Frame{
		Src:     binutil.ParseUint16(body[0:]),
		Dst:     binutil.ParseUint16(body[2:]),
		Ctl:     Control(body[4]),
		Cnt:     body[5],
		Cmd:     Command(body[6]),
		Payload: append([]byte(nil), body[headerLength:]...),
	}
	return f, buf[total:], nil
}
