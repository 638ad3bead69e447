package swrnet

import (
	"errors"
	"time"
)

/**
SWR-NET telegram layout

AA AA | 68 | L | L | 68 | src_lo src_hi | dst_lo dst_hi | ctl | pkt | cmd | payload(L) | crc_lo crc_hi | 16

L        user payload length, repeated for error detection
crc      unsigned 16 bit sum of src_lo..payload
pkt      countdown fragment counter, zero marks the final fragment
*/

const (
	WakeByte      byte = 0xAA
	TelegramStart byte = 0x68
	EndMarker     byte = 0x16

	// frame bytes outside the user payload: 68 L L 68 + header(7) + crc(2) + 16
	frameOverhead = 14
	headerLength  = 7

	// ControllerAddr is the bus address of the polling side. Inverters
	// are assigned nonzero addresses by their firmware.
	ControllerAddr uint16 = 0
)

type Command byte

const (
	CmdGetNetStart Command = 6
	CmdGetCInfo    Command = 9
	CmdSynOnline   Command = 10
	CmdGetData     Command = 11
	// CmdSetData is documented but intentionally never issued: the poller
	// observes the plant, it does not control it.
	CmdSetData  Command = 12
	CmdPDelimit Command = 40
)

var CommandToString = map[Command]string{
	CmdGetNetStart: "GET_NET_START",
	CmdGetCInfo:    "GET_CINFO",
	CmdSynOnline:   "SYN_ONLINE",
	CmdGetData:     "GET_DATA",
	CmdSetData:     "SET_DATA",
	CmdPDelimit:    "PDELIMIT",
}

// Control classifies a telegram. The raw byte only appears inside the
// codec; everywhere else the enum is used.
type Control byte

const (
	ControlRequest   Control = 0
	ControlResponse  Control = 64
	ControlBroadcast Control = 128
)

var ControlToString = map[Control]string{
	ControlRequest:   "request",
	ControlResponse:  "response",
	ControlBroadcast: "broadcast",
}

const (
	// TimeoutLong bounds the wait for the first byte of a response.
	TimeoutLong = 5 * time.Second
	// TimeoutShort is the inter-byte quiet window closing one read. The
	// 1200 baud link interleaves fragments with gaps and carries no
	// session-layer length prefix.
	TimeoutShort = 500 * time.Millisecond
	// SynSettleDelay is the pause after a SYN_ONLINE broadcast. Without
	// it the first channel of the first device does not answer.
	SynSettleDelay = 5 * time.Second
)

var ErrFrameMalformed = errors.New("Swrnet frame structure malformed")
var ErrFrameLengthMismatch = errors.New("Swrnet frame duplicated length bytes differ")
var ErrFrameChecksum = errors.New("Swrnet frame checksum mismatch")
var ErrFragmentInconsistent = errors.New("Swrnet fragment header differs from accumulated response")
var ErrNoResponse = errors.New("Swrnet no response before timeout")
var ErrChannelUnknownType = errors.New("Swrnet channel record has unknown primary type")
var ErrChannelMalformed = errors.New("Swrnet channel record truncated")
var ErrSampleMalformed = errors.New("Swrnet sample payload truncated")
var ErrNoDeviceFound = errors.New("Swrnet no device answered discovery")
