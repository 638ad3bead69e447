package swrnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swrgateway/pkg/utils/binutil"
	"swrgateway/pkg/utils/sumutil"
)

// testFrame encodes a frame with an arbitrary source address, the way an
// inverter would answer.
func testFrame(src, dst uint16, ctl Control, cnt byte, cmd Command, payload []byte) []byte {
	body := binutil.AppendUint16(nil, src)
	body = binutil.AppendUint16(body, dst)
	body = append(body, byte(ctl), cnt, byte(cmd))
	body = append(body, payload...)

	l := byte(len(payload))
	buf := []byte{WakeByte, WakeByte, TelegramStart, l, l, TelegramStart}
	buf = append(buf, body...)
	buf = binutil.AppendUint16(buf, sumutil.CheckSum16(body))
	return append(buf, EndMarker)
}

func TestBuildFrameNetStartBroadcast(t *testing.T) {
	got := BuildFrame(2, 0, CmdGetNetStart, ControlBroadcast, nil)
	want := []byte{
		0xAA, 0xAA, 0x68, 0x00, 0x00, 0x68,
		0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06,
		0x88, 0x00, 0x16,
	}
	assert.Equal(t, want, got)
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x42}
	raw := BuildFrame(7, 3, CmdGetData, ControlRequest, payload)

	f, rest, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, ControllerAddr, f.Src)
	assert.Equal(t, uint16(7), f.Dst)
	assert.Equal(t, ControlRequest, f.Ctl)
	assert.Equal(t, byte(3), f.Cnt)
	assert.Equal(t, CmdGetData, f.Cmd)
	assert.Equal(t, payload, f.Payload)
}

func TestDecodeFrameWithoutWakeBytes(t *testing.T) {
	raw := BuildFrame(2, 0, CmdGetNetStart, ControlBroadcast, nil)

	f, _, err := DecodeFrame(raw[2:])
	require.NoError(t, err)
	assert.Equal(t, uint16(2), f.Dst)
	assert.Equal(t, CmdGetNetStart, f.Cmd)
}

func TestDecodeFrameChecksumRejected(t *testing.T) {
	raw := BuildFrame(2, 0, CmdGetNetStart, ControlBroadcast, nil)
	raw[13] = 0x89 // crc_lo was 0x88

	_, _, err := DecodeFrame(raw)
	assert.Equal(t, ErrFrameChecksum, err)
}

func TestDecodeFrameLengthMismatch(t *testing.T) {
	raw := []byte{
		0xAA, 0xAA, 0x68, 0x02, 0x03, 0x68,
		0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06,
		0xAA, 0xBB, 0x3D, 0x01, 0x16,
	}
	_, _, err := DecodeFrame(raw)
	assert.Equal(t, ErrFrameLengthMismatch, err)
}

func TestDecodeFrameMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":           {},
		"only wake bytes": {0xAA, 0xAA},
		"bad start":       {0x69, 0x00, 0x00, 0x68, 0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06, 0x88, 0x00, 0x16},
		"truncated":       {0x68, 0x04, 0x04, 0x68, 0x00, 0x00},
		"bad end marker":  {0x68, 0x00, 0x00, 0x68, 0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06, 0x88, 0x00, 0x17},
	}
	for name, raw := range cases {
		_, _, err := DecodeFrame(raw)
		assert.Equal(t, ErrFrameMalformed, err, name)
	}
}

func TestDecodeFrameLeavesFollowingFrame(t *testing.T) {
	first := testFrame(5, 0, ControlResponse, 1, CmdGetCInfo, []byte{0x11})
	second := testFrame(5, 0, ControlResponse, 0, CmdGetCInfo, []byte{0x22})
	raw := append(append([]byte(nil), first...), second...)

	f1, rest, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11}, f1.Payload)

	f2, rest, err := DecodeFrame(rest)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x22}, f2.Payload)
	assert.Empty(t, rest)
}

func TestBuildFrameDuplicatedLength(t *testing.T) {
	for _, n := range []int{0, 1, 16, 255} {
		payload := make([]byte, n)
		raw := BuildFrame(1, 0, CmdGetData, ControlRequest, payload)
		assert.Equal(t, byte(n), raw[3])
		assert.Equal(t, byte(n), raw[4])
	}
}
