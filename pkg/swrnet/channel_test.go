package swrnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swrgateway/pkg/utils/binutil"
)

func pad(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func recordHead(idx byte, kind ChannelKind, flags byte, format, access uint16, name string) []byte {
	out := []byte{idx, byte(kind), flags}
	out = binutil.AppendUint16(out, format)
	out = binutil.AppendUint16(out, access)
	return append(out, pad(name, 16)...)
}

func analogRecord(idx byte, name, unit string, gain, offset float32) []byte {
	out := recordHead(idx, Analog, 3, 0, 0, name)
	out = append(out, pad(unit, 8)...)
	gb := make([]byte, 8)
	binutil.WriteFloat32(gb[0:], gain)
	binutil.WriteFloat32(gb[4:], offset)
	return append(out, gb...)
}

func counterRecord(idx byte, name, unit string, gain float32) []byte {
	out := recordHead(idx, Counter, 0, 0, 0, name)
	out = append(out, pad(unit, 8)...)
	gb := make([]byte, 4)
	binutil.WriteFloat32(gb, gain)
	return append(out, gb...)
}

func digitalRecord(idx byte, name, low, high string) []byte {
	out := recordHead(idx, Digital, 0, 0, 0, name)
	out = append(out, pad(low, 16)...)
	return append(out, pad(high, 16)...)
}

func statusRecord(idx byte, name string, bitmap []byte) []byte {
	out := recordHead(idx, Status, 0, 0, 0, name)
	out = binutil.AppendUint16(out, uint16(len(bitmap)))
	return append(out, bitmap...)
}

func TestDecodeChannelsCatalogue(t *testing.T) {
	payload := analogRecord(1, "Pac", "W", 0.5, 1.0)
	payload = append(payload, counterRecord(2, "E-Total", "kWh", 0.001)...)
	payload = append(payload, digitalRecord(3, "Relais", "offen", "zu")...)
	payload = append(payload, statusRecord(4, "Fehler", []byte{0x00, 0x01, 0x02})...)

	catalogue, order, err := DecodeChannels(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pac", "E-Total", "Relais", "Fehler"}, order)
	require.Len(t, catalogue, 4)

	pac := catalogue["Pac"]
	assert.Equal(t, Analog, pac.Kind)
	assert.Equal(t, byte(1), pac.Index)
	assert.Equal(t, "W", pac.Unit)
	assert.Equal(t, float32(0.5), pac.Gain)
	assert.Equal(t, float32(1.0), pac.Offset)

	etotal := catalogue["E-Total"]
	assert.Equal(t, Counter, etotal.Kind)
	assert.Equal(t, "kWh", etotal.Unit)
	assert.Equal(t, float32(0.001), etotal.Gain)
	assert.Zero(t, etotal.Offset)

	relais := catalogue["Relais"]
	assert.Equal(t, Digital, relais.Kind)
	assert.Equal(t, "offen", relais.TextLow)
	assert.Equal(t, "zu", relais.TextHigh)

	fehler := catalogue["Fehler"]
	assert.Equal(t, Status, fehler.Kind)
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, fehler.Status)
}

func TestDecodeChannelsTrimsPadding(t *testing.T) {
	// names and units arrive NUL padded to their field width
	raw := analogRecord(1, "Vpv", "V\x00\x00", 1, 0)
	catalogue, _, err := DecodeChannels(raw)
	require.NoError(t, err)
	ch, ok := catalogue["Vpv"]
	require.True(t, ok)
	assert.Equal(t, "Vpv", ch.Name)
	assert.Equal(t, "V", ch.Unit)
}

func TestDecodeChannelsUnknownType(t *testing.T) {
	raw := recordHead(1, ChannelKind(3), 0, 0, 0, "Broken")
	raw = append(raw, make([]byte, 16)...)

	_, _, err := DecodeChannels(raw)
	assert.Equal(t, ErrChannelUnknownType, err)
}

func TestDecodeChannelsTruncated(t *testing.T) {
	raw := analogRecord(1, "Pac", "W", 0.5, 0)
	_, _, err := DecodeChannels(raw[:len(raw)-2])
	assert.Equal(t, ErrChannelMalformed, err)
}

func TestDecodeChannelsDuplicateNameKeepsLast(t *testing.T) {
	payload := analogRecord(1, "Pac", "W", 1, 0)
	payload = append(payload, analogRecord(2, "Pac", "W", 2, 0)...)

	catalogue, order, err := DecodeChannels(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pac"}, order)
	assert.Equal(t, byte(2), catalogue["Pac"].Index)
}
