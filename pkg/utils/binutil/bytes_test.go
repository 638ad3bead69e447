package binutil

import (
	"testing"
)

func TestParseUint16(t *testing.T) {
	if v := ParseUint16([]byte{0xEB, 0x00}); v != 235 {
		t.Errorf("actual %v, expect 235", v)
	}
	if v := ParseUint16([]byte{0x00, 0x80}); v != 32768 {
		t.Errorf("actual %v, expect 32768", v)
	}
}

func TestParseUint32(t *testing.T) {
	if v := ParseUint32([]byte{0x10, 0x27, 0x00, 0x00}); v != 10000 {
		t.Errorf("actual %v, expect 10000", v)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	b16 := make([]byte, 2)
	WriteUint16(b16, 0x88AB)
	if v := ParseUint16(b16); v != 0x88AB {
		t.Errorf("actual %v, expect %v", v, 0x88AB)
	}

	b32 := make([]byte, 4)
	WriteUint32(b32, 1234567890)
	if v := ParseUint32(b32); v != 1234567890 {
		t.Errorf("actual %v, expect %v", v, 1234567890)
	}
}

func TestParseFloat32(t *testing.T) {
	b := make([]byte, 4)
	WriteFloat32(b, 0.1)
	v := ParseFloat32(b)
	if v != 0.1 {
		t.Errorf("actual %v, expect 0.1", v)
	}
	// the f32 nearest one tenth
	if float64(v) != 0.10000000149011612 {
		t.Errorf("actual %v, expect 0.10000000149011612", float64(v))
	}
}

func TestAppendHelpers(t *testing.T) {
	b := AppendUint16(nil, 2)
	b = AppendUint32(b, 10000)
	if len(b) != 6 {
		t.Fatalf("actual length %v, expect 6", len(b))
	}
	if ParseUint16(b) != 2 || ParseUint32(b[2:]) != 10000 {
		t.Errorf("round trip mismatch: %v", b)
	}
}
