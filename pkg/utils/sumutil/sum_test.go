package sumutil

import (
	"testing"
)

func TestCheckSum16(t *testing.T) {
	// header of a GET_NET_START broadcast to address 2
	bytes := []byte{0x00, 0x00, 0x02, 0x00, 0x80, 0x00, 0x06}

	expect := uint16(0x0088)
	actual := CheckSum16(bytes)

	if expect != actual {
		t.Errorf("actual %v, expect %v", actual, expect)
	}
}

func TestCheckSum16Wraps(t *testing.T) {
	bytes := make([]byte, 300)
	for i := range bytes {
		bytes[i] = 0xFF
	}

	expect := uint16((300 * 0xFF) % 0x10000)
	actual := CheckSum16(bytes)

	if expect != actual {
		t.Errorf("actual %v, expect %v", actual, expect)
	}
}

func TestCheckSum16Empty(t *testing.T) {
	if CheckSum16(nil) != 0 {
		t.Errorf("empty input must sum to zero")
	}
}
