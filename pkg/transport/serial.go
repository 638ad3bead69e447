package transport

import (
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

// The SWR-NET physical layer is fixed at 1200 baud 8-N-1, no flow
// control and no modem-control signals.
var serialMode = &serial.Mode{
	BaudRate: 1200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

type serialTransport struct {
	port   serial.Port
	closed *atomic.Bool
}

func openSerial(device string) (Transport, error) {
	port, err := serial.Open(device, serialMode)
	if err != nil {
		klog.V(2).InfoS("Failed to open serial port", "device", device, "err", err)
		return nil, ErrTransportUnavailable
	}
	return &serialTransport{port: port, closed: atomic.NewBool(false)}, nil
}

func (s *serialTransport) WriteAll(p []byte) error {
	for written := 0; written < len(p); {
		n, err := s.port.Write(p[written:])
		if err != nil {
			klog.V(2).InfoS("Failed to write to serial port", "err", err)
			return ErrTransportIo
		}
		if n == 0 {
			return ErrTransportIo
		}
		written += n
	}
	return nil
}

func (s *serialTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(long); err != nil {
		return nil, ErrTransportIo
	}
	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			klog.V(2).InfoS("Failed to read from serial port", "err", err)
			return nil, ErrTransportIo
		}
		if n == 0 {
			// read timeout: either nothing ever arrived (long) or the
			// line went quiet after a burst (quiet)
			return out, nil
		}
		out = append(out, buf[:n]...)
		if err := s.port.SetReadTimeout(quiet); err != nil {
			return nil, ErrTransportIo
		}
	}
}

func (s *serialTransport) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.port.Close()
}
