package transport

import (
	"io"
	"net"
	"time"

	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

const dialTimeout = 10 * time.Second

type tcpTransport struct {
	conn   net.Conn
	closed *atomic.Bool
}

func openTCP(endpoint string) (Transport, error) {
	conn, err := net.DialTimeout("tcp", endpoint, dialTimeout)
	if err != nil {
		klog.V(2).InfoS("Failed to connect serial bridge", "endpoint", endpoint, "err", err)
		return nil, ErrTransportUnavailable
	}
	return &tcpTransport{conn: conn, closed: atomic.NewBool(false)}, nil
}

func (t *tcpTransport) WriteAll(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.conn.Write(p[written:])
		if err != nil {
			klog.V(2).InfoS("Failed to write to serial bridge", "err", err)
			return ErrTransportIo
		}
		written += n
	}
	return nil
}

func (t *tcpTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(long)); err != nil {
		return nil, ErrTransportIo
	}
	var out []byte
	buf := make([]byte, 256)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return out, nil
			}
			if err == io.EOF && len(out) > 0 {
				return out, nil
			}
			klog.V(2).InfoS("Failed to read from serial bridge", "err", err)
			return nil, ErrTransportIo
		}
		if err := t.conn.SetReadDeadline(time.Now().Add(quiet)); err != nil {
			return nil, ErrTransportIo
		}
	}
}

func (t *tcpTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}
