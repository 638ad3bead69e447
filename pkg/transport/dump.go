package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"
)

// dumpTransport mirrors raw traffic into per-second capture files, one
// pair per direction: <dir>/<unix_ts>.to and <dir>/<unix_ts>.from.
// Capture failures never fail the link.
type dumpTransport struct {
	inner Transport
	dir   string
}

func WithDump(inner Transport, dir string) Transport {
	return &dumpTransport{inner: inner, dir: dir}
}

func (d *dumpTransport) WriteAll(p []byte) error {
	d.capture("to", p)
	return d.inner.WriteAll(p)
}

func (d *dumpTransport) ReadUntilQuiet(long, quiet time.Duration) ([]byte, error) {
	data, err := d.inner.ReadUntilQuiet(long, quiet)
	if len(data) > 0 {
		d.capture("from", data)
	}
	return data, err
}

func (d *dumpTransport) Close() error {
	return d.inner.Close()
}

func (d *dumpTransport) capture(direction string, p []byte) {
	path := filepath.Join(d.dir, fmt.Sprintf("%d.%s", time.Now().Unix(), direction))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		klog.V(2).InfoS("Failed to open capture file", "path", path, "err", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(p); err != nil {
		klog.V(2).InfoS("Failed to write capture file", "path", path, "err", err)
	}
}
