package fileutil

import (
	"fmt"
	"os"

	"k8s.io/klog/v2"
)

// WritePidFile records the current process id so a supervisor can signal
// the long-running poller.
func WritePidFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		klog.V(2).InfoS("Failed to write pid file", "path", path, "err", err)
		return err
	}
	return nil
}

func RemovePidFile(path string) {
	if len(path) == 0 {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		klog.V(2).InfoS("Failed to remove pid file", "path", path, "err", err)
	}
}
