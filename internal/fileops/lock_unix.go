//go:build !windows

package fileops

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockProbe takes and drops a non-blocking exclusive flock
func lockProbe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return err
	}
	return unix.Flock(fd, unix.LOCK_UN)
}

// OpenShared opens path for reading. Unix opens never block other
// readers, writers or deleters.
func OpenShared(path string) (*os.File, error) {
	return os.Open(path)
}
