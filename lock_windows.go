//go:build windows

package erfix

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// ensureWritable probes path with a non-blocking exclusive byte-range lock.
// A violation means another process — the game, or a cloud-sync client —
// holds the save open, and replacing it now would race their writes.
func ensureWritable(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	fd := windows.Handle(f.Fd())
	var ov windows.Overlapped

	err = windows.LockFileEx(fd,
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, &ov)
	if err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return fmt.Errorf("%s: %w", path, ErrContainerLocked)
		}
		return err
	}
	return windows.UnlockFileEx(fd, 0, 1, 0, &ov)
}
