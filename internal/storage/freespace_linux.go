//go:build linux

package storage

import (
	"fmt"
	"syscall"

	"github.com/helix-kernel/helix/internal/kernelerrors"
)

// checkFreeSpace fails with InsufficientSpace if dir's filesystem has
// fewer than requiredGiB free.
func checkFreeSpace(dir string, requiredGiB int) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return kernelerrors.InvalidPath(fmt.Sprintf("cannot stat filesystem for %q", dir), err)
	}
	availableBytes := stat.Bavail * uint64(stat.Bsize)
	requiredBytes := uint64(requiredGiB) * gib
	if availableBytes < requiredBytes {
		return kernelerrors.InsufficientSpace(
			fmt.Sprintf("need %d GiB free at %q, have %.2f GiB", requiredGiB, dir, float64(availableBytes)/float64(gib)),
			nil,
		)
	}
	return nil
}
