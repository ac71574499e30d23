//go:build unix

package watcher

import "syscall"

// getInode extracts the inode number from os.FileInfo.Sys(). Returns 0 when
// the platform stat is not available.
func getInode(sys any) uint64 {
	if stat, ok := sys.(*syscall.Stat_t); ok {
		return stat.Ino
	}
	return 0
}
