//go:build linux

package web

import "syscall"

func snapshotDisk(path string) *DiskSnapshot {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return &DiskSnapshot{Path: path, LastError: err.Error()}
	}

	bsize := uint64(st.Bsize)
	return &DiskSnapshot{
		Path:       path,
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bfree * bsize,
		AvailBytes: st.Bavail * bsize,
	}
}
