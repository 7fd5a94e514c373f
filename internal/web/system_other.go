//go:build !linux

package web

func snapshotDisk(string) *DiskSnapshot { return nil }
