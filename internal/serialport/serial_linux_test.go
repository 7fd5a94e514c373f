//go:build linux

package serialport

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestBaudToUnix(t *testing.T) {
	got, err := baudToUnix(115200)
	if err != nil {
		t.Fatalf("baudToUnix() error: %v", err)
	}
	if got != unix.B115200 {
		t.Fatalf("baud=%d want %d", got, unix.B115200)
	}
	if _, err := baudToUnix(12345); err == nil {
		t.Fatalf("expected error for unsupported baud")
	}
}
