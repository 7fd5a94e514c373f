package serialport

import "testing"

func TestOpen_RejectsBadArguments(t *testing.T) {
	if _, err := Open("  ", 115200); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := Open("/dev/ttyUSB0", 0); err == nil {
		t.Fatalf("expected error for zero baud")
	}
}

func TestOpen_MissingDevice(t *testing.T) {
	if _, err := Open("/dev/blecap-does-not-exist", 115200); err == nil {
		t.Fatalf("expected error for missing device")
	}
}
