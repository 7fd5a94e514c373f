// Package serialport opens the UARTs the radios and the GPS receiver are
// attached to, in raw 8N1 mode.
package serialport

import (
	"fmt"
	"io"
	"strings"
)

// Open opens path at baud. The returned port is closed by the caller; closing
// it unblocks a pending Read.
func Open(path string, baud int) (io.ReadWriteCloser, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("serial: empty device path")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("serial: invalid baud %d", baud)
	}
	return openPort(path, baud)
}
