//go:build !linux || (!arm && !arm64)

package led

import "fmt"

func openLine(string, int) (line, error) {
	return nil, fmt.Errorf("led: gpio unsupported on this platform")
}
