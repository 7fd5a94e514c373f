package gps

import (
	"fmt"
	"io"
)

// PMTK commands understood by MediaTek receivers.
const (
	pmtkOutputRMCGGAGSA = "PMTK314,0,1,0,1,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0"
	pmtkUpdate1Hz       = "PMTK220,1000"
)

// Command frames body as a checksummed NMEA sentence with CRLF.
func Command(body string) []byte {
	ck := byte(0)
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return []byte(fmt.Sprintf("$%s*%02X\r\n", body, ck))
}

// ConfigurePMTK selects RMC, GGA and GSA output at 1 Hz.
func ConfigurePMTK(w io.Writer) error {
	for _, body := range []string{pmtkOutputRMCGGAGSA, pmtkUpdate1Hz} {
		if _, err := w.Write(Command(body)); err != nil {
			return fmt.Errorf("gps: write %s: %w", body[:7], err)
		}
	}
	return nil
}
