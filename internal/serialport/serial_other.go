//go:build !linux

package serialport

import (
	"io"

	"github.com/jacobsa/go-serial/serial"
)

func openPort(path string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:              path,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
		MinimumReadSize:       1,
	})
}
