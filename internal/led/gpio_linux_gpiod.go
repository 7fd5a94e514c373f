//go:build linux && (arm || arm64)

package led

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine requests a GPIO line through the Linux GPIO character device.
func openLine(chipName string, offset int) (line, error) {
	path := chipName
	if !strings.HasPrefix(path, "/") {
		path = filepath.Join("/dev", chipName)
	}
	chip, err := gpiocdev.NewChip(path)
	if err != nil {
		return nil, fmt.Errorf("led: open %s: %w", path, err)
	}
	l, err := chip.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("blecap-led"))
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("led: request %s line %d: %w", path, offset, err)
	}
	return &gpiodLine{chip: chip, line: l}, nil
}

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error { return g.line.SetValue(v) }

func (g *gpiodLine) Close() error {
	err := g.line.Close()
	_ = g.chip.Close()
	return err
}
