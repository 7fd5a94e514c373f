package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"blecap/internal/framing"
)

type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Radios  []RadioConfig `yaml:"radios"`
	GPS     GPSConfig     `yaml:"gps"`
	Display DisplayConfig `yaml:"display"`
	Web     WebConfig     `yaml:"web"`
	LED     LEDConfig     `yaml:"led"`
	Mirror  MirrorConfig  `yaml:"mirror"`
}

type CaptureConfig struct {
	// Dir receives the numbered capture files.
	Dir               string        `yaml:"dir"`
	TimestampInterval time.Duration `yaml:"timestamp_interval"`
	FlushInterval     time.Duration `yaml:"flush_interval"`
	DisplayInterval   time.Duration `yaml:"display_interval"`
	ByteTimeout       time.Duration `yaml:"byte_timeout"`
	FrameBuffer       int           `yaml:"frame_buffer"`
	IdleSleep         time.Duration `yaml:"idle_sleep"`
}

type RadioConfig struct {
	Name    string `yaml:"name"`
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
	Channel int    `yaml:"channel"`
	// RXBuffer is the receive ring size in bytes.
	RXBuffer int `yaml:"rx_buffer"`
	// Setup sends reset and sniff commands at startup.
	Setup *bool `yaml:"setup"`
}

type GPSConfig struct {
	Enable   bool   `yaml:"enable"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	RXBuffer int    `yaml:"rx_buffer"`
	// PMTK selects RMC/GGA/GSA output at 1 Hz on MediaTek receivers.
	PMTK bool `yaml:"pmtk"`
}

type DisplayConfig struct {
	Console *bool       `yaml:"console"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Enable bool          `yaml:"enable"`
	Addr   string        `yaml:"addr"`
	DB     int           `yaml:"db"`
	Key    string        `yaml:"key"`
	TTL    time.Duration `yaml:"ttl"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// MirrorConfig sends a copy of every log record to a UDP listener.
type MirrorConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type LEDConfig struct {
	Enable bool   `yaml:"enable"`
	Chip   string `yaml:"chip"`
	Line   int    `yaml:"line"`
}

const (
	DefaultRadioBaud    = 115200
	DefaultRadioBuffer  = 64 * 1024
	DefaultGPSBaud      = 9600
	DefaultGPSBuffer    = 16 * 1024
	DefaultFrameBuffer  = framing.MaxFrameSize
	DefaultRedisKey     = "blecap:status"
	DefaultRedisTTL     = 30 * time.Second
	DefaultWebListen    = ":8080"
	DefaultLEDChip      = "gpiochip0"
	maxRadios           = 3
	minRadioChannel     = 37
	maxRadioChannel     = 39
	maxFrameBufferBytes = framing.MaxFrameSize
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty file decodes as io.EOF; treat it as all defaults.
		if !errors.Is(err, io.EOF) {
			return Config{}, decodeError(err)
		}
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var linePrefix = regexp.MustCompile(`^line \d+: `)

func decodeError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	var unknown []string
	for _, msg := range te.Errors {
		msg = linePrefix.ReplaceAllString(msg, "")
		if strings.HasPrefix(msg, "field ") && strings.Contains(msg, " not found in type ") {
			unknown = append(unknown, msg)
		}
	}
	if len(unknown) == len(te.Errors) {
		return fmt.Errorf("config contains unknown fields: %s", strings.Join(unknown, "; "))
	}
	return err
}

// DefaultAndValidate fills defaults in place and rejects inconsistent
// settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	c := &cfg.Capture
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		return fmt.Errorf("capture.dir is required")
	}
	if c.TimestampInterval <= 0 {
		c.TimestampInterval = 250 * time.Millisecond
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 10 * time.Second
	}
	if c.DisplayInterval <= 0 {
		c.DisplayInterval = 1 * time.Second
	}
	if c.ByteTimeout <= 0 {
		c.ByteTimeout = 100 * time.Millisecond
	}
	if c.FrameBuffer == 0 {
		c.FrameBuffer = DefaultFrameBuffer
	}
	if c.FrameBuffer < 2 || c.FrameBuffer > maxFrameBufferBytes {
		return fmt.Errorf("capture.frame_buffer must be between 2 and %d", maxFrameBufferBytes)
	}
	if c.IdleSleep < 0 {
		return fmt.Errorf("capture.idle_sleep must be >= 0")
	}

	if len(cfg.Radios) == 0 && !cfg.GPS.Enable {
		return fmt.Errorf("radios or gps must be configured")
	}
	if len(cfg.Radios) > maxRadios {
		return fmt.Errorf("radios supports at most %d entries", maxRadios)
	}
	seenChannel := map[int]int{}
	seenDevice := map[string]int{}
	for i := range cfg.Radios {
		r := &cfg.Radios[i]
		r.Device = strings.TrimSpace(r.Device)
		if r.Device == "" {
			return fmt.Errorf("radios[%d].device is required", i)
		}
		if r.Channel < minRadioChannel || r.Channel > maxRadioChannel {
			return fmt.Errorf("radios[%d].channel must be 37, 38 or 39", i)
		}
		if j, ok := seenChannel[r.Channel]; ok {
			return fmt.Errorf("radios[%d].channel duplicates radios[%d].channel", i, j)
		}
		seenChannel[r.Channel] = i
		if j, ok := seenDevice[r.Device]; ok {
			return fmt.Errorf("radios[%d].device duplicates radios[%d].device", i, j)
		}
		seenDevice[r.Device] = i
		if r.Baud == 0 {
			r.Baud = DefaultRadioBaud
		}
		if r.Baud < 0 {
			return fmt.Errorf("radios[%d].baud must be > 0", i)
		}
		if r.RXBuffer == 0 {
			r.RXBuffer = DefaultRadioBuffer
		}
		if r.RXBuffer < 0 {
			return fmt.Errorf("radios[%d].rx_buffer must be > 0", i)
		}
		if strings.TrimSpace(r.Name) == "" {
			r.Name = fmt.Sprintf("radio%d", r.Channel)
		}
		if r.Setup == nil {
			v := true
			r.Setup = &v
		}
	}

	g := &cfg.GPS
	if g.Enable {
		g.Device = strings.TrimSpace(g.Device)
		if g.Device == "" {
			return fmt.Errorf("gps.device is required when gps.enable is true")
		}
		if _, ok := seenDevice[g.Device]; ok {
			return fmt.Errorf("gps.device is already used by a radio")
		}
	}
	if g.Baud == 0 {
		g.Baud = DefaultGPSBaud
	}
	if g.Baud < 0 {
		return fmt.Errorf("gps.baud must be > 0")
	}
	if g.RXBuffer == 0 {
		g.RXBuffer = DefaultGPSBuffer
	}
	if g.RXBuffer < 0 {
		return fmt.Errorf("gps.rx_buffer must be > 0")
	}

	if cfg.Display.Console == nil {
		v := true
		cfg.Display.Console = &v
	}
	rd := &cfg.Display.Redis
	if rd.Enable {
		rd.Addr = strings.TrimSpace(rd.Addr)
		if rd.Addr == "" {
			return fmt.Errorf("display.redis.addr is required when display.redis.enable is true")
		}
	}
	if rd.DB < 0 {
		return fmt.Errorf("display.redis.db must be >= 0")
	}
	if strings.TrimSpace(rd.Key) == "" {
		rd.Key = DefaultRedisKey
	}
	if rd.TTL == 0 {
		rd.TTL = DefaultRedisTTL
	}
	if rd.TTL < 0 {
		return fmt.Errorf("display.redis.ttl must be > 0")
	}

	if strings.TrimSpace(cfg.Web.Listen) == "" {
		cfg.Web.Listen = DefaultWebListen
	}

	if strings.TrimSpace(cfg.LED.Chip) == "" {
		cfg.LED.Chip = DefaultLEDChip
	}
	if cfg.LED.Line < 0 {
		return fmt.Errorf("led.line must be >= 0")
	}

	if cfg.Mirror.Enable {
		cfg.Mirror.Dest = strings.TrimSpace(cfg.Mirror.Dest)
		if cfg.Mirror.Dest == "" {
			return fmt.Errorf("mirror.dest is required when mirror.enable is true")
		}
	}

	return nil
}
