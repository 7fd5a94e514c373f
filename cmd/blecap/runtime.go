package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"blecap/internal/binlog"
	"blecap/internal/capture"
	"blecap/internal/config"
	"blecap/internal/display"
	"blecap/internal/gps"
	"blecap/internal/led"
	"blecap/internal/radio"
	"blecap/internal/serialport"
	"blecap/internal/stats"
	"blecap/internal/stream"
	"blecap/internal/udp"
	"blecap/internal/web"
)

var (
	openPortFn = serialport.Open
	openLEDFn  = led.Open
	settleFn   = func() { time.Sleep(50 * time.Millisecond) }
	consoleFn  = func() display.Display { return &display.Console{} }
)

// port is one opened UART and the ring its reader goroutine fills.
type port struct {
	name    string
	device  string
	rw      io.ReadWriteCloser
	ring    *stream.Ring
	channel uint8
	setup   bool
}

type captureRuntime struct {
	cfg config.Config

	radios []*port
	gps    *port

	file     *binlog.File
	session  *capture.Session
	counters *stats.Counters
	fix      *gps.Tracker

	status   *web.Status
	infos    []web.RadioInfo
	logs     *web.LogBuffer
	registry *prometheus.Registry

	disp        display.Multi
	redisClient *redis.Client
	redisDisp   *display.Redis

	mirror *udp.Mirror

	led *led.LED

	lastOverflow map[string]uint64
}

func newCaptureRuntime(cfg config.Config, logs *web.LogBuffer) (rt *captureRuntime, err error) {
	rt = &captureRuntime{
		cfg:          cfg,
		logs:         logs,
		status:       web.NewStatus(),
		registry:     prometheus.NewRegistry(),
		lastOverflow: map[string]uint64{},
	}
	defer func() {
		if err != nil {
			rt.close()
			rt = nil
		}
	}()

	if cfg.Display.Console != nil && *cfg.Display.Console {
		rt.disp = append(rt.disp, consoleFn())
	}
	if rd := cfg.Display.Redis; rd.Enable {
		rt.redisClient = redis.NewClient(&redis.Options{Addr: rd.Addr, DB: rd.DB})
		rt.redisDisp = display.NewRedis(rt.redisClient, rd.Key, rd.TTL)
		rt.disp = append(rt.disp, rt.redisDisp)
		log.Printf("display redis addr=%s key=%s", rd.Addr, rd.Key)
	}

	if cfg.LED.Enable {
		d, err := openLEDFn(cfg.LED.Chip, cfg.LED.Line)
		if err != nil {
			log.Printf("led disabled: %v", err)
		} else {
			rt.led = d
		}
	}

	rt.disp.ShowStatus("Checking logs")
	if prev, err := binlog.LatestPath(cfg.Capture.Dir); err == nil {
		log.Printf("previous capture=%s", prev)
	}

	rt.disp.ShowStatus("Init SD card")
	rt.file, err = binlog.CreateFile(cfg.Capture.Dir)
	if err != nil {
		rt.disp.ShowStatus("No SD card")
		return rt, fmt.Errorf("capture file: %w", err)
	}
	log.Printf("capture file=%s", rt.file.Path())

	rt.disp.ShowStatus("Init radios")
	for _, rc := range cfg.Radios {
		rw, err := openPortFn(rc.Device, rc.Baud)
		if err != nil {
			return rt, fmt.Errorf("radio %s: %w", rc.Name, err)
		}
		rt.radios = append(rt.radios, &port{
			name:    rc.Name,
			device:  rc.Device,
			rw:      rw,
			ring:    stream.NewRing(rc.Name, rc.RXBuffer),
			channel: uint8(rc.Channel),
			setup:   rc.Setup != nil && *rc.Setup,
		})
		log.Printf("radio %s device=%s baud=%d channel=%d", rc.Name, rc.Device, rc.Baud, rc.Channel)
	}

	if cfg.GPS.Enable {
		rt.disp.ShowStatus("Init GPS")
		rw, err := openPortFn(cfg.GPS.Device, cfg.GPS.Baud)
		if err != nil {
			return rt, fmt.Errorf("gps: %w", err)
		}
		rt.gps = &port{name: "gps", device: cfg.GPS.Device, rw: rw, ring: stream.NewRing("gps", cfg.GPS.RXBuffer)}
		rt.fix = &gps.Tracker{}
		rt.status.SetGPS(rt.fix)
		log.Printf("gps enabled device=%s baud=%d", cfg.GPS.Device, cfg.GPS.Baud)
		if cfg.GPS.PMTK {
			if err := gps.ConfigurePMTK(rw); err != nil {
				log.Printf("gps pmtk setup failed: %v", err)
			}
		}
	}

	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var sink binlog.Sink = rt.file
	if cfg.Mirror.Enable {
		rt.mirror, err = udp.NewMirror(rt.file, cfg.Mirror.Dest)
		if err != nil {
			return rt, fmt.Errorf("mirror: %w", err)
		}
		sink = rt.mirror
		rt.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "blecap_mirror_datagrams_total",
				Help: "Log records mirrored over UDP.",
			}, func() float64 { return float64(rt.mirror.Sent()) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "blecap_mirror_send_errors_total",
				Help: "Log records the UDP mirror failed to send.",
			}, func() float64 { return float64(rt.mirror.Failed()) }),
		)
		log.Printf("mirror dest=%s", cfg.Mirror.Dest)
	}
	rt.counters = &stats.Counters{Metrics: stats.NewMetrics(rt.registry)}

	var radios []capture.Radio
	for i, p := range rt.radios {
		tag, ok := binlog.RadioTag(p.channel)
		if !ok {
			return rt, fmt.Errorf("radio %s: no record tag for channel %d", p.name, p.channel)
		}
		radios = append(radios, capture.Radio{Name: p.name, Tag: tag, Src: p.ring})
		rc := cfg.Radios[i]
		rt.infos = append(rt.infos, web.RadioInfo{Name: rc.Name, Device: rc.Device, Baud: rc.Baud, Channel: rc.Channel})
	}
	rt.status.SetStatic(cfg.Capture.Dir, rt.file.Path(), rt.infos)
	rt.status.SetOverflow(rt.overflowCounts)

	opts := capture.Options{
		Radios:    radios,
		Sink:      sink,
		Display:   rt.disp,
		Counters:  rt.counters,
		Fix:       rt.fix,
		Status:    rt.statusLine,
		OnDisplay: rt.onDisplay,
	}
	if rt.gps != nil {
		opts.GPS = gps.NewSentences(rt.gps.ring)
	}
	rt.session, err = capture.New(capture.Config{
		TimestampInterval: cfg.Capture.TimestampInterval,
		FlushInterval:     cfg.Capture.FlushInterval,
		DisplayInterval:   cfg.Capture.DisplayInterval,
		ByteTimeout:       cfg.Capture.ByteTimeout,
		BufferSize:        cfg.Capture.FrameBuffer,
		IdleSleep:         cfg.Capture.IdleSleep,
	}, opts)
	if err != nil {
		return rt, err
	}
	return rt, nil
}

func (rt *captureRuntime) ports() []*port {
	out := append([]*port(nil), rt.radios...)
	if rt.gps != nil {
		out = append(out, rt.gps)
	}
	return out
}

func (rt *captureRuntime) statusLine() string {
	name := filepath.Base(rt.file.Path())
	if rt.fix == nil {
		return name
	}
	return name + " " + rt.fix.Snapshot().Status()
}

func (rt *captureRuntime) overflowCounts() map[string]uint64 {
	out := map[string]uint64{}
	for _, p := range rt.ports() {
		out[p.name] = p.ring.Overflow()
	}
	return out
}

// onDisplay runs on the capture goroutine at every display tick.
func (rt *captureRuntime) onDisplay(rep capture.Report) {
	for _, p := range rt.ports() {
		n := p.ring.Overflow()
		rt.counters.Metrics.AddOverflow(p.name, n-rt.lastOverflow[p.name])
		rt.lastOverflow[p.name] = n
	}
	rt.status.Update(rep)
}

// setupRadios resets every radio, then starts sniffing, as the radios expect.
func (rt *captureRuntime) setupRadios() error {
	clk := stream.NewMonotonicClock()
	for _, p := range rt.radios {
		if !p.setup {
			continue
		}
		if err := radio.Reset(p.rw); err != nil {
			return fmt.Errorf("radio %s: %w", p.name, err)
		}
	}
	settleFn()
	for i, p := range rt.radios {
		if !p.setup {
			continue
		}
		if err := radio.RequestVersion(p.rw); err != nil {
			return fmt.Errorf("radio %s: %w", p.name, err)
		}
		v, err := radio.ReadVersion(p.ring, clk, 250*time.Millisecond)
		if err != nil {
			log.Printf("radio %s version unavailable: %v", p.name, err)
		} else {
			log.Printf("radio %s version=%q", p.name, v)
			rt.infos[i].Version = v
		}
		if err := radio.StartSniffer(p.rw, p.channel); err != nil {
			return fmt.Errorf("radio %s: %w", p.name, err)
		}
	}
	settleFn()
	rt.status.SetStatic("", "", rt.infos)
	return nil
}

func (rt *captureRuntime) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range rt.ports() {
		p := p
		g.Go(func() error {
			if err := p.ring.Pump(gctx, p.rw); err != nil {
				log.Printf("serial %s device=%s stopped: %v", p.name, p.device, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		for _, p := range rt.ports() {
			_ = p.rw.Close()
		}
		return nil
	})

	rt.disp.ShowStatus("Start radios")
	if err := rt.setupRadios(); err != nil {
		rt.disp.ShowStatus("Radio fault")
		rt.blinkFault(gctx)
		cancel()
		_ = g.Wait()
		return err
	}
	rt.disp.ShowStatus(filepath.Base(rt.file.Path()))

	if rt.cfg.Web.Enable {
		h := web.Handler(rt.status, web.Options{
			Logs:       rt.logs,
			Gatherer:   rt.registry,
			StaleAfter: 5 * rt.cfg.Capture.DisplayInterval,
		})
		log.Printf("web listen=%s", rt.cfg.Web.Listen)
		g.Go(func() error {
			return web.Serve(gctx, rt.cfg.Web.Listen, h)
		})
	}
	if rt.redisDisp != nil {
		pingCtx, cancel := context.WithTimeout(gctx, 2*time.Second)
		if err := rt.redisDisp.Ping(pingCtx); err != nil {
			log.Printf("display redis unavailable, will retry: %v", err)
		}
		cancel()
		g.Go(func() error { return rt.redisDisp.Run(gctx) })
	}

	if err := rt.led.Off(); err != nil {
		log.Printf("led: %v", err)
	}
	log.Printf("capture running radios=%d gps=%t", len(rt.radios), rt.gps != nil)

	g.Go(func() error {
		return rt.session.Run(gctx)
	})
	err := g.Wait()
	log.Printf("capture stopped %s", rt.counters.Line())
	return err
}

// blinkFault flashes the LED for a moment so a setup failure is visible on
// a headless unit.
func (rt *captureRuntime) blinkFault(ctx context.Context) {
	if rt.led == nil {
		return
	}
	bctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = rt.led.Blink(bctx, 100*time.Millisecond)
}

func (rt *captureRuntime) close() {
	for _, p := range rt.ports() {
		_ = p.rw.Close()
	}
	if rt.file != nil {
		if err := rt.file.Close(); err != nil {
			log.Printf("capture file close: %v", err)
		}
	}
	if rt.mirror != nil {
		_ = rt.mirror.Close()
	}
	if rt.redisClient != nil {
		_ = rt.redisClient.Close()
	}
	_ = rt.led.Close()
}
