package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"blecap/internal/config"
	"blecap/internal/web"
)

func main() {
	var configPath string
	var summaryPath string
	var dumpPath string
	var dumpLimit int
	var replayPath string
	var replaySpeed float64
	flag.StringVar(&configPath, "config", "./blecap.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of a capture file (or the newest one in a directory) and exit")
	flag.StringVar(&dumpPath, "dump", "", "Print the records of a capture file (or the newest one in a directory) and exit")
	flag.IntVar(&dumpLimit, "dump-limit", 0, "Stop -dump after this many records (0 = all)")
	flag.StringVar(&replayPath, "replay", "", "Print the records of a capture file paced by their timestamps and exit")
	flag.Float64Var(&replaySpeed, "replay-speed", 1, "Replay speed multiplier for -replay")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case summaryPath != "":
		if err := printLogSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("log summary failed: %v", err)
		}
		return
	case dumpPath != "":
		if err := dumpLog(os.Stdout, dumpPath, dumpLimit); err != nil {
			log.Fatalf("log dump failed: %v", err)
		}
		return
	case replayPath != "":
		if err := replayLog(ctx, os.Stdout, replayPath, replaySpeed, nil); err != nil && ctx.Err() == nil {
			log.Fatalf("log replay failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	log.Printf("blecap starting config=%s", configPath)
	rt, err := newCaptureRuntime(cfg, logs)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	err = rt.run(ctx)
	rt.close()
	if err != nil {
		log.Fatalf("capture failed: %v", err)
	}
	log.Printf("blecap stopped")
}
