package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options wires the optional parts of the handler.
type Options struct {
	Logs *LogBuffer
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
	// StaleAfter makes /healthz fail when no display tick arrived for this
	// long. Zero disables the check.
	StaleAfter time.Duration
}

func getOnly(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fn(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

type AboutResponse struct {
	Service    string `json:"service"`
	NowUTC     string `json:"now_utc"`
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

func about() AboutResponse {
	resp := AboutResponse{
		Service:   "blecap",
		NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		resp.ModulePath = bi.Main.Path
		resp.Version = bi.Main.Version
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				resp.Commit = s.Value
			case "vcs.modified":
				resp.Dirty = s.Value == "true"
			}
		}
	}
	return resp
}

func Handler(status *Status, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status.Snapshot(time.Now().UTC()))
	}))

	mux.HandleFunc("/api/about", getOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, about())
	}))

	if opts.Logs != nil {
		mux.Handle("/api/logs", opts.Logs.Handler())
	}

	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/healthz", getOnly(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if opts.StaleAfter > 0 {
			last := status.LastTick()
			if last.IsZero() || time.Since(last) > opts.StaleAfter {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("capture stalled\n"))
				return
			}
		}
		_, _ = w.Write([]byte("ok\n"))
	}))

	mux.HandleFunc("/", getOnly(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><meta http-equiv=\"refresh\" content=\"2\"><title>blecap</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>blecap</h1>")
		_, _ = fmt.Fprintf(w, "<pre>file=%s\nstatus=%s\nframes_total=%d\nframe_rate=%d\nkbps=%d\nlast_tick_utc=%s</pre>",
			html.EscapeString(snap.File), html.EscapeString(snap.Capture.Status),
			snap.Capture.FramesTotal, snap.Capture.FrameRate, snap.Capture.Kbps, snap.LastTickUTC,
		)
		_, _ = fmt.Fprintf(w, "<p><a href=\"/api/status\">/api/status</a> <a href=\"/api/logs?format=text\">/api/logs</a></p>")
		_, _ = fmt.Fprintf(w, "</body></html>")
	}))

	return mux
}

func Serve(ctx context.Context, listenAddr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
