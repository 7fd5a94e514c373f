package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"blecap/internal/capture"
	"blecap/internal/gps"
	"blecap/internal/stats"
)

func sampleReport() capture.Report {
	var c stats.Counters
	c.AddFrame("radio37")
	c.AddRecord("RADIO_FRAME_37", 20)
	c.AddDrop("radio38", stats.DropChecksum)
	c.AddSentenceDropped()
	w := c.ResetWindow()
	return capture.Report{
		Window:   w,
		Interval: time.Second,
		Rate:     w.FrameRate(time.Second),
		BitRate:  w.BitRate(time.Second) * 1024,
		Counters: c,
		Status:   "0001.bin",
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

func TestAPIStatus(t *testing.T) {
	st := NewStatus()
	st.SetStatic(t.TempDir(), "0001.bin", []RadioInfo{{Name: "radio37", Device: "/dev/ttyUSB0", Baud: 115200, Channel: 37}})
	st.SetGPS(&gps.Tracker{})
	st.SetOverflow(func() map[string]uint64 { return map[string]uint64{"radio37": 3} })
	st.Update(sampleReport())

	ts := httptest.NewServer(Handler(st, Options{}))
	defer ts.Close()

	resp, body := get(t, ts.URL+"/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var snap StatusSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if snap.Service != "blecap" || snap.File != "0001.bin" {
		t.Fatalf("service=%q file=%q", snap.Service, snap.File)
	}
	if len(snap.Radios) != 1 || snap.Radios[0].Channel != 37 {
		t.Fatalf("radios=%+v", snap.Radios)
	}
	c := snap.Capture
	if c.FramesTotal != 1 || c.BytesTotal != 20 || c.WindowBytes != 20 || c.Kbps != 160 {
		t.Fatalf("capture=%+v", c)
	}
	if c.Dropped["checksum"] != 1 || c.Dropped["timeout"] != 0 || c.NMEADropped != 1 {
		t.Fatalf("drops=%v nmea_dropped=%d", c.Dropped, c.NMEADropped)
	}
	if snap.Overflow["radio37"] != 3 {
		t.Fatalf("overflow=%v", snap.Overflow)
	}
	if snap.GPS == nil || snap.GPS.Valid {
		t.Fatalf("gps=%+v", snap.GPS)
	}
	if snap.LastTickUTC == "" {
		t.Fatalf("expected last tick")
	}
}

func TestAPIStatus_MethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(), Options{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}

func TestRootPage(t *testing.T) {
	st := NewStatus()
	st.SetStatic("", "<0002.bin>", nil)
	ts := httptest.NewServer(Handler(st, Options{}))
	defer ts.Close()

	resp, body := get(t, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if !strings.Contains(body, "file=&lt;0002.bin&gt;") {
		t.Fatalf("body not escaped: %s", body)
	}

	resp, _ = get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	st := NewStatus()
	ts := httptest.NewServer(Handler(st, Options{StaleAfter: time.Minute}))
	defer ts.Close()

	resp, _ := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("before first tick status=%d", resp.StatusCode)
	}
	st.Update(sampleReport())
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Fatalf("status=%d body=%q", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := stats.Counters{Metrics: stats.NewMetrics(reg)}
	c.AddFrame("radio39")

	ts := httptest.NewServer(Handler(NewStatus(), Options{Gatherer: reg}))
	defer ts.Close()

	resp, body := get(t, ts.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if !strings.Contains(body, `blecap_frames_total{radio="radio39"} 1`) {
		t.Fatalf("metrics body missing frame counter:\n%s", body)
	}
}

func TestAPIAbout(t *testing.T) {
	ts := httptest.NewServer(Handler(NewStatus(), Options{}))
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/about")
	var about AboutResponse
	if err := json.Unmarshal([]byte(body), &about); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if about.Service != "blecap" || about.GoVersion == "" {
		t.Fatalf("about=%+v", about)
	}
}
