package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports the counters to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Frames       *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	NoiseBytes   *prometheus.CounterVec
	Records      *prometheus.CounterVec
	LogBytes     prometheus.Counter
	NMEA         prometheus.Counter
	NMEADropped  prometheus.Counter
	SinkErrors   prometheus.Counter
	RingOverflow *prometheus.CounterVec
	// DecodeLatency is the time from a frame's Start marker to its End.
	DecodeLatency prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blecap_frames_total",
			Help: "Radio frames decoded and logged",
		}, []string{"radio"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blecap_frames_dropped_total",
			Help: "Radio frames started but not logged",
		}, []string{"radio", "reason"}),
		NoiseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blecap_noise_bytes_total",
			Help: "Bytes discarded while hunting for a frame start",
		}, []string{"radio"}),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blecap_records_total",
			Help: "Records appended to the capture log",
		}, []string{"kind"}),
		LogBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blecap_log_bytes_total",
			Help: "Bytes appended to the capture log",
		}),
		NMEA: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blecap_nmea_sentences_total",
			Help: "NMEA sentences logged",
		}),
		NMEADropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blecap_nmea_sentences_dropped_total",
			Help: "NMEA sentences too long to log",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blecap_sink_errors_total",
			Help: "Records the log sink failed to accept",
		}),
		RingOverflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blecap_serial_overflow_bytes_total",
			Help: "Serial bytes lost because the receive buffer was full",
		}, []string{"port"}),
		DecodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blecap_frame_decode_seconds",
			Help:    "Time from frame start marker to end marker",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Dropped, m.NoiseBytes, m.Records, m.LogBytes, m.NMEA, m.NMEADropped, m.SinkErrors, m.RingOverflow, m.DecodeLatency)
	}
	return m
}

func (m *Metrics) frame(radio string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(radio).Inc()
}

func (m *Metrics) record(kind string, n int) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(kind).Inc()
	m.LogBytes.Add(float64(n))
}

func (m *Metrics) drop(radio string, r DropReason) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(radio, r.String()).Inc()
}

func (m *Metrics) noise(radio string, n int) {
	if m == nil {
		return
	}
	m.NoiseBytes.WithLabelValues(radio).Add(float64(n))
}

func (m *Metrics) sentence(dropped bool) {
	if m == nil {
		return
	}
	if dropped {
		m.NMEADropped.Inc()
		return
	}
	m.NMEA.Inc()
}

func (m *Metrics) sinkError() {
	if m == nil {
		return
	}
	m.SinkErrors.Inc()
}

// AddOverflow records serial bytes lost on port since the last call.
func (m *Metrics) AddOverflow(port string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.RingOverflow.WithLabelValues(port).Add(float64(n))
}

// ObserveDecode records how long one successful decode took.
func (m *Metrics) ObserveDecode(d time.Duration) {
	if m == nil {
		return
	}
	m.DecodeLatency.Observe(d.Seconds())
}
