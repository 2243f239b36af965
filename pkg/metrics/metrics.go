// Package metrics exposes acquisition counters through Prometheus. A *Metrics
// can be plugged into the device core as its diagnostics hook and into the
// host side device and recorder as their observer.
package metrics

import (
	"time"

	"github.com/itohio/godaq/pkg/daq"
	"github.com/itohio/godaq/pkg/device"
	"github.com/itohio/godaq/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "daq"

// Metrics holds the collectors. The zero value is not usable; use New.
type Metrics struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	samplesEmitted    prometheus.Counter
	tokensDiscarded   prometheus.Counter
	channelSaturated  *prometheus.CounterVec

	linesDiscarded prometheus.Counter
	framesDropped  prometheus.Counter
	rowsRecorded   prometheus.Counter
	hostTimeouts   prometheus.Counter
	countMismatch  prometheus.Counter
	lastDuration   prometheus.Gauge
}

var (
	_ daq.Diagnostics = (*Metrics)(nil)
	_ device.Observer = (*Metrics)(nil)
	_ record.Observer = (*Metrics)(nil)
)

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Recording sessions started by the device core.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Recording sessions completed by the device core.",
		}),
		samplesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_emitted_total",
			Help:      "Data frames reported by completed sessions.",
		}),
		tokensDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_discarded_total",
			Help:      "Unrecognized command lines silently dropped by the device core.",
		}),
		channelSaturated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_boundary_readings_total",
			Help:      "Samples where a channel read zero or full scale.",
		}, []string{"channel"}),
		linesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_lines_discarded_total",
			Help:      "Lines from the device that could not be parsed.",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_frames_dropped_total",
			Help:      "Parsed frames dropped because the consumer was too slow.",
		}),
		rowsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_rows_recorded_total",
			Help:      "Data rows written to CSV files.",
		}),
		hostTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_timeouts_total",
			Help:      "Sessions abandoned because the host timeout expired.",
		}),
		countMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_sample_count_mismatch_total",
			Help:      "Sessions where SAMPLES_COLLECTED differed from the rows received.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_last_session_seconds",
			Help:      "Wall time of the last recorded session.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.sessionsStarted, m.sessionsCompleted, m.samplesEmitted, m.tokensDiscarded, m.channelSaturated,
			m.linesDiscarded, m.framesDropped, m.rowsRecorded, m.hostTimeouts, m.countMismatch, m.lastDuration,
		)
	}
	return m
}

// TokenDiscarded implements daq.Diagnostics.
func (m *Metrics) TokenDiscarded() {
	m.tokensDiscarded.Inc()
}

// ChannelSaturated implements daq.Diagnostics.
func (m *Metrics) ChannelSaturated(mask uint8) {
	for i := range daq.NumChannels {
		if mask&(1<<i) != 0 {
			m.channelSaturated.WithLabelValues(channelLabels[i]).Inc()
		}
	}
}

// SessionStarted implements daq.Diagnostics.
func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
}

// SessionCompleted implements daq.Diagnostics.
func (m *Metrics) SessionCompleted(samples uint32) {
	m.sessionsCompleted.Inc()
	m.samplesEmitted.Add(float64(samples))
}

// LineDiscarded records an unparsable line.
func (m *Metrics) LineDiscarded() {
	m.linesDiscarded.Inc()
}

// FrameDropped records a frame lost to backpressure.
func (m *Metrics) FrameDropped() {
	m.framesDropped.Inc()
}

// RowRecorded records one CSV data row.
func (m *Metrics) RowRecorded() {
	m.rowsRecorded.Inc()
}

// Timeout records a host side timeout.
func (m *Metrics) Timeout() {
	m.hostTimeouts.Inc()
}

// CountMismatch records a trailer that disagreed with the rows received.
func (m *Metrics) CountMismatch() {
	m.countMismatch.Inc()
}

// SessionRecorded records the wall time of a finished recording.
func (m *Metrics) SessionRecorded(d time.Duration) {
	m.lastDuration.Set(d.Seconds())
}

var channelLabels = [daq.NumChannels]string{"A0", "A1", "A2", "A3"}
