// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
)

// Metrics holds the Prometheus instrumentation a Status instance
// updates as it processes events. A nil *Metrics is fully usable —
// every recording method is a no-op on a nil receiver. NewMetrics(nil)
// returns working collectors that are simply not registered anywhere,
// so production code can pass a real registerer and tests can pass nil
// without branching.
type Metrics struct {
	instance         string
	packetsSent      *prometheus.CounterVec
	packetsLost      *prometheus.CounterVec
	ackDelay         prometheus.Histogram
	smoothedRTT      prometheus.Gauge
	congestionWindow prometheus.Gauge
	ptoCount         prometheus.Counter
}

// NewMetrics constructs the Metrics collector set and, if reg is
// non-nil, registers them. Passing a nil Registerer is valid and
// produces a Metrics that records into unregistered (but still usable)
// collectors — convenient for tests that don't want a global registry
// dependency.
//
// Every collector carries a constant "instance" label holding a short,
// lexicographically sortable xid minted once per Metrics so that several
// concurrently live connections can share one registry without a
// cardinality blowup from, say, a full connection UUID.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	instance := xid.New().String()
	constLabels := prometheus.Labels{"instance": instance}
	m := &Metrics{
		instance: instance,
		packetsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "packets_sent_total",
			Help:        "Total packets handed to the recovery core for tracking, by packet-number space.",
			ConstLabels: constLabels,
		}, []string{"space"}),
		packetsLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "packets_lost_total",
			Help:        "Total packets declared lost, by packet-number space.",
			ConstLabels: constLabels,
		}, []string{"space"}),
		ackDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "ack_delay_seconds",
			Help:        "Decoded peer-reported ACK delay.",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 16),
			ConstLabels: constLabels,
		}),
		smoothedRTT: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "smoothed_rtt_seconds",
			Help:        "Current smoothed RTT estimate.",
			ConstLabels: constLabels,
		}),
		congestionWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "congestion_window_bytes",
			Help:        "Current congestion window.",
			ConstLabels: constLabels,
		}),
		ptoCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "quic",
			Subsystem:   "recovery",
			Name:        "pto_timeouts_total",
			Help:        "Total probe-timeout expirations.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.packetsSent, m.packetsLost, m.ackDelay, m.smoothedRTT, m.congestionWindow, m.ptoCount)
	}
	return m
}

// Instance returns the short diagnostic id this Metrics set was minted
// with, for correlating it with the connection's EventLogger output.
func (m *Metrics) Instance() string {
	if m == nil {
		return ""
	}
	return m.instance
}

func (m *Metrics) observePacketSent(space PacketNumberSpace) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(space.String()).Inc()
}

func (m *Metrics) observePacketLost(space PacketNumberSpace) {
	if m == nil {
		return
	}
	m.packetsLost.WithLabelValues(space.String()).Inc()
}

func (m *Metrics) observeAckDelaySeconds(seconds float64) {
	if m == nil {
		return
	}
	m.ackDelay.Observe(seconds)
}

func (m *Metrics) observeSmoothedRTTSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.smoothedRTT.Set(seconds)
}

func (m *Metrics) observeCongestionWindow(bytes uint64) {
	if m == nil {
		return
	}
	m.congestionWindow.Set(float64(bytes))
}

func (m *Metrics) observePTOTimeout() {
	if m == nil {
		return
	}
	m.ptoCount.Inc()
}
