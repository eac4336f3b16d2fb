// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// RenoAlgorithm is a NewReno-style CongestionAlgorithm (RFC 9002 Appendix
// B): additive increase in congestion avoidance, exponential growth in
// slow start, and a multiplicative window cut on each new congestion
// episode. It implements CongestionAlgorithm and can be plugged into
// Congestion[Alg] as Status's Alg parameter (Status has no default
// algorithm; the caller chooses one).
type RenoAlgorithm struct {
	window   uint64
	ssthresh uint64
	inFlight uint64
	minWin   uint64
	maxPayload uint64
}

// Init seeds the window at window_initial_factor × max_payload and the
// minimum window at window_minimum_factor × max_payload (§6), with an
// initially uncapped slow-start threshold.
func (r *RenoAlgorithm) Init(config InternalConfig, maxUDPPayloadSize uint64) {
	r.window = config.WindowInitialFactor * maxUDPPayloadSize
	r.minWin = minWindow(config, maxUDPPayloadSize)
	r.maxPayload = maxUDPPayloadSize
	r.ssthresh = ^uint64(0)
	r.inFlight = 0
}

// CongestionWindow returns the current congestion window in bytes.
func (r *RenoAlgorithm) CongestionWindow() uint64 { return r.window }

// SSThresh returns the current slow-start threshold.
func (r *RenoAlgorithm) SSThresh() uint64 { return r.ssthresh }

// BytesInFlight returns the number of bytes currently believed in
// flight.
func (r *RenoAlgorithm) BytesInFlight() uint64 { return r.inFlight }

// InSlowStart reports whether the window is still below the slow-start
// threshold.
func (r *RenoAlgorithm) InSlowStart() bool { return r.window < r.ssthresh }

// OnPacketSent adds sentBytes to the in-flight count.
func (r *RenoAlgorithm) OnPacketSent(_ time.Time, sentBytes uint64) {
	r.inFlight += sentBytes
}

// OnPacketDiscarded removes discardedBytes from the in-flight count
// without treating it as a congestion signal.
func (r *RenoAlgorithm) OnPacketDiscarded(discardedBytes uint64) {
	r.inFlight = subClamp(r.inFlight, discardedBytes)
}

// OnPacketAck removes ackedBytes from in flight and grows the window:
// exponentially during slow start, additively (one max-payload-sized
// increment per window-worth of acked bytes) in congestion avoidance.
// Packets acked while inRecovery do not grow the window (RFC 9002
// §7.3.2).
func (r *RenoAlgorithm) OnPacketAck(_, _ time.Time, ackedBytes uint64, inRecovery bool) {
	r.inFlight = subClamp(r.inFlight, ackedBytes)
	if inRecovery {
		return
	}
	if r.InSlowStart() {
		r.window += ackedBytes
		return
	}
	if r.window == 0 {
		return
	}
	r.window += r.maxPayload * ackedBytes / r.window
}

// OnCongestionEvent cuts the window by half (RFC 9002 §7.3.2) and sets
// the slow-start threshold to the new window, collapsing all the way to
// the minimum window if the loss episode satisfies the
// persistent-congestion condition (§4.6.1).
func (r *RenoAlgorithm) OnCongestionEvent(_, _ time.Time, persistentCongestion bool) {
	if persistentCongestion {
		r.window = r.minWin
		r.ssthresh = r.minWin
		return
	}
	r.window /= 2
	if r.window < r.minWin {
		r.window = r.minWin
	}
	r.ssthresh = r.window
}
