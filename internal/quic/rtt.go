// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// RTT holds the smoothed round-trip-time estimator state (§3, §4.4),
// one instance per Status.
type RTT struct {
	latest           time.Duration
	min              time.Duration
	smoothed         time.Duration
	rttvar           time.Duration
	peerMaxAckDelay  time.Duration
	peerMaxAckDelaySet bool
	firstAckSample   time.Time
}

// HasFirstAckSample reports whether at least one RTT sample has been
// taken since the last Reset.
func (r *RTT) HasFirstAckSample() bool {
	return !r.firstAckSample.IsZero()
}

// FirstAckSample returns the time of the first RTT sample.
func (r *RTT) FirstAckSample() time.Time {
	return r.firstAckSample
}

// Reset seeds the estimator at connection start (or after a Retry):
// smoothed = initial_rtt, rttvar = smoothed/2 (§3).
func (r *RTT) Reset(config InternalConfig) {
	r.latest = 0
	r.min = 0
	r.smoothed = roundUpToGranularity(config.Clock, config.InitialRTT)
	r.rttvar = r.smoothed / 2
	r.peerMaxAckDelaySet = false
	r.firstAckSample = invalidTime
}

// OnConnectionMigrate resets the RTT baseline without touching the
// first-ack-sample marker or the peer's max-ack-delay, for a path
// migration to call once it confirms a new network path (RFC 9002 §6.2.3);
// the path-validation state machine itself is the caller's responsibility.
func (r *RTT) OnConnectionMigrate(config InternalConfig) {
	r.latest = 0
	r.min = 0
	r.smoothed = roundUpToGranularity(config.Clock, config.InitialRTT)
	r.rttvar = r.smoothed / 2
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// SampleRTT folds a new RTT sample (now - timeSent) into the estimator,
// per RFC 9002 §5.3. ackDelay is the decoded, clock-granularity-rounded
// ACK delay the peer reported. It returns false (and leaves state
// unchanged) if the sample would be negative (§7 kind 3: arithmetic
// invariant, caller should treat this as the invalid sentinel).
func (r *RTT) SampleRTT(config InternalConfig, now time.Time, timeSent time.Time, ackDelay time.Duration) bool {
	sample := now.Sub(timeSent)
	if sample < 0 {
		return false
	}
	r.latest = sample
	if !r.HasFirstAckSample() {
		r.min = sample
		r.smoothed = sample
		r.rttvar = sample / 2
		r.firstAckSample = now
		return true
	}
	r.min = minDuration(r.min, r.latest)
	if r.peerMaxAckDelaySet {
		ackDelay = minDuration(ackDelay, r.peerMaxAckDelay)
	}
	adjusted := r.latest
	if r.latest >= r.min+ackDelay {
		adjusted = r.latest - ackDelay
	}
	rttvarSample := absDuration(r.smoothed - adjusted)
	r.rttvar = (3*r.rttvar + rttvarSample) / 4
	r.smoothed = (7*r.smoothed + adjusted) / 8
	return true
}

// Smoothed returns the smoothed RTT estimate.
func (r *RTT) Smoothed() time.Duration { return r.smoothed }

// Var returns the RTT variance estimate.
func (r *RTT) Var() time.Duration { return r.rttvar }

// Latest returns the most recent raw RTT sample.
func (r *RTT) Latest() time.Duration { return r.latest }

// ApplyMaxAckDelay records the peer's advertised max_ack_delay transport
// parameter, clamping future ACK delay samples (§4.4).
func (r *RTT) ApplyMaxAckDelay(d time.Duration) {
	r.peerMaxAckDelay = d
	r.peerMaxAckDelaySet = true
}

// MaxAckDelay returns the peer's max_ack_delay, or 0 if never applied or
// negative.
func (r *RTT) MaxAckDelay() time.Duration {
	if !r.peerMaxAckDelaySet || r.peerMaxAckDelay <= 0 {
		return 0
	}
	return r.peerMaxAckDelay
}
