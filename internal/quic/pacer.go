// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"time"

	"golang.org/x/time/rate"
)

// Pacer spreads the congestion window's worth of sending out over
// roughly one RTT instead of sending it all in one burst, using a
// token-bucket budget scaled by the configured pacer ratio (§4.6,
// "N/D of congestion window per RTT"). It wraps golang.org/x/time/rate's
// limiter for the underlying token-bucket arithmetic, reconfiguring its
// rate and burst every time the congestion window or RTT estimate
// changes.
type Pacer struct {
	limiter        *rate.Limiter
	maxBurstSize   uint64
	lastWindow     uint64
	lastRTT        time.Duration
	adjustedBandwidth float64 // bytes/second
}

// Reset (re)initializes the pacer with an all-at-once limiter; it will
// be reconfigured by the first Update call once an RTT sample exists.
func (p *Pacer) Reset(maxUDPPayloadSize uint64) {
	p.maxBurstSize = maxUDPPayloadSize * 2
	p.limiter = rate.NewLimiter(rate.Inf, int(p.maxBurstSize))
	p.lastWindow = 0
	p.lastRTT = 0
	p.adjustedBandwidth = 0
}

// Update recomputes the pacing rate from the current congestion window
// and smoothed RTT: adjusted_bandwidth = (ratio.Num × window) /
// (ratio.Den × smoothedRTT), per the original's TokenBudgetPacer. A
// zero smoothedRTT leaves the limiter at its current configuration
// (no RTT sample yet to pace against).
func (p *Pacer) Update(ratio Ratio, window uint64, smoothedRTT time.Duration, maxUDPPayloadSize uint64) {
	if smoothedRTT <= 0 {
		return
	}
	if window == p.lastWindow && smoothedRTT == p.lastRTT {
		return
	}
	p.lastWindow = window
	p.lastRTT = smoothedRTT
	bandwidth := float64(ratio.Num) * float64(window) / (float64(ratio.Den) * smoothedRTT.Seconds())
	p.adjustedBandwidth = bandwidth
	if p.maxBurstSize < maxUDPPayloadSize*2 {
		p.maxBurstSize = maxUDPPayloadSize * 2
	}
	p.limiter.SetLimit(rate.Limit(bandwidth))
	p.limiter.SetBurst(int(p.maxBurstSize))
}

// AdjustedBandwidth returns the pacer's current target send rate in
// bytes/second.
func (p *Pacer) AdjustedBandwidth() float64 { return p.adjustedBandwidth }

// CanSendNow reports whether sentBytes may be sent immediately without
// exceeding the pacing budget. A true result consumes the corresponding
// tokens, so callers must only call it immediately before actually
// sending those bytes.
func (p *Pacer) CanSendNow(now time.Time, sentBytes uint64) bool {
	if p.limiter == nil {
		return true
	}
	return p.limiter.AllowN(now, int(sentBytes))
}

// NextSendTime returns the earliest time at which sentBytes more bytes
// may be sent under the current pacing budget, consuming the
// corresponding tokens as of that time (mirrors set_next_send_time's
// reservation semantics).
func (p *Pacer) NextSendTime(now time.Time, sentBytes uint64) time.Time {
	if p.limiter == nil {
		return now
	}
	r := p.limiter.ReserveN(now, int(sentBytes))
	if !r.OK() {
		return invalidTime
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return now
	}
	return now.Add(delay)
}
