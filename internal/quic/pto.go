// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// PTOStatus tracks the probe-timeout backoff counter and which space, if
// any, currently needs a PTO probe sent (RFC 9002 §6.2).
type PTOStatus struct {
	count         uint64
	probeRequired [numSpaces]bool
}

// Reset clears the backoff counter and any pending probe requirement, as
// happens at connection start or on a Retry.
func (p *PTOStatus) Reset() {
	p.count = 0
	p.probeRequired = [numSpaces]bool{}
}

// Count returns the current PTO backoff count (doubles the computed
// duration each consecutive expiry, RFC 9002 §6.2.1).
func (p *PTOStatus) Count() uint64 {
	return p.count
}

// ProbeRequired reports whether space currently needs a PTO probe
// packet sent.
func (p *PTOStatus) ProbeRequired(space PacketNumberSpace) bool {
	return p.probeRequired[space.index()]
}

// OnPTOTimeout increments the backoff counter and marks ptoSpace (the
// earliest space whose loss-detection timer was the PTO) as requiring a
// probe.
func (p *PTOStatus) OnPTOTimeout(ptoSpace PacketNumberSpace) {
	p.count++
	p.probeRequired[ptoSpace.index()] = true
}

// OnPTONoFlight marks a space needing a probe despite having no bytes in
// flight there — used by the Initial/Handshake anti-deadlock rule (RFC
// 9002 §6.2.2.1: "client MUST send a packet" when it has no flight but
// has not confirmed the handshake).
func (p *PTOStatus) OnPTONoFlight(space PacketNumberSpace) {
	p.probeRequired[space.index()] = true
}

// OnAckReceived clears space's pending probe requirement (once any
// progress is acknowledged in that space, the specific probe obligation
// is discharged even if the PTO count itself is untouched here — the
// count is reset separately by ResetCount, which Status.OnAckReceived
// calls).
func (p *PTOStatus) OnAckReceived(space PacketNumberSpace) {
	p.probeRequired[space.index()] = false
}

// ResetCount clears the backoff counter back to zero. Status.OnAckReceived
// calls it when an ACK newly acknowledges packets and the peer's address
// is validated (RFC 9002 §6.2.1 "reset the PTO counter").
func (p *PTOStatus) ResetCount() {
	p.count = 0
}

// OnRetryReceived resets PTO state, mirroring Reset.
func (p *PTOStatus) OnRetryReceived() {
	p.Reset()
}

// ptoDuration computes the base (zero-backoff) PTO duration for the given
// RTT state, the peer's max ack delay (0 outside the Application space,
// per RFC 9002 §6.2.1), and the clock granularity: smoothed_rtt +
// max(4*rttvar, granularity) + max_ack_delay.
//
// This is only the count==0 value. BackoffDuration must be used to apply
// the 2^pto_count multiplier, since only the rttvar-or-granularity (and
// max_ack_delay) term scales with the backoff — smoothed_rtt itself never
// does (calc_probe_timeout_duration does not multiply it either).
func ptoDuration(rtt *RTT, maxAckDelay, granularity time.Duration) time.Duration {
	smoothed, scalable := ptoComponents(rtt, maxAckDelay, granularity)
	return smoothed + scalable
}

// ptoComponents splits the PTO duration into the part that is added
// unscaled (smoothed_rtt) and the part that is multiplied by the 2^count
// backoff (max(4*rttvar, granularity), plus max_ack_delay for the
// Application space), matching the original's calc_probe_timeout_duration
// (RFC 9002 §6.2.1).
func ptoComponents(rtt *RTT, maxAckDelay, granularity time.Duration) (smoothed, scalable time.Duration) {
	rttvarTerm := 4 * rtt.Var()
	if rttvarTerm < granularity {
		rttvarTerm = granularity
	}
	return rtt.Smoothed(), rttvarTerm + maxAckDelay
}

// BackoffDuration applies the 2^pto_count backoff multiplier to the
// scalable part of a PTO duration and adds the unscaled smoothed_rtt term
// back in (RFC 9002 §6.2.1).
func (p *PTOStatus) BackoffDuration(smoothed, scalable time.Duration) time.Duration {
	return smoothed + scalable<<p.count
}
