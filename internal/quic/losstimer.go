// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// LossTimerState names which of the four loss-detection-timer regimes
// (RFC 9002 §6.2.2's set_loss_detection_timer) is currently armed.
type LossTimerState int

const (
	// LossTimerNone reports that no timer should be armed: nothing is in
	// flight in any space and the anti-amplification limit is not
	// reached. Handshake and address-validation state are not consulted.
	LossTimerNone LossTimerState = iota
	// LossTimerWaitForLoss reports that the earliest deadline is a
	// time-threshold loss-detection deadline in some space.
	LossTimerWaitForLoss
	// LossTimerAntiAmplification reports that sending is blocked by the
	// 3x anti-amplification limit, so no timer is armed even though
	// bytes are in flight.
	LossTimerAntiAmplification
	// LossTimerWaitForPTO reports that the earliest deadline is a probe
	// timeout.
	LossTimerWaitForPTO
)

// String renders the timer state for diagnostics.
func (s LossTimerState) String() string {
	switch s {
	case LossTimerNone:
		return "none"
	case LossTimerWaitForLoss:
		return "wait_for_loss"
	case LossTimerAntiAmplification:
		return "anti_amplification"
	case LossTimerWaitForPTO:
		return "wait_for_pto"
	default:
		return "unknown"
	}
}

// LossTimer holds the current armed-timer decision plus the space it
// belongs to, computed by setLossDetectionTimer each time send/ack/loss
// state changes (RFC 9002 §6.2.2).
type LossTimer struct {
	state    LossTimerState
	deadline time.Time
	space    PacketNumberSpace
}

// State returns the currently armed regime.
func (t *LossTimer) State() LossTimerState { return t.state }

// Deadline returns the current timer deadline; only meaningful when
// State() is LossTimerWaitForLoss or LossTimerWaitForPTO.
func (t *LossTimer) Deadline() time.Time { return t.deadline }

// Space returns the packet-number space the current deadline applies to.
func (t *LossTimer) Space() PacketNumberSpace { return t.space }

// setLossDetectionTimer implements RFC 9002 §6.2.2's four-branch
// priority: (1) nothing in flight in any space → no timer (handshake
// and address-validation state are not consulted);
// (2) blocked on anti-amplification → no timer, even with bytes in
// flight; (3) an earlier loss-detection (time-threshold) deadline exists
// → arm that; (4) otherwise → arm the PTO deadline for the earliest
// eligible space.
func (t *LossTimer) set(
	anythingInFlight bool,
	atAntiAmplificationLimit bool,
	lossDeadline time.Time,
	lossSpace PacketNumberSpace,
	ptoDeadline time.Time,
	ptoSpace PacketNumberSpace,
) {
	if !anythingInFlight && !atAntiAmplificationLimit {
		t.state = LossTimerNone
		t.deadline = invalidTime
		return
	}
	if atAntiAmplificationLimit {
		t.state = LossTimerAntiAmplification
		t.deadline = invalidTime
		return
	}
	if validTime(lossDeadline) {
		t.state = LossTimerWaitForLoss
		t.deadline = lossDeadline
		t.space = lossSpace
		return
	}
	t.state = LossTimerWaitForPTO
	t.deadline = ptoDeadline
	t.space = ptoSpace
}
