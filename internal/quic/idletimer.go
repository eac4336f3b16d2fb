// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// IdleTimer tracks the connection's idle timeout (RFC 9000 §10.1): the
// deadline is pushed forward every time an ack-eliciting packet is sent or a packet is
// successfully decrypted, and the connection is dead once now reaches
// the deadline without either happening in the meantime.
type IdleTimer struct {
	deadline time.Time
	duration time.Duration
}

// Reset seeds the idle timer at connection start with the negotiated
// idle timeout (0 disables the timer, per RFC 9000 §10.1) and an initial
// deadline of now+duration.
func (t *IdleTimer) Reset(now time.Time, duration time.Duration) {
	t.duration = duration
	if duration <= 0 {
		t.deadline = invalidTime
		return
	}
	t.deadline = now.Add(duration)
}

// ApplyIdleTimeout re-applies a (possibly renegotiated) idle timeout,
// taking effect on the next OnPacketSent/OnPacketDecrypted.
func (t *IdleTimer) ApplyIdleTimeout(duration time.Duration) {
	t.duration = duration
}

// GetDeadline returns the current idle deadline, or the invalid sentinel
// if the idle timer is disabled.
func (t *IdleTimer) GetDeadline() time.Time {
	return t.deadline
}

// Timeout reports whether now has reached or passed the idle deadline.
func (t *IdleTimer) Timeout(now time.Time) bool {
	return validTime(t.deadline) && !now.Before(t.deadline)
}

// OnPacketDecrypted pushes the idle deadline forward after successfully
// decrypting an incoming packet.
func (t *IdleTimer) OnPacketDecrypted(now time.Time) {
	if t.duration <= 0 {
		return
	}
	t.deadline = now.Add(t.duration)
}

// OnPacketSent pushes the idle deadline forward after sending an
// ack-eliciting packet (RFC 9000 §10.1 counts only ack-eliciting packets
// sent, to avoid keeping a connection alive purely by replying to the
// peer's own keep-alives).
func (t *IdleTimer) OnPacketSent(now time.Time, ackEliciting bool) {
	if t.duration <= 0 || !ackEliciting {
		return
	}
	t.deadline = now.Add(t.duration)
}
