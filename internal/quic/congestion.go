// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// WindowModifier is the minimal surface a pluggable congestion-control
// algorithm must expose so the generic Congestion[Alg] wrapper can read
// its current decisions without knowing its internals (§4.6).
type WindowModifier interface {
	// CongestionWindow returns the current congestion window in bytes.
	CongestionWindow() uint64
	// BytesInFlight returns the number of bytes the algorithm currently
	// believes are in flight.
	BytesInFlight() uint64
	// SSThresh returns the current slow-start threshold, or ^uint64(0)
	// if still in uncapped slow start.
	SSThresh() uint64
}

// CongestionAlgorithm is the pluggable strategy interface a concrete
// algorithm (NewReno-style, CUBIC, BBR, …) implements; Congestion[Alg]
// drives it from Status's event hooks (§4.6).
type CongestionAlgorithm interface {
	WindowModifier

	// Init seeds the algorithm's window at connection start from the
	// configured initial-window factor and the current max payload size.
	Init(config InternalConfig, maxUDPPayloadSize uint64)

	// OnPacketSent records a newly sent byte-counted packet.
	OnPacketSent(now time.Time, sentBytes uint64)

	// OnPacketAck records a newly acknowledged byte-counted packet.
	// sentTime is when the acknowledged packet was sent and ackedBytes its
	// size; inRecovery reports whether sentTime falls within an active
	// recovery period (so the ack should not reopen slow start).
	OnPacketAck(now time.Time, sentTime time.Time, ackedBytes uint64, inRecovery bool)

	// OnCongestionEvent reacts to a newly detected loss or ECN-CE mark at
	// sentTime, persistentCongestion reports whether the loss episode
	// also satisfies the persistent-congestion condition (§4.6.1), in
	// which case the algorithm should collapse to the minimum window.
	OnCongestionEvent(now time.Time, sentTime time.Time, persistentCongestion bool)

	// OnPacketDiscarded removes a packet's bytes from in-flight
	// accounting without treating it as a congestion signal (e.g. a
	// discarded packet-number space, or an MTU probe).
	OnPacketDiscarded(discardedBytes uint64)
}

// Congestion wraps a CongestionAlgorithm with the space-agnostic
// recovery-period bookkeeping RFC 9002 §7.3.2 assigns to every
// algorithm equally: the "am I in a new congestion event" test keyed off
// recovery start time, independent of what the algorithm itself does
// with that signal.
type Congestion[Alg CongestionAlgorithm] struct {
	// Alg must be set to a non-nil algorithm instance (e.g. &RenoAlgorithm{})
	// before Reset is first called — when Alg is itself a pointer type, as
	// it is for every algorithm in this package, the zero value is nil.
	Alg Alg

	recoveryStartTime time.Time
}

// Reset seeds the wrapped algorithm and clears the recovery period.
func (c *Congestion[Alg]) Reset(config InternalConfig, maxUDPPayloadSize uint64) {
	c.Alg.Init(config, maxUDPPayloadSize)
	c.recoveryStartTime = invalidTime
}

// InRecovery reports whether sentTime falls within the current recovery
// period (RFC 9002 §7.3.2): a packet sent at or before the start of the
// current recovery episode does not trigger a second congestion-window
// reduction for what is really the same loss episode. A packet sent
// after the recovery period started begins a new episode.
func (c *Congestion[Alg]) InRecovery(sentTime time.Time) bool {
	return validTime(c.recoveryStartTime) && !sentTime.After(c.recoveryStartTime)
}

// OnPacketSent forwards a send event to the wrapped algorithm.
func (c *Congestion[Alg]) OnPacketSent(now time.Time, sentBytes uint64) {
	c.Alg.OnPacketSent(now, sentBytes)
}

// OnPacketAck forwards an ack event, suppressing window growth for
// packets sent during the current recovery period.
func (c *Congestion[Alg]) OnPacketAck(now, sentTime time.Time, ackedBytes uint64) {
	c.Alg.OnPacketAck(now, sentTime, ackedBytes, c.InRecovery(sentTime))
}

// OnCongestionEvent opens a new recovery period starting at now for a
// loss or ECN-CE mark of a packet sent at sentTime, forwarding to the
// algorithm only when sentTime starts a new episode (RFC 9002 §7.3.2).
// An event for a packet sent within the current recovery period is
// ignored and leaves the recovery start time unchanged.
func (c *Congestion[Alg]) OnCongestionEvent(now, sentTime time.Time, persistentCongestion bool) {
	if c.InRecovery(sentTime) {
		return
	}
	c.recoveryStartTime = now
	c.Alg.OnCongestionEvent(now, sentTime, persistentCongestion)
}

// OnPacketDiscarded forwards a non-congestion bytes-in-flight removal.
func (c *Congestion[Alg]) OnPacketDiscarded(discardedBytes uint64) {
	c.Alg.OnPacketDiscarded(discardedBytes)
}

// CongestionWindow returns the wrapped algorithm's current window.
func (c *Congestion[Alg]) CongestionWindow() uint64 { return c.Alg.CongestionWindow() }

// BytesInFlight returns the wrapped algorithm's current in-flight count.
func (c *Congestion[Alg]) BytesInFlight() uint64 { return c.Alg.BytesInFlight() }

// SSThresh returns the wrapped algorithm's slow-start threshold.
func (c *Congestion[Alg]) SSThresh() uint64 { return c.Alg.SSThresh() }

// CanSend reports whether sentBytes more bytes may be sent without
// exceeding the current congestion window.
func (c *Congestion[Alg]) CanSend(sentBytes uint64) bool {
	return c.BytesInFlight()+sentBytes <= c.CongestionWindow()
}

// NullAlgorithm is a CongestionAlgorithm that never limits sending: an
// always-open window, for tests and for configurations that disable
// congestion control entirely (§4.6, mirroring the original's
// NullAlgorithm no-op template argument).
type NullAlgorithm struct {
	inFlight uint64
}

func (n *NullAlgorithm) Init(InternalConfig, uint64)                    {}
func (n *NullAlgorithm) CongestionWindow() uint64                       { return ^uint64(0) }
func (n *NullAlgorithm) SSThresh() uint64                                { return ^uint64(0) }
func (n *NullAlgorithm) BytesInFlight() uint64                           { return n.inFlight }
func (n *NullAlgorithm) OnPacketSent(_ time.Time, sentBytes uint64)      { n.inFlight += sentBytes }
func (n *NullAlgorithm) OnPacketDiscarded(discardedBytes uint64) {
	n.inFlight = subClamp(n.inFlight, discardedBytes)
}
func (n *NullAlgorithm) OnPacketAck(_ time.Time, _ time.Time, ackedBytes uint64, _ bool) {
	n.inFlight = subClamp(n.inFlight, ackedBytes)
}
func (n *NullAlgorithm) OnCongestionEvent(time.Time, time.Time, bool) {}

func subClamp(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
