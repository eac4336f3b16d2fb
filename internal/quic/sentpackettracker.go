// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// sentSpace holds the in-flight sent-packet bookkeeping for one
// packet-number space, kept in ascending packet-number order (§4.5).
type sentSpace struct {
	packets      []SentPacket
	largestAcked PacketNumber

	// lossTime is the earliest time-threshold loss deadline outstanding
	// in this space, or the invalid sentinel.
	lossTime time.Time
}

func (s *sentSpace) hasLargestAcked() bool { return s.largestAcked != InfinitePacketNumber }

// LargestAcked returns the largest packet number the peer has acknowledged
// in space, or InfinitePacketNumber if none yet. Callers encoding an
// outbound packet number against the peer's knowledge (RFC 9000 §17.1)
// use this as the truncation reference.
func (t *SentPacketTracker) LargestAcked(space PacketNumberSpace) PacketNumber {
	return t.spaces[space.index()].largestAcked
}

// SentPacketTracker owns the per-space sent-packet containers and
// implements RFC 9002 §6's ack processing and loss detection. It holds
// no congestion or RTT state itself — callers (Status) forward the
// packets this reports to the RTT estimator and to the pluggable
// congestion algorithm, keeping this type algorithm-agnostic.
type SentPacketTracker struct {
	spaces [numSpaces]sentSpace
}

// Reset clears every space back to empty, as happens at connection
// start.
func (t *SentPacketTracker) Reset() {
	for i := range t.spaces {
		t.spaces[i] = sentSpace{largestAcked: InfinitePacketNumber}
	}
}

// Add records a newly sent packet, which must carry a strictly
// increasing packet number within its space (P3).
func (t *SentPacketTracker) Add(space PacketNumberSpace, pkt SentPacket) {
	s := &t.spaces[space.index()]
	s.packets = append(s.packets, pkt)
}

// AnythingInFlight reports whether any space has at least one
// outstanding sent packet.
func (t *SentPacketTracker) AnythingInFlight() bool {
	for i := range t.spaces {
		if len(t.spaces[i].packets) > 0 {
			return true
		}
	}
	return false
}

// HasInFlight reports whether space has at least one outstanding sent
// packet.
func (t *SentPacketTracker) HasInFlight(space PacketNumberSpace) bool {
	return len(t.spaces[space.index()].packets) > 0
}

// AckElicitingInFlight reports whether space has at least one
// outstanding ack-eliciting sent packet (used by the PTO "no flight"
// anti-deadlock rule, RFC 9002 §6.2.2.1).
func (t *SentPacketTracker) AckElicitingInFlight(space PacketNumberSpace) bool {
	for _, p := range t.spaces[space.index()].packets {
		if p.Status.IsACKEliciting() {
			return true
		}
	}
	return false
}

// OldestAckElicitingSentTime returns the send time of the
// oldest-outstanding ack-eliciting packet in space, used to anchor the
// PTO deadline (RFC 9002 §6.2.1: "the earliest sent time among the
// unacknowledged ack-eliciting packets").
func (t *SentPacketTracker) OldestAckElicitingSentTime(space PacketNumberSpace) (time.Time, bool) {
	for _, p := range t.spaces[space.index()].packets {
		if p.Status.IsACKEliciting() {
			return p.TimeSent, true
		}
	}
	return time.Time{}, false
}

// LossTime returns the earliest outstanding time-threshold loss
// deadline for space, or the invalid sentinel if none is armed.
func (t *SentPacketTracker) LossTime(space PacketNumberSpace) time.Time {
	return t.spaces[space.index()].lossTime
}

// EarliestLossTime returns the space/deadline pair of the earliest
// time-threshold loss deadline across all spaces, or (NoSpace,
// invalid) if none is armed.
func (t *SentPacketTracker) EarliestLossTime() (PacketNumberSpace, time.Time) {
	best := NoSpace
	var bestTime time.Time
	for i := range t.spaces {
		lt := t.spaces[i].lossTime
		if !validTime(lt) {
			continue
		}
		if !validTime(bestTime) || lt.Before(bestTime) {
			bestTime = lt
			best = PacketNumberSpace(i)
		}
	}
	return best, bestTime
}

// AckedPacket is a SentPacket removed from tracking because it was
// acknowledged.
type AckedPacket = SentPacket

// LostPacket is a SentPacket removed from tracking because it was
// declared lost.
type LostPacket = SentPacket

// OnAckReceived applies a decoded ACK frame's ranges (largest range
// first) to space: every sent packet they cover is removed from
// tracking and returned as newly acked, in ascending packet-number
// order. largestNewlyAckedIsAckEliciting reports whether the largest
// newly-acked packet number was itself ack-eliciting, the condition RFC
// 9002 §5.1 requires before an RTT sample may be taken from this ACK.
func (t *SentPacketTracker) OnAckReceived(space PacketNumberSpace, ranges []ACKRange) (acked []AckedPacket, largestNewlyAcked PacketNumber, largestNewlyAckedIsAckEliciting bool) {
	s := &t.spaces[space.index()]
	if len(ranges) == 0 || len(s.packets) == 0 {
		return nil, InfinitePacketNumber, false
	}
	largestNewlyAcked = InfinitePacketNumber
	remaining := s.packets[:0]
	for _, p := range s.packets {
		if inAnyRange(p.PacketNumber, ranges) {
			acked = append(acked, p)
			if largestNewlyAcked == InfinitePacketNumber || p.PacketNumber > largestNewlyAcked {
				largestNewlyAcked = p.PacketNumber
				largestNewlyAckedIsAckEliciting = p.Status.IsACKEliciting()
			}
			continue
		}
		remaining = append(remaining, p)
	}
	s.packets = remaining
	if largestNewlyAcked != InfinitePacketNumber && (!s.hasLargestAcked() || largestNewlyAcked > s.largestAcked) {
		s.largestAcked = largestNewlyAcked
	}
	return acked, largestNewlyAcked, largestNewlyAckedIsAckEliciting
}

func inAnyRange(pn PacketNumber, ranges []ACKRange) bool {
	for _, r := range ranges {
		if uint64(pn) >= r.Smallest && uint64(pn) <= r.Largest {
			return true
		}
	}
	return false
}

// DetectAndRemoveLostPackets implements RFC 9002 §6.1's loss detection
// for one space: a sent packet is declared lost if it is both
// unacknowledged and either (a) its packet number is at least
// pnOrderThreshold below the largest acknowledged packet number in this
// space (packet-order threshold, P5), or (b) it was sent at or before
// now-lossDelay (time threshold). Packets within the time-threshold
// window but not yet past it keep the space's lossTime armed at their
// sent-time+lossDelay instead. Returns the newly lost packets in
// ascending packet-number order.
func (t *SentPacketTracker) DetectAndRemoveLostPackets(space PacketNumberSpace, now time.Time, lossDelay time.Duration, pnOrderThreshold uint64) []LostPacket {
	s := &t.spaces[space.index()]
	s.lossTime = invalidTime
	if !s.hasLargestAcked() || len(s.packets) == 0 {
		return nil
	}
	var lost []LostPacket
	remaining := s.packets[:0]
	for _, p := range s.packets {
		if p.PacketNumber > s.largestAcked {
			remaining = append(remaining, p)
			continue
		}
		lossDeadline := p.TimeSent.Add(lossDelay)
		orderLost := uint64(s.largestAcked)-uint64(p.PacketNumber) >= pnOrderThreshold
		timeLost := !now.Before(lossDeadline)
		switch {
		case orderLost || timeLost:
			lost = append(lost, p)
		default:
			remaining = append(remaining, p)
			s.lossTime = earliest(s.lossTime, lossDeadline)
		}
	}
	s.packets = remaining
	return lost
}

// OnPacketNumberSpaceDiscarded clears space entirely (Initial discarded
// on first Handshake byte, Handshake discarded on handshake
// confirmation, RFC 9001 §4.9) and returns the packets that were still
// outstanding, so the caller can cancel their waiters and remove their
// bytes from the congestion controller's in-flight count without
// treating the discard as a loss.
func (t *SentPacketTracker) OnPacketNumberSpaceDiscarded(space PacketNumberSpace) []SentPacket {
	s := &t.spaces[space.index()]
	discarded := s.packets
	*s = sentSpace{largestAcked: InfinitePacketNumber}
	return discarded
}

// OnRetryReceived discards the Initial space's sent packets: a Retry
// restarts the handshake from scratch (§5 "Retry handling").
func (t *SentPacketTracker) OnRetryReceived() []SentPacket {
	return t.OnPacketNumberSpaceDiscarded(InitialSpace)
}

// PersistentCongestion reports whether lost, the packets newly declared
// lost in one DetectAndRemoveLostPackets call, together span a duration
// of at least the PTO-based persistent-congestion window (RFC 9002
// §7.6.2): it takes the earliest and latest lost, ack-eliciting packets
// in lost and requires the gap between their send times to reach the
// threshold duration. It does not check whether an acknowledged packet
// was sent between them. Per RFC 9002 §7.6.1 and the original's has_first_ack_sample
// guard, the check never fires before the RTT estimator has taken its
// first sample, and only considers packets sent after that sample.
func PersistentCongestion(lost []LostPacket, rtt *RTT, threshold time.Duration) bool {
	if !rtt.HasFirstAckSample() {
		return false
	}
	firstSample := rtt.FirstAckSample()
	var first, last time.Time
	count := 0
	for _, p := range lost {
		if !p.Status.IsACKEliciting() {
			continue
		}
		if !p.TimeSent.After(firstSample) {
			continue
		}
		if count == 0 {
			first = p.TimeSent
		}
		last = p.TimeSent
		count++
	}
	if count < 2 {
		return false
	}
	return last.Sub(first) >= threshold
}

// PersistentCongestionDuration computes the RFC 9002 §7.6.2 threshold:
// (smoothed_rtt + max(4*rttvar, granularity) + max_ack_delay) ×
// persistent_congestion_threshold.
func PersistentCongestionDuration(rtt *RTT, maxAckDelay, granularity time.Duration, thresholdCount uint64) time.Duration {
	rttvarTerm := 4 * rtt.Var()
	if rttvarTerm < granularity {
		rttvarTerm = granularity
	}
	base := rtt.Smoothed() + rttvarTerm + maxAckDelay
	return base * time.Duration(thresholdCount)
}
