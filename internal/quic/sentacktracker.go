// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

// sentAckEntry remembers the most recent packet sent in one space that
// carried an ACK frame, together with the largest_ack field that frame
// reported.
type sentAckEntry struct {
	valid      bool
	carrierPN  PacketNumber
	largestAck PacketNumber
}

// SentAckTracker records, per packet-number space, the packet number of
// the most recently sent packet that carried an ACK frame and the
// largest_ack value that frame reported. Once the peer acknowledges that
// carrier packet, it has necessarily seen everything up to largest_ack,
// so the corresponding receive history can be retired
// (RecvSpaceHistory.DeleteUnder) — the equivalent of the original's
// get_onertt_largest_acked_sent_ack.
type SentAckTracker struct {
	spaces [numSpaces]sentAckEntry
}

// OnACKFrameSent records that carrierPN, just sent in space, carried an
// ACK frame reporting largestAck as its largest acknowledged packet
// number. A later carrier overwrites an earlier, not-yet-acked one: only
// the most recent ACK frame's largest_ack is worth retiring history for.
func (t *SentAckTracker) OnACKFrameSent(space PacketNumberSpace, carrierPN, largestAck PacketNumber) {
	t.spaces[space.index()] = sentAckEntry{valid: true, carrierPN: carrierPN, largestAck: largestAck}
}

// OnPacketAcked reports the largest_ack value to retire in space if acked
// is the packet number of the carrier SentAckTracker is currently
// tracking there, consuming the tracked entry. Any other acked packet
// number leaves the entry in place and reports ok == false.
func (t *SentAckTracker) OnPacketAcked(space PacketNumberSpace, acked PacketNumber) (largestAck PacketNumber, ok bool) {
	e := &t.spaces[space.index()]
	if !e.valid || e.carrierPN != acked {
		return 0, false
	}
	largestAck = e.largestAck
	*e = sentAckEntry{}
	return largestAck, true
}
