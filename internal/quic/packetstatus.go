// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

// PacketStatus is the per-packet bitset computed while assembling an
// outbound packet, per §4.8. It accumulates as frames are appended via
// AddFrame, then is fixed for the lifetime of the resulting SentPacket.
type PacketStatus struct {
	flags packetStatusFlag
}

type packetStatusFlag byte

const (
	flagACKEliciting packetStatusFlag = 1 << iota
	flagByteCounted
	flagNonPathProbe
	flagMTUProbe
	flagSkipped
)

// AddFrame folds frame type ft into the bitset: ack-eliciting and
// byte-counted are sticky OR accumulations across every frame in the
// packet; non-path-probe becomes true the moment any single frame is not
// one of the four path-probe frame types.
func (s *PacketStatus) AddFrame(ft FrameType) {
	if IsACKEliciting(ft) {
		s.flags |= flagACKEliciting
	}
	if IsByteCounted(ft) {
		s.flags |= flagByteCounted
	}
	if !IsPathProbe(ft) {
		s.flags |= flagNonPathProbe
	}
}

// IsACKEliciting reports whether any frame folded into s required an ACK.
func (s PacketStatus) IsACKEliciting() bool { return s.flags&flagACKEliciting != 0 }

// IsByteCounted reports whether any frame folded into s counts toward
// bytes_in_flight.
func (s PacketStatus) IsByteCounted() bool { return s.flags&flagByteCounted != 0 }

// IsPathProbe reports whether every frame folded into s was a path-probe
// frame type (so the packet itself is a path probe). A packet that never
// had any frame added is trivially a path probe, matching an empty
// all-of predicate.
func (s PacketStatus) IsPathProbe() bool { return s.flags&flagNonPathProbe == 0 }

// SetMTUProbe marks the packet as a PMTU discovery probe. Packet loss of
// an MTU probe must not affect congestion control (§4.6).
//
// The original C++ source has a known bug here: its IsMtuProbe() reads
// back the non-path-probe bit instead of the MTU-probe bit (§9 "Open
// questions"). This implementation does not replicate that bug — IsMTUProbe
// reports the dedicated flag.
func (s *PacketStatus) SetMTUProbe() { s.flags |= flagMTUProbe }

// IsMTUProbe reports whether the packet was flagged as an MTU probe.
func (s PacketStatus) IsMTUProbe() bool { return s.flags&flagMTUProbe != 0 }

// SetSkipped marks a packet number as deliberately skipped (optimistic
// ACK detection), never actually sent on the wire.
func (s *PacketStatus) SetSkipped() { s.flags |= flagSkipped }

// IsSkipped reports whether the packet number was skipped.
func (s PacketStatus) IsSkipped() bool { return s.flags&flagSkipped != 0 }
