// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "github.com/pkg/errors"

// ACKRange is a closed range [Smallest, Largest] of acknowledged packet
// numbers, Largest >= Smallest (§3).
type ACKRange struct {
	Largest  uint64
	Smallest uint64
}

// ECNCounts carries the three ECN counters an ACK_ECN frame reports.
type ECNCounts struct {
	ECT0  uint64
	ECT1  uint64
	ECNCE uint64
}

// WireACKRange is one {gap, length} pair as it appears on the wire after
// the first ACK range, per RFC 9000 §19.3.1.
type WireACKRange struct {
	Gap    uint64
	Length uint64
}

// ACKFrame is the decoded/to-be-encoded form of an ACK or ACK_ECN frame.
type ACKFrame struct {
	ECN         bool
	LargestAck  uint64
	AckDelay    uint64
	FirstRange  uint64
	Ranges      []WireACKRange
	ECNCounts   ECNCounts
}

// isSortedACKRanges validates that ranges is a strictly decreasing,
// non-overlapping sequence of closed ranges, each separated from the
// previous one by at least one unacknowledged packet number (the wire
// gap field cannot encode adjacent ranges), required by both the wire
// encoding and ApplyACK (§4.1, §5 "Ordering guarantees").
func isSortedACKRanges(ranges []ACKRange) bool {
	if len(ranges) == 0 {
		return false
	}
	for i, r := range ranges {
		if r.Largest < r.Smallest {
			return false
		}
		if i == 0 {
			continue
		}
		prev := ranges[i-1]
		if r.Largest >= prev.Smallest || prev.Smallest-r.Largest < 2 {
			return false
		}
	}
	return true
}

// ToWireACKFrame converts a strictly-decreasing ACKRange list (largest
// range first) into the wire representation (L2). It fails if ranges is
// empty, unsorted, overlapping, or has an inverted range.
func ToWireACKFrame(ranges []ACKRange, ackDelay uint64, ecn *ECNCounts) (ACKFrame, error) {
	if !isSortedACKRanges(ranges) {
		return ACKFrame{}, errors.New("quic: ack ranges are not strictly decreasing and non-overlapping")
	}
	f := ACKFrame{
		LargestAck: ranges[0].Largest,
		FirstRange: ranges[0].Largest - ranges[0].Smallest,
		AckDelay:   ackDelay,
	}
	prev := ranges[0]
	for _, r := range ranges[1:] {
		// RFC 9000 §19.3.1: gap = prev.smallest - r.largest - 2
		f.Ranges = append(f.Ranges, WireACKRange{
			Gap:    prev.Smallest - r.Largest - 2,
			Length: r.Largest - r.Smallest,
		})
		prev = r
	}
	if ecn != nil {
		f.ECN = true
		f.ECNCounts = *ecn
	}
	return f, nil
}

// FromWireACKFrame reconstructs the ACKRange list from a decoded ACKFrame
// (L2's inverse). It fails if the reconstructed ranges are not strictly
// decreasing and non-overlapping, signaling a malformed frame.
func FromWireACKFrame(f ACKFrame) ([]ACKRange, error) {
	prev := ACKRange{
		Largest:  f.LargestAck,
		Smallest: f.LargestAck - f.FirstRange,
	}
	ranges := []ACKRange{prev}
	for _, w := range f.Ranges {
		r := ACKRange{
			Largest: prev.Smallest - w.Gap - 2,
		}
		r.Smallest = r.Largest - w.Length
		ranges = append(ranges, r)
		prev = r
	}
	if !isSortedACKRanges(ranges) {
		return nil, errors.New("quic: decoded ack ranges are not strictly decreasing and non-overlapping")
	}
	return ranges, nil
}

// EncodeAckDelay converts a real duration to the wire representation,
// scaled down by the local ACK-delay exponent (§6, default exponent 3 ==
// units of 8 microseconds).
func EncodeAckDelay(delayMicros uint64, exponent uint64) uint64 {
	return delayMicros / (uint64(1) << exponent)
}

// DecodeAckDelay converts a wire ACK-delay value back to microseconds
// using the peer's ACK-delay exponent (L3, §6).
func DecodeAckDelay(wire uint64, exponent uint64) uint64 {
	return wire << exponent
}
