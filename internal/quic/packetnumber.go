// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"math/bits"

	"github.com/pkg/errors"
)

// PacketNumber is a connection-scoped, per-space, monotonically assigned
// 62-bit value (§3). It is modeled as an unsigned Go integer; the
// infinity sentinel represents "no packet number" (no largest-acked,
// no largest-seen, …) the way the original's packetnum::infinity does.
type PacketNumber uint64

// InfinitePacketNumber is the sentinel meaning "unset"/"no such packet
// number", mirroring futils' packetnum::infinity (~uint64(0)).
const InfinitePacketNumber PacketNumber = ^PacketNumber(0)

// WireValue is a truncated packet number as it appears on the wire: a
// big-endian value of 1–4 bytes, together with its length.
type WireValue struct {
	Value uint32
	Len   byte
}

// isWireLen reports whether len is a legal truncated packet-number length.
func isWireLen(length byte) bool {
	return length >= 1 && length <= 4
}

// log2Floor returns floor(log2(bit)) for bit > 0, computed with
// bits.Len64, and -1 for bit == 0.
func log2Floor(bit uint64) int {
	if bit == 0 {
		return -1
	}
	return bits.Len64(bit) - 1
}

// EncodePacketNumber truncates pn for the wire against largestAck — the
// largest packet number this side knows the peer has acknowledged (or
// InfinitePacketNumber if none yet). It emits the smallest of {1,2,3,4}
// bytes whose bit width exceeds log2(num_unacked)+1 (RFC 9000 §17.1),
// and fails if no such length exists (L1, §4.1).
func EncodePacketNumber(pn PacketNumber, largestAck PacketNumber) (WireValue, error) {
	var numUnacked uint64
	if largestAck == InfinitePacketNumber {
		numUnacked = uint64(pn) + 1
	} else {
		if pn < largestAck {
			return WireValue{}, errors.Errorf("quic: packet number %d precedes largest acked %d", pn, largestAck)
		}
		numUnacked = uint64(pn) - uint64(largestAck)
	}
	minBits := log2Floor(numUnacked) + 1
	minBytes := minBits / 8
	if minBits%8 != 0 {
		minBytes++
	}
	switch minBytes {
	case 1:
		return WireValue{Value: uint32(pn) & 0xff, Len: 1}, nil
	case 2:
		return WireValue{Value: uint32(pn) & 0xffff, Len: 2}, nil
	case 3:
		return WireValue{Value: uint32(pn) & 0xffffff, Len: 3}, nil
	case 4:
		return WireValue{Value: uint32(pn) & 0xffffffff, Len: 4}, nil
	default:
		return WireValue{}, errors.Errorf("quic: packet number %d cannot be truncated against largest acked %d (would need %d bytes)", pn, largestAck, minBytes)
	}
}

// DecodePacketNumber reconstructs the full packet number from a truncated
// wire value of the given length, against the largest packet number
// received so far in this space (§4.1, L1).
func DecodePacketNumber(value uint32, length byte, largestPN PacketNumber) (PacketNumber, error) {
	if !isWireLen(length) {
		return 0, errors.Errorf("quic: invalid packet number wire length %d", length)
	}
	var expected uint64
	if largestPN == InfinitePacketNumber {
		expected = 0
	} else {
		expected = uint64(largestPN) + 1
	}
	win := uint64(1) << (8 * length)
	mask := win - 1
	base := expected &^ mask
	next := base + win
	var prev uint64
	if base >= win {
		prev = base - win
	}
	delta := func(a, b uint64) uint64 {
		if a < b {
			return b - a
		}
		return a - b
	}
	closer := func(target, a, b uint64) uint64 {
		if delta(target, a) < delta(target, b) {
			return a
		}
		return b
	}
	candidate := closer(expected, prev+uint64(value), next+uint64(value))
	selected := closer(expected, base+uint64(value), candidate)
	return PacketNumber(selected), nil
}
