// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketNumberIssuerSequencing(t *testing.T) {
	var p PacketNumberIssuer
	p.Reset()

	pn, ok := p.OnPacketSent(0, true)
	assert.True(t, ok)
	assert.Equal(t, PacketNumber(0), pn)
	assert.Equal(t, PacketNumber(1), p.Next())
	assert.Equal(t, uint64(1), p.AckElicitingInFlightCount())
}

func TestPacketNumberIssuerRejectsOutOfOrder(t *testing.T) {
	var p PacketNumberIssuer
	p.Reset()
	p.OnPacketSent(0, true)

	pn, ok := p.OnPacketSent(5, true)
	assert.False(t, ok)
	assert.Equal(t, InfinitePacketNumber, pn)
}

func TestPacketNumberIssuerAckAndLossDecrementInFlight(t *testing.T) {
	var p PacketNumberIssuer
	p.Reset()
	p.OnPacketSent(0, true)
	p.OnPacketSent(1, true)
	assert.Equal(t, uint64(2), p.AckElicitingInFlightCount())

	p.OnPacketAck(true)
	assert.Equal(t, uint64(1), p.AckElicitingInFlightCount())

	p.OnPacketLost(true)
	assert.Equal(t, uint64(0), p.AckElicitingInFlightCount())
}

func TestPacketNumberIssuerRetryRestartsIssuance(t *testing.T) {
	var p PacketNumberIssuer
	p.Reset()
	p.OnPacketSent(0, true)
	p.OnPacketSent(1, true)

	p.OnRetryReceived()
	assert.Equal(t, PacketNumber(0), p.Next())
	assert.Equal(t, uint64(0), p.AckElicitingInFlightCount())
}

func TestPacketNumberAcceptorTracksLargest(t *testing.T) {
	var a PacketNumberAcceptor
	a.Reset()
	assert.Equal(t, InfinitePacketNumber, a.LargestReceivedPacketNumber())

	a.OnPacketReceived(5)
	a.OnPacketReceived(3)
	assert.Equal(t, PacketNumber(5), a.LargestReceivedPacketNumber())

	a.OnPacketReceived(9)
	assert.Equal(t, PacketNumber(9), a.LargestReceivedPacketNumber())
}
