// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketStatusEmptyIsPathProbe(t *testing.T) {
	var s PacketStatus
	assert.True(t, s.IsPathProbe())
	assert.False(t, s.IsACKEliciting())
	assert.False(t, s.IsByteCounted())
}

func TestPacketStatusPathProbeFrameKeepsPathProbe(t *testing.T) {
	var s PacketStatus
	s.AddFrame(FrameTypePathChallenge)
	assert.True(t, s.IsPathProbe())
	assert.True(t, s.IsACKEliciting())
	assert.True(t, s.IsByteCounted())
}

func TestPacketStatusAnyNonProbeFrameClearsPathProbe(t *testing.T) {
	var s PacketStatus
	s.AddFrame(FrameTypePathChallenge)
	s.AddFrame(FrameTypeStream)
	assert.False(t, s.IsPathProbe())
}

func TestPacketStatusACKOnlyIsNotACKElicitingOrByteCounted(t *testing.T) {
	var s PacketStatus
	s.AddFrame(FrameTypeACK)
	assert.False(t, s.IsACKEliciting())
	assert.False(t, s.IsByteCounted())
	// An ACK frame is not one of the four path-probe frame types, so a
	// packet carrying only an ACK is not a path probe either.
	assert.False(t, s.IsPathProbe())
}

func TestPacketStatusMTUProbeFlagIsIndependentOfPathProbe(t *testing.T) {
	var s PacketStatus
	s.AddFrame(FrameTypeStream)
	s.SetMTUProbe()
	assert.True(t, s.IsMTUProbe())
	assert.False(t, s.IsPathProbe())
}

func TestPacketStatusSkipped(t *testing.T) {
	var s PacketStatus
	assert.False(t, s.IsSkipped())
	s.SetSkipped()
	assert.True(t, s.IsSkipped())
}
