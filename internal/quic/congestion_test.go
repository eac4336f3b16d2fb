// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenoSlowStartGrowsWindowOnAck(t *testing.T) {
	var c Congestion[*RenoAlgorithm]
	c.Alg = &RenoAlgorithm{}
	config := DefaultInternalConfig()
	c.Reset(config, 1200)

	initial := c.CongestionWindow()
	now := time.Unix(0, 0)
	c.OnPacketSent(now, 1200)
	c.OnPacketAck(now.Add(time.Millisecond), now, 1200)
	assert.Greater(t, c.CongestionWindow(), initial)
}

func TestRenoCongestionEventHalvesWindow(t *testing.T) {
	var c Congestion[*RenoAlgorithm]
	c.Alg = &RenoAlgorithm{}
	config := DefaultInternalConfig()
	c.Reset(config, 1200)

	before := c.CongestionWindow()
	now := time.Unix(0, 0)
	c.OnCongestionEvent(now, now, false)
	assert.Less(t, c.CongestionWindow(), before)
}

func TestRenoPersistentCongestionCollapsesToMinimum(t *testing.T) {
	var c Congestion[*RenoAlgorithm]
	c.Alg = &RenoAlgorithm{}
	config := DefaultInternalConfig()
	c.Reset(config, 1200)

	now := time.Unix(0, 0)
	c.OnCongestionEvent(now, now, true)
	assert.Equal(t, minWindow(config, 1200), c.CongestionWindow())
}

func TestRecoveryPeriodSuppressesDoubleReduction(t *testing.T) {
	var c Congestion[*RenoAlgorithm]
	c.Alg = &RenoAlgorithm{}
	config := DefaultInternalConfig()
	c.Reset(config, 1200)

	now := time.Unix(0, 0)
	c.OnCongestionEvent(now, now, false)
	afterFirst := c.CongestionWindow()
	// A second loss whose packet was sent before the recovery period
	// started must not trigger a second reduction.
	c.OnCongestionEvent(now.Add(time.Millisecond), now.Add(-time.Millisecond), false)
	assert.Equal(t, afterFirst, c.CongestionWindow())
}

func TestNullAlgorithmNeverLimits(t *testing.T) {
	var c Congestion[*NullAlgorithm]
	c.Alg = &NullAlgorithm{}
	config := DefaultInternalConfig()
	c.Reset(config, 1200)
	assert.True(t, c.CanSend(1<<40))
}
