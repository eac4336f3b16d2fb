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

func TestPacerAllowsBurstBeforeFirstUpdate(t *testing.T) {
	var p Pacer
	p.Reset(1200)
	now := time.Unix(0, 0)
	assert.True(t, p.CanSendNow(now, 1200))
}

func TestPacerUpdateComputesAdjustedBandwidth(t *testing.T) {
	var p Pacer
	p.Reset(1200)
	p.Update(DefaultPacerRatio, 12000, 100*time.Millisecond, 1200)

	// adjusted_bandwidth = (5 * 12000) / (4 * 0.1) = 150000 bytes/sec.
	assert.InDelta(t, 150000.0, p.AdjustedBandwidth(), 0.001)
}

func TestPacerUpdateIsNoopWithoutChange(t *testing.T) {
	var p Pacer
	p.Reset(1200)
	p.Update(DefaultPacerRatio, 12000, 100*time.Millisecond, 1200)
	first := p.AdjustedBandwidth()

	p.Update(DefaultPacerRatio, 12000, 100*time.Millisecond, 1200)
	assert.Equal(t, first, p.AdjustedBandwidth())
}

func TestPacerUpdateIgnoresZeroRTT(t *testing.T) {
	var p Pacer
	p.Reset(1200)
	p.Update(DefaultPacerRatio, 12000, 0, 1200)
	assert.Equal(t, float64(0), p.AdjustedBandwidth())
}

func TestPacerNextSendTimeDelaysWhenBudgetExhausted(t *testing.T) {
	var p Pacer
	p.Reset(1200)
	p.Update(DefaultPacerRatio, 1200, 100*time.Millisecond, 1200)

	now := time.Unix(0, 0)
	// Drain the initial burst, then the next chunk must wait.
	for p.CanSendNow(now, 1200) {
	}
	next := p.NextSendTime(now, 1200)
	assert.True(t, next.After(now))
}
