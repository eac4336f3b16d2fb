// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTTFirstSample(t *testing.T) {
	var r RTT
	config := DefaultInternalConfig()
	config.Clock = &fakeClock{}
	r.Reset(config)

	sent := time.Unix(0, 0)
	now := sent.Add(50 * time.Millisecond)
	ok := r.SampleRTT(config, now, sent, 0)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, r.Smoothed())
	assert.Equal(t, 25*time.Millisecond, r.Var())
	assert.True(t, r.HasFirstAckSample())
}

func TestRTTNegativeSampleRejected(t *testing.T) {
	var r RTT
	config := DefaultInternalConfig()
	config.Clock = &fakeClock{}
	r.Reset(config)

	sent := time.Unix(0, 1)
	now := time.Unix(0, 0)
	ok := r.SampleRTT(config, now, sent, 0)
	assert.False(t, ok)
	assert.False(t, r.HasFirstAckSample())
}

func TestRTTNeverNegativeAfterFirstSample(t *testing.T) {
	var r RTT
	config := DefaultInternalConfig()
	config.Clock = &fakeClock{}
	r.Reset(config)

	sent := time.Unix(0, 0)
	r.SampleRTT(config, sent.Add(10*time.Millisecond), sent, 0)
	r.SampleRTT(config, sent.Add(20*time.Millisecond), sent.Add(15*time.Millisecond), 0)
	r.SampleRTT(config, sent.Add(21*time.Millisecond), sent.Add(20*time.Millisecond), 0)
	assert.GreaterOrEqual(t, r.Smoothed(), time.Duration(0))
	assert.GreaterOrEqual(t, r.Var(), time.Duration(0))
}

func TestApplyMaxAckDelay(t *testing.T) {
	var r RTT
	r.ApplyMaxAckDelay(25 * time.Millisecond)
	assert.Equal(t, 25*time.Millisecond, r.MaxAckDelay())
}
