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

func TestIdleTimerDisabledByZeroDuration(t *testing.T) {
	var it IdleTimer
	it.Reset(time.Unix(0, 0), 0)
	assert.False(t, validTime(it.GetDeadline()))
	assert.False(t, it.Timeout(time.Unix(1000, 0)))
}

func TestIdleTimerTimesOut(t *testing.T) {
	var it IdleTimer
	now := time.Unix(0, 0)
	it.Reset(now, 30*time.Second)
	assert.False(t, it.Timeout(now.Add(29*time.Second)))
	assert.True(t, it.Timeout(now.Add(30*time.Second)))
}

func TestIdleTimerOnlyAckElicitingSendsPushDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	var it IdleTimer
	it.Reset(now, 10*time.Second)
	original := it.GetDeadline()

	it.OnPacketSent(now.Add(5*time.Second), false)
	assert.Equal(t, original, it.GetDeadline())

	it.OnPacketSent(now.Add(5*time.Second), true)
	assert.Equal(t, now.Add(5*time.Second).Add(10*time.Second), it.GetDeadline())
}

func TestIdleTimerOnPacketDecryptedPushesDeadline(t *testing.T) {
	now := time.Unix(0, 0)
	var it IdleTimer
	it.Reset(now, 10*time.Second)

	it.OnPacketDecrypted(now.Add(8 * time.Second))
	assert.Equal(t, now.Add(18*time.Second), it.GetDeadline())
}
