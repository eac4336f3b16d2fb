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

func TestLossTimerNoneWhenIdle(t *testing.T) {
	var lt LossTimer
	lt.set(false, false, invalidTime, InitialSpace, invalidTime, InitialSpace)
	assert.Equal(t, LossTimerNone, lt.State())
	assert.False(t, validTime(lt.Deadline()))
}

func TestLossTimerAntiAmplificationOutranksEverything(t *testing.T) {
	var lt LossTimer
	lossDeadline := time.Unix(100, 0)
	ptoDeadline := time.Unix(200, 0)
	lt.set(true, true, lossDeadline, AppDataSpace, ptoDeadline, AppDataSpace)
	assert.Equal(t, LossTimerAntiAmplification, lt.State())
	assert.False(t, validTime(lt.Deadline()))
}

func TestLossTimerPrefersLossDeadlineOverPTO(t *testing.T) {
	var lt LossTimer
	lossDeadline := time.Unix(100, 0)
	ptoDeadline := time.Unix(200, 0)
	lt.set(true, false, lossDeadline, HandshakeSpace, ptoDeadline, AppDataSpace)
	assert.Equal(t, LossTimerWaitForLoss, lt.State())
	assert.Equal(t, lossDeadline, lt.Deadline())
	assert.Equal(t, HandshakeSpace, lt.Space())
}

func TestLossTimerFallsBackToPTO(t *testing.T) {
	var lt LossTimer
	ptoDeadline := time.Unix(200, 0)
	lt.set(true, false, invalidTime, InitialSpace, ptoDeadline, AppDataSpace)
	assert.Equal(t, LossTimerWaitForPTO, lt.State())
	assert.Equal(t, ptoDeadline, lt.Deadline())
	assert.Equal(t, AppDataSpace, lt.Space())
}

func TestLossTimerStateString(t *testing.T) {
	assert.Equal(t, "none", LossTimerNone.String())
	assert.Equal(t, "wait_for_loss", LossTimerWaitForLoss.String())
	assert.Equal(t, "anti_amplification", LossTimerAntiAmplification.String())
	assert.Equal(t, "wait_for_pto", LossTimerWaitForPTO.String())
}
