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

func TestBackoffDurationOnlyScalesTheRttvarTerm(t *testing.T) {
	var rtt RTT
	rtt.Reset(DefaultInternalConfig())
	rtt.SampleRTT(DefaultInternalConfig(), time.Unix(1, 0), time.Unix(0, 0), 0)

	smoothed, scalable := ptoComponents(&rtt, 0, time.Millisecond)

	var pto PTOStatus
	pto.Reset()
	base := pto.BackoffDuration(smoothed, scalable)
	assert.Equal(t, smoothed+scalable, base)

	pto.OnPTOTimeout(AppDataSpace)
	once := pto.BackoffDuration(smoothed, scalable)
	assert.Equal(t, smoothed+2*scalable, once, "smoothed_rtt must never scale with the backoff count")

	pto.OnPTOTimeout(AppDataSpace)
	twice := pto.BackoffDuration(smoothed, scalable)
	assert.Equal(t, smoothed+4*scalable, twice)
}
