// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsNilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observePacketSent(AppDataSpace)
		m.observePacketLost(InitialSpace)
		m.observeAckDelaySeconds(0.01)
		m.observeSmoothedRTTSeconds(0.05)
		m.observeCongestionWindow(12000)
		m.observePTOTimeout()
	})
	assert.Equal(t, "", m.Instance())
}

func TestMetricsRegistersWithUniqueInstanceLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1 := NewMetrics(reg)
	m2 := NewMetrics(reg)

	assert.NotEmpty(t, m1.Instance())
	assert.NotEqual(t, m1.Instance(), m2.Instance())

	assert.NotPanics(t, func() {
		m1.observePacketSent(AppDataSpace)
		m2.observePacketSent(AppDataSpace)
	})
}
