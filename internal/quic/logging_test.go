// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionIDIsUnique(t *testing.T) {
	a := NewConnectionID()
	b := NewConnectionID()
	assert.NotEqual(t, a.String(), b.String())
}

func TestLogrusEventLoggerEmitsHumanReadableMTUProbe(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	el := NewLogrusEventLogger(log, NewConnectionID())

	require.NotNil(t, el.OnMTUProbe)
	el.OnMTUProbe(1350)

	require.Len(t, hook.Entries, 1)
	entry := hook.Entries[0]
	assert.Equal(t, "mtu probe", entry.Message)
	assert.Equal(t, uint64(1350), entry.Data["size"])
	assert.NotEmpty(t, entry.Data["size_human"])
}

func TestLogrusEventLoggerAllHooksAreSet(t *testing.T) {
	log, _ := test.NewNullLogger()
	el := NewLogrusEventLogger(log, NewConnectionID())

	require.NotNil(t, el.OnDropPacket)
	require.NotNil(t, el.OnDebug)
	require.NotNil(t, el.OnReportError)
	require.NotNil(t, el.OnSendingPacket)
	require.NotNil(t, el.OnRecvPacket)
	require.NotNil(t, el.OnPTOFire)
	require.NotNil(t, el.OnLossTimerState)
	require.NotNil(t, el.OnMTUProbe)
	require.NotNil(t, el.OnRTTState)

	assert.NotPanics(t, func() {
		el.OnDropPacket(AppDataSpace, 0, errors.New("malformed"))
		el.OnDebug("handshake confirmed")
		el.OnReportError(errors.New("invariant violated"))
		el.OnSendingPacket(AppDataSpace, 0, 1200)
		el.OnRecvPacket(AppDataSpace, 0)
		el.OnPTOFire(AppDataSpace, 1)
		el.OnLossTimerState(LossTimerNone, time.Time{})
		el.OnMTUProbe(1350)
		el.OnRTTState(10*time.Millisecond, 5*time.Millisecond, 10*time.Millisecond)
	})
}
