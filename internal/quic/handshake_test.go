// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAntiAmplificationLimit(t *testing.T) {
	var h HandshakeStatus
	h.Reset(false /* isClient */, false)
	h.OnDatagramReceived(100)
	h.OnBytesSent(300)

	assert.True(t, h.IsAtAntiAmplificationLimit())

	h.ValidatePeerAddress()
	assert.False(t, h.IsAtAntiAmplificationLimit())
}

func TestAntiAmplificationBudgetRemaining(t *testing.T) {
	var h HandshakeStatus
	h.Reset(false, false)
	h.OnDatagramReceived(50)
	assert.Equal(t, uint64(150), h.AmplificationBudgetRemaining())
	h.OnBytesSent(100)
	assert.Equal(t, uint64(50), h.AmplificationBudgetRemaining())
}

func TestClientStartsWithPeerAddressValidated(t *testing.T) {
	var h HandshakeStatus
	h.Reset(true, false)
	assert.True(t, h.PeerAddressValidated())
	assert.False(t, h.IsAtAntiAmplificationLimit())
}

func TestRetryRequiredFlag(t *testing.T) {
	var h HandshakeStatus
	h.Reset(false, true)
	assert.True(t, h.RetryRequired())
}
