// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileOverlaysNamedFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	const doc = `
packet_order_threshold: 5
idle_timeout: 45s
time_threshold:
  num: 11
  den: 8
`
	require.NoError(t, afero.WriteFile(fs, "/quic.yaml", []byte(doc), 0o644))

	base := DefaultInternalConfig()
	got, err := LoadConfigFile(fs, "/quic.yaml", base)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), got.PacketOrderThreshold)
	assert.Equal(t, 45*time.Second, got.IdleTimeout)
	assert.Equal(t, Ratio{Num: 11, Den: 8}, got.TimeThreshold)

	// Fields the overlay document omits are untouched.
	assert.Equal(t, base.WindowInitialFactor, got.WindowInitialFactor)
	assert.Equal(t, base.PeerAckDelayExponent, got.PeerAckDelayExponent)
}

func TestLoadConfigFileMissingFileIsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadConfigFile(fs, "/missing.yaml", DefaultInternalConfig())
	assert.Error(t, err)
}

func TestLoadConfigFileMalformedYAMLIsError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("packet_order_threshold: [not-a-number"), 0o644))
	_, err := LoadConfigFile(fs, "/bad.yaml", DefaultInternalConfig())
	assert.Error(t, err)
}

func TestPayloadSizeMonotoneGrowth(t *testing.T) {
	var p PayloadSize
	p.Reset(1200)
	assert.Equal(t, uint64(1200), p.Current())

	assert.False(t, p.Update(1200))
	assert.False(t, p.Update(1000))
	assert.Equal(t, uint64(1200), p.Current())

	assert.True(t, p.Update(1452))
	assert.Equal(t, uint64(1452), p.Current())
}

func TestMinWindow(t *testing.T) {
	config := DefaultInternalConfig()
	assert.Equal(t, config.WindowMinimumFactor*1200, minWindow(config, 1200))
}
