// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Ratio is a small rational used for the time-loss threshold and the
// pacer's bandwidth fraction (§3).
type Ratio struct {
	Num int64 `yaml:"num"`
	Den int64 `yaml:"den"`
}

// Default tunables, the interface constants of §6.
const (
	DefaultInitialRTT                  = 333 * time.Millisecond
	DefaultPacketOrderThreshold         = 3
	DefaultAmplificationFactor          = 3
	DefaultWindowInitialFactor          = 10
	DefaultWindowMinimumFactor          = 2
	DefaultAckDelayExponent              = 3
	DefaultPersistentCongestionThreshold = 3
	DefaultDelayedACKPacketCount          = 2
)

// DefaultTimeThreshold is the 9/8 loss-time multiplier from §6.
var DefaultTimeThreshold = Ratio{Num: 9, Den: 8}

// DefaultPacerRatio is the pacer's N/D bandwidth fraction (5/4, §6).
var DefaultPacerRatio = Ratio{Num: 5, Den: 4}

// Config holds the immutable-per-connection tunables (§3). It is the
// caller-facing type; InternalConfig layers on the locally negotiated
// parameters the core itself owns.
type Config struct {
	WindowInitialFactor uint64 `yaml:"window_initial_factor"`
	WindowMinimumFactor uint64 `yaml:"window_minimum_factor"`

	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	HandshakeIdleTimeout time.Duration `yaml:"handshake_idle_timeout"`
	InitialRTT           time.Duration `yaml:"initial_rtt"`

	PacketOrderThreshold uint64        `yaml:"packet_order_threshold"`
	TimeThreshold        Ratio         `yaml:"time_threshold"`
	DelayACKPacketCount  uint64        `yaml:"delay_ack_packet_count"`
	UseAckDelay          bool          `yaml:"use_ack_delay"`

	PacerRatio Ratio `yaml:"pacer_ratio"`

	PersistentCongestionThreshold uint64 `yaml:"persistent_congestion_threshold"`

	PingDuration time.Duration `yaml:"ping_duration"`

	RetryRequired bool `yaml:"retry_required"`

	// PathValidationTimeoutFactor scales the PTO-with-max-ack-delay
	// duration to derive a migration path-validation deadline; the core
	// only exposes the resulting deadline (§1 Non-goals: the path
	// validation state machine itself is out of scope).
	PathValidationTimeoutFactor uint64 `yaml:"path_validation_timeout_factor"`

	Clock Clock `yaml:"-"`
}

// InternalConfig extends Config with the negotiated idle timeout and the
// local ACK-delay parameters (§3).
type InternalConfig struct {
	Config `yaml:",inline"`

	IdleTimeout         time.Duration `yaml:"idle_timeout"`
	LocalAckDelayExponent uint64      `yaml:"local_ack_delay_exponent"`
	LocalMaxAckDelay     time.Duration `yaml:"local_max_ack_delay"`

	// PeerAckDelayExponent is the ack_delay_exponent transport parameter
	// the peer advertised, needed to decode the ACK frames it sends
	// (transport-parameter negotiation itself is out of scope; callers
	// fill this in once negotiation completes).
	PeerAckDelayExponent uint64 `yaml:"peer_ack_delay_exponent"`
}

// DefaultConfig returns a Config populated with the §6 interface
// constants and a SystemClock.
func DefaultConfig() Config {
	return Config{
		WindowInitialFactor:           DefaultWindowInitialFactor,
		WindowMinimumFactor:           DefaultWindowMinimumFactor,
		InitialRTT:                    DefaultInitialRTT,
		PacketOrderThreshold:          DefaultPacketOrderThreshold,
		TimeThreshold:                 DefaultTimeThreshold,
		DelayACKPacketCount:           DefaultDelayedACKPacketCount,
		UseAckDelay:                   true,
		PacerRatio:                    DefaultPacerRatio,
		PersistentCongestionThreshold: DefaultPersistentCongestionThreshold,
		PathValidationTimeoutFactor:   1,
		Clock:                         SystemClock{},
	}
}

// DefaultInternalConfig returns an InternalConfig built on DefaultConfig,
// with the local ACK-delay exponent defaulted per §6.
func DefaultInternalConfig() InternalConfig {
	return InternalConfig{
		Config:                DefaultConfig(),
		LocalAckDelayExponent: DefaultAckDelayExponent,
		PeerAckDelayExponent:  DefaultAckDelayExponent,
	}
}

// LoadConfigFile reads a YAML tuning document through fs and overlays it
// onto base, leaving any field the document omits untouched. This is an
// operator-facing overlay on top of DefaultConfig/DefaultInternalConfig;
// afero lets tests exercise it against an in-memory filesystem.
func LoadConfigFile(fs afero.Fs, path string, base InternalConfig) (InternalConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return base, errors.Wrapf(err, "quic: reading config file %q", path)
	}
	var overlay struct {
		InternalConfig `yaml:",inline"`
	}
	overlay.InternalConfig = base
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return base, errors.Wrapf(err, "quic: parsing config file %q", path)
	}
	return overlay.InternalConfig, nil
}

// PayloadSize tracks the current maximum UDP payload size, growing
// monotonically as PMTU discovery succeeds (RFC 9000 §14.3).
type PayloadSize struct {
	maxUDPPayloadSize uint64
}

// Reset sets the initial payload size (e.g. the minimum safe datagram
// size) at connection start.
func (p *PayloadSize) Reset(size uint64) {
	p.maxUDPPayloadSize = size
}

// Update applies a PMTU probe success. It is a no-op — and returns false
// — if size does not exceed the current value: PMTU growth is strictly
// monotone.
func (p *PayloadSize) Update(size uint64) bool {
	if size <= p.maxUDPPayloadSize {
		return false
	}
	p.maxUDPPayloadSize = size
	return true
}

// Current returns the current maximum UDP payload size.
func (p *PayloadSize) Current() uint64 {
	return p.maxUDPPayloadSize
}

// minWindow returns the minimum congestion window for the given payload
// size (§6, window_minimum_factor × max_payload).
func minWindow(config InternalConfig, maxUDPPayloadSize uint64) uint64 {
	return config.WindowMinimumFactor * maxUDPPayloadSize
}
