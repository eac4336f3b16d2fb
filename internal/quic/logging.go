// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"time"

	units "github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConnectionID names the local diagnostic identity of a Status instance
// in log output (not to be confused with a QUIC wire connection ID,
// which is negotiated transport state out of this package's scope).
// It is derived once from a random UUID4, the way request-scoped
// identifiers are minted for log correlation in long-running services.
type ConnectionID uuid.UUID

// NewConnectionID mints a fresh random diagnostic connection ID.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New())
}

func (c ConnectionID) String() string { return uuid.UUID(c).String() }

// EventLogger is the full set of diagnostic callback hooks a Status
// instance fires as it processes events, mirroring the original's
// ConnLogCallbacks nine function pointers one-for-one. Every hook is
// optional; a zero-value EventLogger (or any nil field) silently does nothing, the
// way ConnLogger no-ops on a nil callbacks pointer.
//
// drop_packet and report_error are the two hooks §7's error handling
// routes through: an input-validation failure (a malformed wire value
// the core declines to act on, but which leaves the connection usable)
// fires OnDropPacket; a protocol-state failure (a condition the core
// treats as its own bug) fires OnReportError.
type EventLogger struct {
	OnDropPacket    func(space PacketNumberSpace, pn PacketNumber, reason error)
	OnDebug         func(msg string)
	OnReportError   func(err error)
	OnSendingPacket func(space PacketNumberSpace, pn PacketNumber, size uint64)
	OnRecvPacket    func(space PacketNumberSpace, pn PacketNumber)
	OnPTOFire       func(space PacketNumberSpace, count uint64)
	OnLossTimerState func(state LossTimerState, deadline time.Time)
	OnMTUProbe      func(size uint64)
	OnRTTState      func(smoothed, rttvar, latest time.Duration)
}

// logrusEventLogger adapts an EventLogger's hooks onto a structured
// logrus.FieldLogger, emitting one log line per lifecycle event rather
// than printf debugging.
type logrusEventLogger struct {
	log  logrus.FieldLogger
	conn ConnectionID
}

// NewLogrusEventLogger builds an EventLogger that writes every hook as a
// structured logrus entry tagged with conn's diagnostic connection ID.
func NewLogrusEventLogger(log logrus.FieldLogger, conn ConnectionID) EventLogger {
	l := &logrusEventLogger{log: log.WithField("conn_id", conn.String()), conn: conn}
	return EventLogger{
		OnDropPacket: func(space PacketNumberSpace, pn PacketNumber, reason error) {
			l.log.WithFields(logrus.Fields{"space": space, "pn": pn, "reason": reason}).Warn("packet dropped")
		},
		OnDebug: func(msg string) {
			l.log.Debug(msg)
		},
		OnReportError: func(err error) {
			l.log.WithError(err).Error("internal error")
		},
		OnSendingPacket: func(space PacketNumberSpace, pn PacketNumber, size uint64) {
			l.log.WithFields(logrus.Fields{"space": space, "pn": pn, "size": size}).Debug("sending packet")
		},
		OnRecvPacket: func(space PacketNumberSpace, pn PacketNumber) {
			l.log.WithFields(logrus.Fields{"space": space, "pn": pn}).Debug("packet received")
		},
		OnPTOFire: func(space PacketNumberSpace, count uint64) {
			l.log.WithFields(logrus.Fields{"space": space, "count": count}).Warn("pto fire")
		},
		OnLossTimerState: func(state LossTimerState, deadline time.Time) {
			l.log.WithFields(logrus.Fields{"state": state.String(), "deadline": deadline}).Debug("loss timer state")
		},
		OnMTUProbe: func(size uint64) {
			l.log.WithFields(logrus.Fields{
				"size":       size,
				"size_human": units.BytesSize(float64(size)),
			}).Info("mtu probe")
		},
		OnRTTState: func(smoothed, rttvar, latest time.Duration) {
			l.log.WithFields(logrus.Fields{"smoothed_rtt": smoothed, "rttvar": rttvar, "latest_rtt": latest}).Debug("rtt state")
		},
	}
}
