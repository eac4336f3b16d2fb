// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// Status is the single-threaded façade composing every recovery
// component into one per-connection actor: sent-packet tracking,
// receive history and ACK generation, RTT estimation, loss detection,
// the pluggable congestion algorithm, pacing, and the timer fabric
// that drives them all (§4.12). Callers own the event loop; Status
// never spawns goroutines and none of its methods may be re-entered
// from within a callback.
//
// Alg is the pluggable congestion-control strategy; see
// CongestionAlgorithm and RenoAlgorithm. Congestion.Alg must be set to a
// live algorithm instance before Init is called.
type Status[Alg CongestionAlgorithm] struct {
	Config InternalConfig

	RTT        RTT
	PTO        PTOStatus
	LossTimer  LossTimer
	Congestion Congestion[Alg]
	Payload    PayloadSize
	Handshake  HandshakeStatus
	Idle       IdleTimer

	Issuer   [numSpaces]PacketNumberIssuer
	Acceptor [numSpaces]PacketNumberAcceptor

	Sent     SentPacketTracker
	Recv     RecvPacketHistory
	Acks     AckLostArena
	SentAcks SentAckTracker

	closeTimer Timer

	Log     EventLogger
	Metrics *Metrics

	isClient bool
}

// Init resets every component to its connection-start state. isClient
// selects the asymmetric peer-address-validation default (§4.7).
func (s *Status[Alg]) Init(config InternalConfig, isClient bool, maxUDPPayloadSize uint64) {
	s.Config = config
	s.isClient = isClient
	s.RTT.Reset(config)
	s.PTO.Reset()
	s.LossTimer = LossTimer{}
	s.Congestion.Reset(config, maxUDPPayloadSize)
	s.Payload.Reset(maxUDPPayloadSize)
	s.Handshake.Reset(isClient, config.RetryRequired)
	s.Idle.Reset(config.Clock.Now(), config.IdleTimeout)
	for i := range s.Issuer {
		s.Issuer[i] = PacketNumberIssuer{}
	}
	for i := range s.Acceptor {
		s.Acceptor[i] = PacketNumberAcceptor{}
	}
	s.Sent.Reset()
	s.Recv = RecvPacketHistory{}
	s.Acks = AckLostArena{}
	s.SentAcks = SentAckTracker{}
	s.closeTimer = Timer{}
}

// now returns the configured clock's current time.
func (s *Status[Alg]) now() time.Time { return s.Config.Clock.Now() }

// granularity returns the configured clock's reporting resolution.
func (s *Status[Alg]) granularity() time.Duration { return s.Config.Clock.Granularity() }

// maxAckDelayForSpace returns the peer's max ack delay for space: 0
// outside the Application space, where acks are never delayed (RFC 9002
// §6.2.1).
func (s *Status[Alg]) maxAckDelayForSpace(space PacketNumberSpace) time.Duration {
	if space != AppDataSpace {
		return 0
	}
	return s.RTT.MaxAckDelay()
}

// lossDelay computes the time-threshold loss-detection delay (RFC 9002
// §6.1.2): max(time_threshold × max(smoothed_rtt, latest_rtt),
// clock_granularity). The original's status.h special-cases a
// denominator of 8 to use a cheap shift instead of a division; the
// numeric result is identical either way, so this port always divides.
func (s *Status[Alg]) lossDelay() time.Duration {
	base := s.RTT.Smoothed()
	if s.RTT.Latest() > base {
		base = s.RTT.Latest()
	}
	thr := s.Config.TimeThreshold
	delay := base * time.Duration(thr.Num) / time.Duration(thr.Den)
	if g := s.granularity(); delay < g {
		delay = g
	}
	return delay
}

// OnPacketSent records a newly sent packet of size bytes in space,
// status describing the frames it carries, and returns the handle to
// register for its eventual ack/loss fate. now is the send time. A
// packet that is neither ack-eliciting nor byte-counted (e.g. one
// carrying only an ACK frame) is never entered into SentPacketTracker —
// it cannot be acked or declared lost and must not pollute loss
// detection or persistent-congestion bookkeeping (§4.8) — and the
// returned handle is already canceled.
func (s *Status[Alg]) OnPacketSent(now time.Time, space PacketNumberSpace, pn PacketNumber, status PacketStatus, size uint64, onAck, onLost func()) AckLostRecord {
	rec := s.Acks.New(onAck, onLost)
	if status.IsACKEliciting() || status.IsByteCounted() {
		s.Sent.Add(space, SentPacket{PacketNumber: pn, TimeSent: now, Size: size, Status: status, Waiter: rec})
	} else {
		s.Acks.Cancel(rec)
		rec = AckLostRecord{}
	}
	if status.IsByteCounted() {
		s.Congestion.OnPacketSent(now, size)
	}
	s.Issuer[space.index()].OnPacketSent(pn, status.IsACKEliciting())
	s.Idle.OnPacketSent(now, status.IsACKEliciting())
	if !s.Handshake.PeerAddressValidated() {
		s.Handshake.OnBytesSent(size)
	}
	if s.Metrics != nil {
		s.Metrics.observePacketSent(space)
	}
	if s.Log.OnSendingPacket != nil {
		s.Log.OnSendingPacket(space, pn, size)
	}
	s.setLossDetectionTimer(now)
	return rec
}

// logDropPacket reports an input-validation failure (§7 kind 1) via the
// drop_packet hook: the packet is unusable but the connection itself
// stays up.
func (s *Status[Alg]) logDropPacket(space PacketNumberSpace, pn PacketNumber, reason error) {
	if s.Log.OnDropPacket != nil {
		s.Log.OnDropPacket(space, pn, reason)
	}
}

// logReportError reports a protocol-state failure (§7 kind 2) via the
// report_error hook: a condition the core itself should never reach.
func (s *Status[Alg]) logReportError(err error) {
	if s.Log.OnReportError != nil {
		s.Log.OnReportError(err)
	}
}

// OnDatagramReceived notifies Status that a datagram of size bytes
// arrived from the peer, independent of whether any packet inside it
// decrypts successfully: every received datagram counts toward the
// anti-amplification budget (RFC 9000 §8.1), but receipt alone does not
// validate the peer's address (only a successfully decrypted packet
// does, see OnPacketDecrypted).
func (s *Status[Alg]) OnDatagramReceived(now time.Time, size uint64) {
	s.Handshake.OnDatagramReceived(size)
}

// OnPacketDecrypted notifies Status that a packet was successfully
// decrypted in space, updating the idle timer and (for a server)
// marking the peer's address validated.
func (s *Status[Alg]) OnPacketDecrypted(now time.Time, space PacketNumberSpace) {
	s.Idle.OnPacketDecrypted(now)
	if space != InitialSpace {
		s.Handshake.ValidatePeerAddress()
	}
}

// EncodeNextPacketNumber truncates pn for the wire in space, against the
// largest packet number the peer has acknowledged there so far (RFC 9000
// §17.1). Failure here is an input-validation failure (§7 kind 1): it is
// reported via the drop_packet hook and returned for the caller to skip
// sending this packet.
func (s *Status[Alg]) EncodeNextPacketNumber(space PacketNumberSpace, pn PacketNumber) (WireValue, error) {
	wv, err := EncodePacketNumber(pn, s.Sent.LargestAcked(space))
	if err != nil {
		s.logDropPacket(space, pn, err)
		return WireValue{}, err
	}
	return wv, nil
}

// DecodeWirePacketNumber reconstructs the full packet number from a
// truncated wire value received in space, against the largest packet
// number received there so far. Failure here is an input-validation
// failure (§7 kind 1): it is reported via the drop_packet hook and
// returned for the caller to drop the packet.
func (s *Status[Alg]) DecodeWirePacketNumber(space PacketNumberSpace, value uint32, length byte) (PacketNumber, error) {
	pn, err := DecodePacketNumber(value, length, s.Recv.Space(space).Largest())
	if err != nil {
		s.logDropPacket(space, InfinitePacketNumber, err)
		return 0, err
	}
	return pn, nil
}

// OnMTUProbeSuccess records a successful PMTU discovery probe of size
// bytes, growing the tracked maximum UDP payload size (RFC 9000 §14.3)
// and reporting it via the mtu_probe hook. It reports false if size did
// not grow the current maximum.
func (s *Status[Alg]) OnMTUProbeSuccess(size uint64) bool {
	grew := s.Payload.Update(size)
	if grew && s.Log.OnMTUProbe != nil {
		s.Log.OnMTUProbe(size)
	}
	return grew
}

// OnPacketProcessed folds a successfully processed packet into the
// receive history and ACK-generation bookkeeping for space.
func (s *Status[Alg]) OnPacketProcessed(now time.Time, space PacketNumberSpace, pn PacketNumber, ackEliciting, immediateAck bool) {
	s.Acceptor[space.index()].OnPacketReceived(pn)
	s.Recv.OnPacketProcessed(s.Config, now, space, pn, ackEliciting, immediateAck)
	if s.Log.OnRecvPacket != nil {
		s.Log.OnRecvPacket(space, pn)
	}
}

// OnAckReceived applies a decoded ACK frame to space: every sent packet
// it newly acknowledges is removed from tracking, folded into the RTT
// estimator (if eligible) and the congestion algorithm, and its waiter
// fires onAck. It then re-runs loss detection and rearms the loss
// timer, following the call-once/after-call-once contract the original
// documents: RTT sampling and congestion-window growth both happen
// before loss detection runs, so a single ACK can both grow the window
// and immediately shrink it again if it also reveals a loss.
func (s *Status[Alg]) OnAckReceived(now time.Time, space PacketNumberSpace, frame ACKFrame) error {
	ranges, err := FromWireACKFrame(frame)
	if err != nil {
		s.logDropPacket(space, InfinitePacketNumber, err)
		return err
	}
	acked, _, largestIsAckEliciting := s.Sent.OnAckReceived(space, ranges)
	if len(acked) == 0 {
		return nil
	}
	for _, p := range acked {
		s.Acks.FireAck(p.Waiter)
		s.Issuer[space.index()].OnPacketAck(p.Status.IsACKEliciting())
		if p.Status.IsByteCounted() {
			s.Congestion.OnPacketAck(now, p.TimeSent, p.Size)
		}
		if largestAck, ok := s.SentAcks.OnPacketAcked(space, p.PacketNumber); ok {
			s.Recv.Space(space).DeleteUnder(largestAck)
		}
	}
	if largestIsAckEliciting {
		ackDelayMicros := DecodeAckDelay(frame.AckDelay, s.Config.PeerAckDelayExponent)
		ackDelay := time.Duration(ackDelayMicros) * time.Microsecond
		if s.RTT.SampleRTT(s.Config, now, acked[len(acked)-1].TimeSent, ackDelay) {
			if s.Metrics != nil {
				s.Metrics.observeSmoothedRTTSeconds(s.RTT.Smoothed().Seconds())
				s.Metrics.observeAckDelaySeconds(ackDelay.Seconds())
			}
			if s.Log.OnRTTState != nil {
				s.Log.OnRTTState(s.RTT.Smoothed(), s.RTT.Var(), s.RTT.Latest())
			}
		}
	}
	if s.Handshake.PeerAddressValidated() {
		s.PTO.ResetCount()
	}
	s.PTO.OnAckReceived(space)
	s.detectAndRemoveLostPackets(now, space)
	s.setLossDetectionTimer(now)
	return nil
}

// detectAndRemoveLostPackets runs loss detection for space and feeds
// every newly lost packet to the congestion algorithm and its waiter,
// returning the packets it declared lost.
func (s *Status[Alg]) detectAndRemoveLostPackets(now time.Time, space PacketNumberSpace) []LostPacket {
	lost := s.Sent.DetectAndRemoveLostPackets(space, now, s.lossDelay(), s.Config.PacketOrderThreshold)
	if len(lost) == 0 {
		return nil
	}
	persistentDuration := PersistentCongestionDuration(&s.RTT, s.maxAckDelayForSpace(space), s.granularity(), s.Config.PersistentCongestionThreshold)
	persistent := PersistentCongestion(lost, &s.RTT, persistentDuration)
	for _, p := range lost {
		s.Acks.FireLost(p.Waiter)
		s.Issuer[space.index()].OnPacketLost(p.Status.IsACKEliciting())
		if p.Status.IsByteCounted() && !p.Status.IsMTUProbe() {
			s.Congestion.OnCongestionEvent(now, p.TimeSent, persistent)
		} else if p.Status.IsByteCounted() {
			s.Congestion.OnPacketDiscarded(p.Size)
		}
		if s.Metrics != nil {
			s.Metrics.observePacketLost(space)
		}
	}
	if s.Metrics != nil {
		s.Metrics.observeCongestionWindow(s.Congestion.CongestionWindow())
	}
	return lost
}

// ptoDeadlineForSpace computes the PTO deadline for space, anchored at
// the oldest outstanding ack-eliciting packet's send time, or now if
// the space has no flight at all (the anti-deadlock rule, RFC 9002
// §6.2.2.1). The Application space with nothing ack-eliciting in flight
// has no PTO deadline once the handshake is confirmed (ok is false).
func (s *Status[Alg]) ptoDeadlineForSpace(now time.Time, space PacketNumberSpace) (time.Time, bool) {
	anchor, ok := s.Sent.OldestAckElicitingSentTime(space)
	if !ok {
		if space == AppDataSpace && s.Handshake.HandshakeConfirmed() {
			return invalidTime, false
		}
		anchor = now
	}
	smoothed, scalable := ptoComponents(&s.RTT, s.maxAckDelayForSpace(space), s.granularity())
	dur := s.PTO.BackoffDuration(smoothed, scalable)
	return anchor.Add(dur), true
}

// earliestPTO returns the space/deadline pair of the earliest PTO
// deadline among spaces that currently have an active PTO obligation:
// Initial and Handshake always race if unconfirmed; Application only
// once the handshake is confirmed (RFC 9002 §6.2.1).
func (s *Status[Alg]) earliestPTO(now time.Time) (PacketNumberSpace, time.Time) {
	best := NoSpace
	var bestTime time.Time
	consider := func(space PacketNumberSpace) {
		if space == AppDataSpace && !s.Handshake.HandshakeConfirmed() {
			return
		}
		if space != AppDataSpace && s.Handshake.HandshakeConfirmed() {
			return
		}
		deadline, ok := s.ptoDeadlineForSpace(now, space)
		if !ok {
			return
		}
		if best == NoSpace || deadline.Before(bestTime) {
			best = space
			bestTime = deadline
		}
	}
	consider(InitialSpace)
	consider(HandshakeSpace)
	consider(AppDataSpace)
	return best, bestTime
}

// setLossDetectionTimer recomputes and arms the loss-detection timer
// following the four-branch priority of RFC 9002 §6.2.2.
func (s *Status[Alg]) setLossDetectionTimer(now time.Time) {
	anything := s.Sent.AnythingInFlight()
	atLimit := s.Handshake.IsAtAntiAmplificationLimit()
	lossSpace, lossDeadline := s.Sent.EarliestLossTime()
	ptoSpace, ptoDeadline := s.earliestPTO(now)
	s.LossTimer.set(anything, atLimit, lossDeadline, lossSpace, ptoDeadline, ptoSpace)
	if s.Log.OnLossTimerState != nil {
		s.Log.OnLossTimerState(s.LossTimer.State(), s.LossTimer.Deadline())
	}
}

// OnLossDetectionTimeout fires when the armed loss-detection timer
// expires: a time-threshold deadline declares losses directly; a PTO
// deadline increments the backoff counter and marks its space as
// needing a probe (RFC 9002 §6.2.4). It is a protocol-state failure
// (§7 kind 2) for a wait_for_loss timer to fire and find nothing to
// declare lost — the timer should never have been armed in that case.
func (s *Status[Alg]) OnLossDetectionTimeout(now time.Time) error {
	var err error
	switch s.LossTimer.State() {
	case LossTimerWaitForLoss:
		if lost := s.detectAndRemoveLostPackets(now, s.LossTimer.Space()); len(lost) == 0 {
			err = invalidStatef("quic: loss-detection timer fired in space %s with nothing to declare lost", s.LossTimer.Space())
			s.logReportError(err)
		}
	case LossTimerWaitForPTO:
		s.PTO.OnPTOTimeout(s.LossTimer.Space())
		if s.Metrics != nil {
			s.Metrics.observePTOTimeout()
		}
		if s.Log.OnPTOFire != nil {
			s.Log.OnPTOFire(s.LossTimer.Space(), s.PTO.Count())
		}
	}
	s.setLossDetectionTimer(now)
	return err
}

// OnPacketNumberSpaceDiscarded clears space's sent-packet tracking
// (canceling, not firing, every outstanding waiter), removes its bytes
// from the congestion algorithm, and rearms the loss-detection timer
// (RFC 9001 §4.9).
func (s *Status[Alg]) OnPacketNumberSpaceDiscarded(now time.Time, space PacketNumberSpace) {
	discarded := s.Sent.OnPacketNumberSpaceDiscarded(space)
	for _, p := range discarded {
		s.Acks.Cancel(p.Waiter)
		if p.Status.IsByteCounted() {
			s.Congestion.OnPacketDiscarded(p.Size)
		}
	}
	s.setLossDetectionTimer(now)
}

// ConfirmHandshake marks the handshake confirmed and discards the
// Handshake packet-number space (RFC 9001 §4.9.2), since once confirmed
// only the Application space's PTO can ever race again.
func (s *Status[Alg]) ConfirmHandshake(now time.Time) {
	s.Handshake.ConfirmHandshake()
	s.OnPacketNumberSpaceDiscarded(now, HandshakeSpace)
	if s.Log.OnDebug != nil {
		s.Log.OnDebug("handshake confirmed")
	}
}

// OnRetryReceived resets everything the original's status.h resets on a
// Retry: the RTT baseline, PTO backoff, and the Initial space's sent
// packets and packet-number issuance all restart from scratch (§5
// "Retry handling").
func (s *Status[Alg]) OnRetryReceived(now time.Time) {
	firstSampleEligible := s.PTO.Count() == 0
	discarded := s.Sent.OnRetryReceived()
	for _, p := range discarded {
		s.Acks.Cancel(p.Waiter)
		if p.Status.IsByteCounted() {
			s.Congestion.OnPacketDiscarded(p.Size)
		}
	}
	s.Issuer[InitialSpace.index()].OnRetryReceived()
	s.PTO.OnRetryReceived()
	s.RTT.Reset(s.Config)
	if firstSampleEligible && len(discarded) > 0 {
		s.RTT.SampleRTT(s.Config, now, discarded[0].TimeSent, 0)
	}
	s.setLossDetectionTimer(now)
}

// IsIdleTimeout reports whether the connection's idle timeout has
// expired.
func (s *Status[Alg]) IsIdleTimeout(now time.Time) bool {
	timedOut := s.Idle.Timeout(now)
	if timedOut && s.Log.OnDebug != nil {
		s.Log.OnDebug("idle timeout")
	}
	return timedOut
}

// CanSend reports whether sentBytes more bytes may be sent in the
// current congestion window.
func (s *Status[Alg]) CanSend(sentBytes uint64) bool {
	return s.Congestion.CanSend(sentBytes)
}

// BuildACKFrame builds the wire ACK frame to send for space from the
// pending receive-history ranges (§4.3), encoding ackDelay and, if
// non-nil, ecn alongside them. A failure here means Status built an
// invalid range list itself — a protocol-state bug (§7 kind 2) rather
// than anything the peer did — and is reported via report_error as well
// as returned.
func (s *Status[Alg]) BuildACKFrame(space PacketNumberSpace, maxRanges int, ackDelay uint64, ecn *ECNCounts) (ACKFrame, IOResult, error) {
	ranges, result := s.Recv.Send(space, maxRanges)
	if result == IONoData {
		return ACKFrame{}, result, nil
	}
	frame, err := ToWireACKFrame(ranges, ackDelay, ecn)
	if err != nil {
		s.logReportError(err)
		return ACKFrame{}, IOFatal, err
	}
	return frame, result, nil
}

// RecordACKFrameSent tells Status that carrierPN, just sent in space,
// carried frame, so frame's largest_ack can later be retired from
// receive history (via SentAckTracker) once carrierPN is itself
// acknowledged.
func (s *Status[Alg]) RecordACKFrameSent(space PacketNumberSpace, carrierPN PacketNumber, frame ACKFrame) {
	s.SentAcks.OnACKFrameSent(space, carrierPN, PacketNumber(frame.LargestAck))
}

// OnAckSent notifies Status that an ACK frame covering space was actually
// transmitted, resetting the receive-history since-last-ack window and
// (for the Application space) the delayed-ACK bookkeeping (§4.3, §4.4).
func (s *Status[Alg]) OnAckSent(space PacketNumberSpace) {
	s.Recv.OnAckSent(space)
}

// ShouldSendAnyPacket reports whether Status has an unconditional reason
// to send right now: a pending ACK or a required PTO probe in any space.
// Handshake progress is not consulted.
func (s *Status[Alg]) ShouldSendAnyPacket(now time.Time) bool {
	if s.Recv.ShouldSendACK(now) {
		return true
	}
	for i := 0; i < numSpaces; i++ {
		if s.PTO.ProbeRequired(PacketNumberSpace(i)) {
			return true
		}
	}
	return false
}

// ShouldSendPing reports whether a keep-alive PING should be sent:
// PingDuration is positive, the handshake is confirmed, the idle
// deadline is set, and now is within PingDuration of that deadline. It
// does not check whether any other packet is already pending.
func (s *Status[Alg]) ShouldSendPing(now time.Time) bool {
	if s.Config.PingDuration <= 0 || !s.Handshake.HandshakeConfirmed() {
		return false
	}
	deadline := s.Idle.GetDeadline()
	if !validTime(deadline) {
		return false
	}
	return !now.Before(deadline.Add(-s.Config.PingDuration))
}

// PathValidationDeadline returns the deadline by which a migration path
// validation must complete before being abandoned: a PTO-with-max-ack-
// delay duration scaled by the configured factor (§1 Non-goals: the
// path-validation state machine itself is implemented by the caller;
// Status only exposes this deadline hook).
func (s *Status[Alg]) PathValidationDeadline(now time.Time) time.Time {
	base := ptoDuration(&s.RTT, s.RTT.MaxAckDelay(), s.granularity())
	return now.Add(base * time.Duration(s.Config.PathValidationTimeoutFactor))
}

// SetCloseTimer arms the draining-period timer after sending or
// receiving a CONNECTION_CLOSE (RFC 9000 §10.2): 3×PTO, per the
// original's close_timeout.
func (s *Status[Alg]) SetCloseTimer(now time.Time) {
	s.closeTimer.SetDeadline(now.Add(s.CloseTimeout()))
}

// CloseTimeout returns the draining-period duration: 3×PTO.
func (s *Status[Alg]) CloseTimeout() time.Duration {
	base := ptoDuration(&s.RTT, s.RTT.MaxAckDelay(), s.granularity())
	return 3 * base
}

// IsDraining reports whether the draining-period timer armed by
// SetCloseTimer has expired.
func (s *Status[Alg]) IsDraining(now time.Time) bool {
	return s.closeTimer.Expired(now)
}

// GetEarliestDeadline reduces every timer Status owns — the loss-
// detection timer, the idle timer, the delayed-ACK timer, and the
// draining-period timer — down to the single earliest one the caller's
// event loop should sleep until (§4.12).
func (s *Status[Alg]) GetEarliestDeadline(now time.Time) time.Time {
	d := invalidTime
	if s.LossTimer.State() == LossTimerWaitForLoss || s.LossTimer.State() == LossTimerWaitForPTO {
		d = earliest(d, s.LossTimer.Deadline())
	}
	d = earliest(d, s.Idle.GetDeadline())
	d = earliest(d, s.Recv.DelayedACKDeadline())
	if !s.closeTimer.NotWorking() {
		d = earliest(d, s.closeTimer.Deadline())
	}
	return d
}
