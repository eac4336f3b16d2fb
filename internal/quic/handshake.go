// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

// handshakeStatusFlag tracks the bits of handshake/address-validation
// progress that feed the anti-amplification and handshake-confirmation
// logic (§4.7, §4.9).
type handshakeStatusFlag byte

const (
	flagHandshakeConfirmed handshakeStatusFlag = 1 << iota
	flagHandshakeCompleteLocal
	flagPeerAddressValidated
	flagPeerCompletedAddressValidation
	flagRetryRequired
)

// AmplificationFactor is the anti-amplification multiple an unvalidated
// server's send volume is held to: it may send at most
// AmplificationFactor × the bytes it has received from the peer (RFC
// 9000 §8.1).
const AmplificationFactor = DefaultAmplificationFactor

// HandshakeStatus tracks the asymmetric progress of the QUIC handshake,
// the address-validation state, and the byte counters that gate the
// anti-amplification limit (§3 "HandshakeStatus flags", §4.7). A server
// starts with the peer's address unvalidated; a client starts already
// having validated its peer (there is no amplification risk against a
// server that has not sent anything yet).
type HandshakeStatus struct {
	flags handshakeStatusFlag

	sentBytes uint64
	recvBytes uint64
}

// Reset clears all handshake-progress bits and byte counters. retryRequired
// seeds whether a Retry packet is mandated before accepting a client's
// Initial (server side); isClient seeds the initial peer-address-validated
// bit.
func (h *HandshakeStatus) Reset(isClient, retryRequired bool) {
	h.flags = 0
	h.sentBytes = 0
	h.recvBytes = 0
	if isClient {
		h.flags |= flagPeerAddressValidated
	}
	if retryRequired {
		h.flags |= flagRetryRequired
	}
}

// HandshakeConfirmed reports whether the handshake is confirmed: for a
// client, on receipt of a HANDSHAKE_DONE frame; for a server, the moment
// its handshake flight is acknowledged (§4.7).
func (h *HandshakeStatus) HandshakeConfirmed() bool {
	return h.flags&flagHandshakeConfirmed != 0
}

// ConfirmHandshake marks the handshake confirmed.
func (h *HandshakeStatus) ConfirmHandshake() {
	h.flags |= flagHandshakeConfirmed
}

// HandshakeCompletedLocally reports whether this endpoint has sent (or
// processed) all handshake messages it is responsible for.
func (h *HandshakeStatus) HandshakeCompletedLocally() bool {
	return h.flags&flagHandshakeCompleteLocal != 0
}

// CompleteHandshakeLocally marks the local handshake flight complete.
func (h *HandshakeStatus) CompleteHandshakeLocally() {
	h.flags |= flagHandshakeCompleteLocal
}

// PeerAddressValidated reports whether this endpoint has validated the
// peer's address (and is thus not bound by the anti-amplification
// limit).
func (h *HandshakeStatus) PeerAddressValidated() bool {
	return h.flags&flagPeerAddressValidated != 0
}

// ValidatePeerAddress marks the peer's address as validated, e.g. after
// processing a packet protected with a key derived from a value only the
// real peer could have produced (Initial token, or any Handshake-or-later
// packet).
func (h *HandshakeStatus) ValidatePeerAddress() {
	h.flags |= flagPeerAddressValidated
}

// PeerCompletedAddressValidation reports whether the peer has in turn
// validated this endpoint's address (observed once a Handshake-level
// packet from the peer is processed).
func (h *HandshakeStatus) PeerCompletedAddressValidation() bool {
	return h.flags&flagPeerCompletedAddressValidation != 0
}

// CompletePeerAddressValidation marks the peer as having completed
// address validation of this endpoint.
func (h *HandshakeStatus) CompletePeerAddressValidation() {
	h.flags |= flagPeerCompletedAddressValidation
}

// RetryRequired reports whether a Retry packet must be sent before this
// (server) endpoint accepts the client's Initial flight.
func (h *HandshakeStatus) RetryRequired() bool {
	return h.flags&flagRetryRequired != 0
}

// OnDatagramReceived adds n bytes to the received-byte counter that
// bounds the anti-amplification budget (RFC 9000 §8.1: every received
// UDP datagram counts, whether or not its packets decrypt).
func (h *HandshakeStatus) OnDatagramReceived(n uint64) {
	h.recvBytes += n
}

// OnBytesSent adds n bytes to the sent-byte counter that is compared
// against the anti-amplification budget.
func (h *HandshakeStatus) OnBytesSent(n uint64) {
	h.sentBytes += n
}

// SentBytes returns the total bytes sent while the peer's address was
// unvalidated.
func (h *HandshakeStatus) SentBytes() uint64 { return h.sentBytes }

// RecvBytes returns the total bytes received from the peer.
func (h *HandshakeStatus) RecvBytes() uint64 { return h.recvBytes }

// IsAtAntiAmplificationLimit reports whether this endpoint has reached
// (or exceeded) its anti-amplification budget: unvalidated servers may
// send at most AmplificationFactor × the bytes they have received
// (§4.9 "External interfaces", `amplification_factor = 3`). A validated
// peer address lifts the limit entirely.
func (h *HandshakeStatus) IsAtAntiAmplificationLimit() bool {
	if h.PeerAddressValidated() {
		return false
	}
	return h.sentBytes >= AmplificationFactor*h.recvBytes
}

// AmplificationBudgetRemaining returns how many more bytes may be sent
// before the anti-amplification limit is reached. It returns
// ^uint64(0) (unbounded) once the peer's address is validated.
func (h *HandshakeStatus) AmplificationBudgetRemaining() uint64 {
	if h.PeerAddressValidated() {
		return ^uint64(0)
	}
	budget := AmplificationFactor * h.recvBytes
	if h.sentBytes >= budget {
		return 0
	}
	return budget - h.sentBytes
}
