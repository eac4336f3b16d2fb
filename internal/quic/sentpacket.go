// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// SentPacket is the bookkeeping record kept for every outbound packet
// until it is acknowledged, declared lost, or its packet-number space is
// discarded (§4.5).
type SentPacket struct {
	PacketNumber PacketNumber
	TimeSent     time.Time
	Size         uint64
	Status       PacketStatus
	Waiter       AckLostRecord
}

// AckLostRecord is a generational handle into an AckLostArena: Go has
// no weak pointers, so fire-once ack/loss callbacks are tracked by slot
// index plus a generation counter instead, the usual substitute for "a
// handle that silently becomes a no-op once its target is gone". A
// zero-value AckLostRecord is the "no waiter" handle.
type AckLostRecord struct {
	index      uint32
	generation uint32
	valid      bool
}

// IsValid reports whether the handle was issued by AckLostArena.New; the
// zero-value handle is not valid. It does not consult the arena, so a
// handle whose slot has since fired or been canceled still reports true.
func (r AckLostRecord) IsValid() bool { return r.valid }

type ackLostSlot struct {
	generation uint32
	occupied   bool
	onAck      func()
	onLost     func()
}

// AckLostArena is an arena of fire-once ack/loss callbacks. Slots are
// reused once fired or canceled; the generation counter lets a stale
// AckLostRecord be detected as dead rather than accidentally firing a
// callback that belongs to a different, later packet reusing the same
// slot index — exactly the hazard std::weak_ptr::lock() guards against
// in the original.
type AckLostArena struct {
	slots    []ackLostSlot
	freeList []uint32
}

// New registers a new waiter and returns its handle. onAck and onLost
// are each invoked at most once, whichever the packet's eventual fate
// calls; either callback may be nil.
func (a *AckLostArena) New(onAck, onLost func()) AckLostRecord {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		slot := &a.slots[idx]
		slot.occupied = true
		slot.onAck = onAck
		slot.onLost = onLost
		return AckLostRecord{index: idx, generation: slot.generation, valid: true}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, ackLostSlot{occupied: true, onAck: onAck, onLost: onLost})
	return AckLostRecord{index: idx, generation: 0, valid: true}
}

// lookup returns the slot for rec if it is still live, or nil.
func (a *AckLostArena) lookup(rec AckLostRecord) *ackLostSlot {
	if !rec.valid || int(rec.index) >= len(a.slots) {
		return nil
	}
	slot := &a.slots[rec.index]
	if !slot.occupied || slot.generation != rec.generation {
		return nil
	}
	return slot
}

// release returns a fired or canceled slot to the free list, bumping its
// generation so outstanding handles referring to it become stale.
func (a *AckLostArena) release(idx uint32) {
	slot := &a.slots[idx]
	slot.occupied = false
	slot.onAck = nil
	slot.onLost = nil
	slot.generation++
	a.freeList = append(a.freeList, idx)
}

// FireAck invokes rec's onAck callback, if it is still live, then
// retires the slot. A no-op if rec is stale or invalid.
func (a *AckLostArena) FireAck(rec AckLostRecord) {
	slot := a.lookup(rec)
	if slot == nil {
		return
	}
	cb := slot.onAck
	a.release(rec.index)
	if cb != nil {
		cb()
	}
}

// FireLost invokes rec's onLost callback, if it is still live, then
// retires the slot. A no-op if rec is stale or invalid.
func (a *AckLostArena) FireLost(rec AckLostRecord) {
	slot := a.lookup(rec)
	if slot == nil {
		return
	}
	cb := slot.onLost
	a.release(rec.index)
	if cb != nil {
		cb()
	}
}

// Cancel retires rec without invoking either callback, e.g. when a
// packet-number space is discarded wholesale.
func (a *AckLostArena) Cancel(rec AckLostRecord) {
	if a.lookup(rec) == nil {
		return
	}
	a.release(rec.index)
}
