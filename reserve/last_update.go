// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reserve holds the interest-rate curve, the staleness tracker,
// and the accrual math of the lending protocol. Everything here is pure
// computation over caller-owned state; nothing is cached across calls.
package reserve

import (
	"fmt"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

// LastUpdateLen is the exact persisted size of a LastUpdate: an 8-byte
// little-endian slot followed by a 1-byte stale flag. The layout is a
// compatibility contract for callers replicating the account format.
const LastUpdateLen = 9

// LastUpdate records the slot a reserve's cached state was last
// refreshed at, plus an explicit distrust flag. It gates multi-step
// flows that cannot be executed atomically: each step re-checks
// staleness instead of assuming the previous step ran in the same
// invocation.
type LastUpdate struct {
	Slot  uint64
	Stale bool
}

// NewLastUpdate returns a tracker for state created at [slot]. Freshly
// created state is never trusted until its first refresh.
func NewLastUpdate(slot uint64) LastUpdate {
	return LastUpdate{Slot: slot, Stale: true}
}

// Update records a refresh at [slot]. The explicit [stale] argument
// lets a caller force distrust even on a fresh write, e.g. after a
// partial refresh.
func (l *LastUpdate) Update(slot uint64, stale bool) {
	l.Slot = slot
	l.Stale = stale
}

// MarkStale forces distrust without moving the slot.
func (l *LastUpdate) MarkStale() {
	l.Stale = true
}

// SlotsElapsed returns currentSlot - Slot. The clock must be monotonic
// from this tracker's point of view; a current slot behind the recorded
// one fails with ErrMathOverflow.
func (l LastUpdate) SlotsElapsed(currentSlot uint64) (uint64, error) {
	elapsed, err := safemath.Sub(currentSlot, l.Slot)
	if err != nil {
		return 0, fmt.Errorf("%w: clock moved backwards (%d < %d)", fixed.ErrMathOverflow, currentSlot, l.Slot)
	}
	return elapsed, nil
}

// IsStale is the lax windowed policy: the tracker is stale when the
// flag is set or more than [thresholdSlots] slots have elapsed.
func (l LastUpdate) IsStale(currentSlot uint64, thresholdSlots uint64) (bool, error) {
	if l.Stale {
		return true, nil
	}
	elapsed, err := l.SlotsElapsed(currentSlot)
	if err != nil {
		return true, err
	}
	return elapsed > thresholdSlots, nil
}

// IsStrictlyStale is the same-slot freshness policy used by call sites
// that must observe state refreshed in the current slot: any elapsed
// slot at all counts as stale.
func (l LastUpdate) IsStrictlyStale(currentSlot uint64) (bool, error) {
	return l.IsStale(currentSlot, 0)
}

// Pack appends the 9-byte layout to [p].
func (l LastUpdate) Pack(p *wrappers.Packer) {
	p.PackLong(l.Slot)
	p.PackBool(l.Stale)
}

// Unpack reads the 9-byte layout from [p].
func (l *LastUpdate) Unpack(p *wrappers.Packer) {
	l.Slot = p.UnpackLong()
	l.Stale = p.UnpackBool()
}

// MarshalBinary implements encoding.BinaryMarshaler with the 9-byte
// contract.
func (l LastUpdate) MarshalBinary() ([]byte, error) {
	p := wrappers.Packer{Bytes: make([]byte, 0, LastUpdateLen)}
	l.Pack(&p)
	return p.Bytes, p.Err
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (l *LastUpdate) UnmarshalBinary(b []byte) error {
	if len(b) != LastUpdateLen {
		return fmt.Errorf("%w: last update is %d bytes, want %d", wrappers.ErrInsufficientLength, len(b), LastUpdateLen)
	}
	p := wrappers.Packer{Bytes: b}
	l.Unpack(&p)
	return p.Err
}
