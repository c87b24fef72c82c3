// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config collects the chain-cadence and staleness parameters of
// the lending core. Both are plain runtime values passed explicitly into
// the rate and staleness computations so the core can be exercised
// against hypothetical cadences.
package config

import "errors"

var errZeroCadence = errors.New("clock cadence fields must be non-zero")

// Clock describes the host chain's fixed tick cadence. It is the only
// source of the "periods per year" constant used to annualize rates.
type Clock struct {
	// TicksPerSecond is the number of PoH-style ticks produced per second.
	TicksPerSecond uint64 `json:"ticksPerSecond"`

	// TicksPerSlot is the number of ticks per slot.
	TicksPerSlot uint64 `json:"ticksPerSlot"`

	// SecondsPerDay is the number of seconds per day; a parameter rather
	// than a literal so tests can compress time.
	SecondsPerDay uint64 `json:"secondsPerDay"`
}

// DefaultClock returns the mainnet cadence.
func DefaultClock() Clock {
	return Clock{
		TicksPerSecond: 160,
		TicksPerSlot:   64,
		SecondsPerDay:  24 * 60 * 60,
	}
}

// Verify returns an error if the cadence is unusable.
func (c Clock) Verify() error {
	if c.TicksPerSecond == 0 || c.TicksPerSlot == 0 || c.SecondsPerDay == 0 {
		return errZeroCadence
	}
	return nil
}

// SlotsPerYear returns the number of slots in a 365-day year under this
// cadence. This is the compounding period count for all interest math.
func (c Clock) SlotsPerYear() uint64 {
	ticksPerDay := c.TicksPerSecond * c.SecondsPerDay
	return ticksPerDay / c.TicksPerSlot * 365
}

// Thresholds are the per-source staleness windows. A reading is stale
// when its age reaches the threshold (elapsed >= threshold).
type Thresholds struct {
	// AggregateSlots bounds the age of a single-aggregate feed's publish
	// slot.
	AggregateSlots uint64 `json:"aggregateSlots"`

	// RoundSlots bounds the age of a versioned round feed's open slot.
	RoundSlots uint64 `json:"roundSlots"`

	// TrackerSlots bounds the age of a reserve's cached state under the
	// lax windowed policy.
	TrackerSlots uint64 `json:"trackerSlots"`
}

// Production returns the thresholds used on mainnet. They are tight:
// multi-step flows that cannot run atomically are defended by these
// windows rather than by locking.
func Production() Thresholds {
	return Thresholds{
		AggregateSlots: 5,
		RoundSlots:     25,
		TrackerSlots:   1,
	}
}

// Staging returns the relaxed thresholds used on test networks, where
// feeds update far less often than on mainnet.
func Staging() Thresholds {
	return Thresholds{
		AggregateSlots: 100,
		RoundSlots:     500,
		TrackerSlots:   10,
	}
}
