// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle decodes raw external price-feed account buffers into
// normalized prices.
//
// Three binary feed formats are supported behind a closed Kind tag
// stored alongside each price source. Every reader distinguishes "not
// parseable" (ErrUnpack) from "parseable but failed validation or too
// old" (ErrInvalidOracle) so callers can react to each differently.
package oracle

import (
	"errors"
	"fmt"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
)

var (
	// ErrInvalidOracle indicates a buffer that parsed but failed a
	// validity check or exceeded its staleness window.
	ErrInvalidOracle = errors.New("invalid price oracle")

	// ErrUnpack indicates a buffer that could not be parsed at all:
	// wrong length, magic, or version.
	ErrUnpack = errors.New("failed to unpack oracle buffer")

	errUnknownKind = errors.New("unknown oracle kind")
)

// Kind selects the binary layout of a price source. The set is closed;
// a reserve stores its source's Kind next to the source account.
type Kind byte

const (
	// KindAggregate is the single-aggregate exponent/mantissa layout.
	KindAggregate Kind = iota
	// KindRing is the ring-buffer submission layout with a precomputed
	// median answer.
	KindRing
	// KindRoundsV1 is the first on-chain version of the multi-round
	// layout.
	KindRoundsV1
	// KindRoundsV2 is the second on-chain version. Same semantics as V1,
	// different byte layout.
	KindRoundsV2
)

// ParseKind validates a stored kind tag.
func ParseKind(b byte) (Kind, error) {
	k := Kind(b)
	switch k {
	case KindAggregate, KindRing, KindRoundsV1, KindRoundsV2:
		return k, nil
	default:
		return 0, fmt.Errorf("%w: %d", errUnknownKind, b)
	}
}

func (k Kind) String() string {
	switch k {
	case KindAggregate:
		return "aggregate"
	case KindRing:
		return "ring"
	case KindRoundsV1:
		return "roundsV1"
	case KindRoundsV2:
		return "roundsV2"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// Reading is the normalized result of decoding a feed. It is transient;
// persistence of the last trusted price is the caller's concern.
type Reading struct {
	// Price is the feed's value normalized to the 10^18 scale.
	Price fixed.Decimal

	// SourceSlot is the slot the source last updated at. Wall-clock
	// validated feeds report the caller's current slot here.
	SourceSlot uint64
}

// ReadPrice decodes and validates [raw] according to [kind].
//
// [currentSlot] is the chain's logical clock and [now] the unix time in
// seconds; which one gates staleness depends on the feed family.
func ReadPrice(kind Kind, raw []byte, currentSlot uint64, now int64, thresholds config.Thresholds) (Reading, error) {
	switch kind {
	case KindAggregate:
		return readAggregate(raw, currentSlot, thresholds.AggregateSlots)
	case KindRing:
		return readRing(raw, currentSlot, now)
	case KindRoundsV1, KindRoundsV2:
		return readRounds(kind, raw, currentSlot, thresholds.RoundSlots)
	default:
		return Reading{}, fmt.Errorf("%w: %s", errUnknownKind, kind)
	}
}

// pow10 returns 10^exp as a checked uint64.
func pow10(exp uint32) (uint64, error) {
	n := uint64(1)
	for i := uint32(0); i < exp; i++ {
		var err error
		if n, err = safemath.Mul(n, uint64(10)); err != nil {
			return 0, fmt.Errorf("%w: 10^%d exceeds 64 bits", fixed.ErrMathOverflow, exp)
		}
	}
	return n, nil
}
