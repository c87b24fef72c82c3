// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"fmt"

	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

// Versioned multi-round layout, little-endian. Two on-chain versions
// share semantics; V2 inserts a flags word after the version byte:
//
//	V1: version u8 (=1) | openSlot u64 | mantissa u64 | scale u32
//	V2: version u8 (=2) | flags u32 | openSlot u64 | mantissa u64 | scale u32
//
// Staleness compares the round's open slot against the caller's slot.
const (
	roundsVersion1 = 1
	roundsVersion2 = 2

	// RoundsV1Len and RoundsV2Len are the exact buffer lengths.
	RoundsV1Len = 21
	RoundsV2Len = 25
)

type roundResult struct {
	openSlot uint64
	mantissa uint64
	scale    uint32
}

func readRounds(kind Kind, raw []byte, currentSlot uint64, thresholdSlots uint64) (Reading, error) {
	result, err := unpackRound(kind, raw)
	if err != nil {
		return Reading{}, err
	}

	if result.openSlot > currentSlot {
		return Reading{}, fmt.Errorf("%w: round opens at future slot %d (current %d)",
			ErrInvalidOracle, result.openSlot, currentSlot)
	}
	if currentSlot-result.openSlot >= thresholdSlots {
		return Reading{}, fmt.Errorf("%w: round opened %d slots ago (limit %d)",
			ErrInvalidOracle, currentSlot-result.openSlot, thresholdSlots)
	}

	shift, err := pow10(result.scale)
	if err != nil {
		return Reading{}, err
	}
	price, err := fixed.New(result.mantissa).DivUint(shift)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Price: price, SourceSlot: result.openSlot}, nil
}

func unpackRound(kind Kind, raw []byte) (roundResult, error) {
	wantLen, wantVersion := RoundsV1Len, byte(roundsVersion1)
	if kind == KindRoundsV2 {
		wantLen, wantVersion = RoundsV2Len, roundsVersion2
	}
	if len(raw) != wantLen {
		return roundResult{}, fmt.Errorf("%w: rounds buffer is %d bytes, want %d", ErrUnpack, len(raw), wantLen)
	}

	p := wrappers.Packer{Bytes: raw}
	version := p.UnpackByte()
	if version != wantVersion {
		return roundResult{}, fmt.Errorf("%w: rounds version %d, want %d", ErrUnpack, version, wantVersion)
	}
	if kind == KindRoundsV2 {
		p.Skip(wrappers.IntLen) // flags, unused by pricing
	}
	result := roundResult{
		openSlot: p.UnpackLong(),
		mantissa: p.UnpackLong(),
		scale:    p.UnpackInt(),
	}
	if p.Errored() {
		return roundResult{}, fmt.Errorf("%w: %w", ErrUnpack, p.Err)
	}
	return result, nil
}
