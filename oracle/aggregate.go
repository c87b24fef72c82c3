// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"fmt"

	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

// Single-aggregate layout, little-endian:
//
//	magic       u32   must be aggregateMagic
//	version     u32   must be aggregateVersion
//	accountType u32   must be a price account (not mapping/product)
//	priceType   u32   must be a plain price
//	exponent    i32   decimal shift of the mantissa
//	validSlot   u64   slot the aggregate became valid
//	status      u32   must be trading
//	mantissa    i64   signed price mantissa
//	confidence  u64   confidence interval, same exponent as the mantissa
//	publishSlot u64   slot of the latest publisher submission
const (
	aggregateMagic   = 0xa1b2c3d4
	aggregateVersion = 2

	aggregateAccountTypePrice = 3
	aggregatePriceTypePrice   = 1
	aggregateStatusTrading    = 1

	// AggregateLen is the exact length of a single-aggregate buffer.
	AggregateLen = 56
)

func readAggregate(raw []byte, currentSlot uint64, thresholdSlots uint64) (Reading, error) {
	if len(raw) != AggregateLen {
		return Reading{}, fmt.Errorf("%w: aggregate buffer is %d bytes, want %d", ErrUnpack, len(raw), AggregateLen)
	}

	p := wrappers.Packer{Bytes: raw}
	magic := p.UnpackInt()
	version := p.UnpackInt()
	accountType := p.UnpackInt()
	priceType := p.UnpackInt()
	exponent := p.UnpackInt32()
	p.Skip(wrappers.LongLen) // validSlot, superseded by publishSlot for staleness
	status := p.UnpackInt()
	mantissa := p.UnpackInt64()
	p.Skip(wrappers.LongLen) // confidence
	publishSlot := p.UnpackLong()
	if p.Errored() {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnpack, p.Err)
	}

	if magic != aggregateMagic || version != aggregateVersion {
		return Reading{}, fmt.Errorf("%w: bad aggregate magic or version", ErrUnpack)
	}
	if accountType != aggregateAccountTypePrice {
		return Reading{}, fmt.Errorf("%w: account type %d is not a price account", ErrInvalidOracle, accountType)
	}
	if priceType != aggregatePriceTypePrice || status != aggregateStatusTrading {
		return Reading{}, fmt.Errorf("%w: feed is not trading", ErrInvalidOracle)
	}
	if mantissa < 0 {
		return Reading{}, fmt.Errorf("%w: negative price mantissa %d", ErrInvalidOracle, mantissa)
	}

	if publishSlot > currentSlot {
		return Reading{}, fmt.Errorf("%w: aggregate published at future slot %d (current %d)",
			ErrInvalidOracle, publishSlot, currentSlot)
	}
	if currentSlot-publishSlot >= thresholdSlots {
		return Reading{}, fmt.Errorf("%w: aggregate is %d slots old (limit %d)",
			ErrInvalidOracle, currentSlot-publishSlot, thresholdSlots)
	}

	price, err := normalizeExponent(uint64(mantissa), exponent)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Price: price, SourceSlot: publishSlot}, nil
}

// normalizeExponent applies a signed base-10 exponent to an integer
// mantissa: scale up for exponent >= 0, divide down otherwise.
func normalizeExponent(mantissa uint64, exponent int32) (fixed.Decimal, error) {
	if exponent >= 0 {
		shift, err := pow10(uint32(exponent))
		if err != nil {
			return fixed.Decimal{}, err
		}
		return fixed.New(mantissa).MulUint(shift)
	}
	shift, err := pow10(uint32(-exponent))
	if err != nil {
		return fixed.Decimal{}, err
	}
	return fixed.New(mantissa).DivUint(shift)
}
