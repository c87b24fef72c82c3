// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"fmt"

	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

// Ring-buffer layout, little-endian:
//
//	initialized u8    must be 1
//	decimals    u8    base-10 scale of submitted values
//	staleSecs   u32   staleness window in seconds, configured on-chain
//	count       u32   number of submission pairs that follow
//	count x {timestamp i64, value u64}
//	hasAnswer   u8    1 when the median answer is present
//	answer      u64   precomputed median of the live submissions
//
// Staleness for this family is wall-clock based: the freshest
// submission timestamp is compared against the caller's unix time using
// the window carried in the buffer itself.
const (
	// RingMaxSubmissions bounds the submission array; a larger count is
	// a decode error, not a validation failure.
	RingMaxSubmissions = 32

	ringHeaderLen     = 10
	ringSubmissionLen = 16
	ringAnswerLen     = 9
)

func readRing(raw []byte, currentSlot uint64, now int64) (Reading, error) {
	p := wrappers.Packer{Bytes: raw}
	initialized := p.UnpackBool()
	decimals := p.UnpackByte()
	staleSecs := p.UnpackInt()
	count := p.UnpackInt()
	if p.Errored() {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnpack, p.Err)
	}
	if count > RingMaxSubmissions {
		return Reading{}, fmt.Errorf("%w: %d submissions exceeds ring capacity", ErrUnpack, count)
	}
	want := ringHeaderLen + int(count)*ringSubmissionLen + ringAnswerLen
	if len(raw) != want {
		return Reading{}, fmt.Errorf("%w: ring buffer is %d bytes, want %d", ErrUnpack, len(raw), want)
	}

	var maxTimestamp int64
	for i := uint32(0); i < count; i++ {
		ts := p.UnpackInt64()
		p.Skip(wrappers.LongLen) // submitted value, only the median answer is read
		if ts > maxTimestamp {
			maxTimestamp = ts
		}
	}
	hasAnswer := p.UnpackBool()
	answer := p.UnpackLong()
	if p.Errored() {
		return Reading{}, fmt.Errorf("%w: %w", ErrUnpack, p.Err)
	}

	if !initialized {
		return Reading{}, fmt.Errorf("%w: ring feed is not initialized", ErrInvalidOracle)
	}
	if !hasAnswer {
		return Reading{}, fmt.Errorf("%w: ring feed has no answer", ErrInvalidOracle)
	}
	if maxTimestamp > now {
		return Reading{}, fmt.Errorf("%w: ring answer is timestamped %d seconds in the future",
			ErrInvalidOracle, maxTimestamp-now)
	}
	if now-maxTimestamp >= int64(staleSecs) {
		return Reading{}, fmt.Errorf("%w: ring answer is %d seconds old (limit %d)",
			ErrInvalidOracle, now-maxTimestamp, staleSecs)
	}

	shift, err := pow10(uint32(decimals))
	if err != nil {
		return Reading{}, err
	}
	price, err := fixed.New(answer).DivUint(shift)
	if err != nil {
		return Reading{}, err
	}

	// No slot travels with this family; the reading is pinned to the
	// caller's slot since freshness was just proven against wall time.
	return Reading{Price: price, SourceSlot: currentSlot}, nil
}
