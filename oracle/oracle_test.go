// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

var testThresholds = config.Thresholds{
	AggregateSlots: 10,
	RoundSlots:     20,
	TrackerSlots:   1,
}

type aggregateFeed struct {
	magic       uint32
	version     uint32
	accountType uint32
	priceType   uint32
	exponent    int32
	validSlot   uint64
	status      uint32
	mantissa    int64
	confidence  uint64
	publishSlot uint64
}

func validAggregate() aggregateFeed {
	return aggregateFeed{
		magic:       aggregateMagic,
		version:     aggregateVersion,
		accountType: aggregateAccountTypePrice,
		priceType:   aggregatePriceTypePrice,
		exponent:    -2,
		validSlot:   99,
		status:      aggregateStatusTrading,
		mantissa:    2000,
		confidence:  3,
		publishSlot: 99,
	}
}

func (f aggregateFeed) bytes() []byte {
	p := wrappers.Packer{Bytes: make([]byte, 0, AggregateLen)}
	p.PackInt(f.magic)
	p.PackInt(f.version)
	p.PackInt(f.accountType)
	p.PackInt(f.priceType)
	p.PackInt(uint32(f.exponent))
	p.PackLong(f.validSlot)
	p.PackInt(f.status)
	p.PackLong(uint64(f.mantissa))
	p.PackLong(f.confidence)
	p.PackLong(f.publishSlot)
	return p.Bytes
}

func TestParseKind(t *testing.T) {
	require := require.New(t)

	for _, kind := range []Kind{KindAggregate, KindRing, KindRoundsV1, KindRoundsV2} {
		parsed, err := ParseKind(byte(kind))
		require.NoError(err)
		require.Equal(kind, parsed)
	}

	_, err := ParseKind(200)
	require.ErrorIs(err, errUnknownKind)
}

func TestReadAggregate(t *testing.T) {
	require := require.New(t)

	reading, err := ReadPrice(KindAggregate, validAggregate().bytes(), 100, 0, testThresholds)
	require.NoError(err)
	// 2000 * 10^-2 = 20
	require.True(reading.Price.Eq(fixed.New(20)))
	require.Equal(uint64(99), reading.SourceSlot)
}

func TestReadAggregatePositiveExponent(t *testing.T) {
	require := require.New(t)

	feed := validAggregate()
	feed.exponent = 3
	feed.mantissa = 7

	reading, err := ReadPrice(KindAggregate, feed.bytes(), 100, 0, testThresholds)
	require.NoError(err)
	require.True(reading.Price.Eq(fixed.New(7000)))
}

func TestReadAggregateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*aggregateFeed)
		wantErr error
	}{
		{
			name:    "wrong magic",
			mutate:  func(f *aggregateFeed) { f.magic = 0xdeadbeef },
			wantErr: ErrUnpack,
		},
		{
			name:    "wrong version",
			mutate:  func(f *aggregateFeed) { f.version = 1 },
			wantErr: ErrUnpack,
		},
		{
			name:    "mapping account instead of price",
			mutate:  func(f *aggregateFeed) { f.accountType = 1 },
			wantErr: ErrInvalidOracle,
		},
		{
			name:    "not trading",
			mutate:  func(f *aggregateFeed) { f.status = 0 },
			wantErr: ErrInvalidOracle,
		},
		{
			name:    "negative mantissa",
			mutate:  func(f *aggregateFeed) { f.mantissa = -1 },
			wantErr: ErrInvalidOracle,
		},
		{
			name:    "stale publish slot",
			mutate:  func(f *aggregateFeed) { f.publishSlot = 90 },
			wantErr: ErrInvalidOracle,
		},
		{
			name:    "future publish slot",
			mutate:  func(f *aggregateFeed) { f.publishSlot = 101 },
			wantErr: ErrInvalidOracle,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			feed := validAggregate()
			test.mutate(&feed)
			_, err := ReadPrice(KindAggregate, feed.bytes(), 100, 0, testThresholds)
			require.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestReadAggregateShortBuffer(t *testing.T) {
	require := require.New(t)

	_, err := ReadPrice(KindAggregate, validAggregate().bytes()[:40], 100, 0, testThresholds)
	require.ErrorIs(err, ErrUnpack)
}

func TestAggregateStalenessBoundary(t *testing.T) {
	require := require.New(t)

	feed := validAggregate()
	feed.publishSlot = 100

	// elapsed == threshold-1 is still fresh.
	_, err := ReadPrice(KindAggregate, feed.bytes(), 100+testThresholds.AggregateSlots-1, 0, testThresholds)
	require.NoError(err)

	// elapsed == threshold is stale.
	_, err = ReadPrice(KindAggregate, feed.bytes(), 100+testThresholds.AggregateSlots, 0, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)
}

func ringFeed(initialized bool, decimals byte, staleSecs uint32, timestamps []int64, hasAnswer bool, answer uint64) []byte {
	p := wrappers.Packer{}
	p.PackBool(initialized)
	p.PackByte(decimals)
	p.PackInt(staleSecs)
	p.PackInt(uint32(len(timestamps)))
	for _, ts := range timestamps {
		p.PackLong(uint64(ts))
		p.PackLong(1) // submitted value, unused
	}
	p.PackBool(hasAnswer)
	p.PackLong(answer)
	return p.Bytes
}

func TestReadRing(t *testing.T) {
	require := require.New(t)

	raw := ringFeed(true, 2, 60, []int64{500, 940, 700}, true, 1250)
	reading, err := ReadPrice(KindRing, raw, 77, 970, testThresholds)
	require.NoError(err)
	// 1250 / 10^2 = 12.5
	require.True(reading.Price.Eq(fixed.FromScaled(12_500_000_000_000_000_000)))
	require.Equal(uint64(77), reading.SourceSlot)
}

func TestReadRingRejections(t *testing.T) {
	require := require.New(t)

	// Not initialized.
	_, err := ReadPrice(KindRing, ringFeed(false, 2, 60, []int64{940}, true, 1), 0, 950, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)

	// No answer.
	_, err = ReadPrice(KindRing, ringFeed(true, 2, 60, []int64{940}, false, 0), 0, 950, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)

	// Freshest submission at the threshold boundary is stale.
	_, err = ReadPrice(KindRing, ringFeed(true, 2, 60, []int64{100, 940}, true, 1), 0, 1000, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)

	// One second inside the window is fresh.
	_, err = ReadPrice(KindRing, ringFeed(true, 2, 60, []int64{100, 940}, true, 1), 0, 999, testThresholds)
	require.NoError(err)

	// A submission timestamped after the caller's clock is as suspect as
	// a stale one.
	_, err = ReadPrice(KindRing, ringFeed(true, 2, 60, []int64{990}, true, 1), 0, 950, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)
}

func TestReadRingMalformed(t *testing.T) {
	require := require.New(t)

	// Truncated header.
	_, err := ReadPrice(KindRing, []byte{1, 2}, 0, 0, testThresholds)
	require.ErrorIs(err, ErrUnpack)

	// Length disagrees with the submission count.
	raw := ringFeed(true, 2, 60, []int64{940}, true, 1)
	_, err = ReadPrice(KindRing, raw[:len(raw)-1], 0, 950, testThresholds)
	require.ErrorIs(err, ErrUnpack)

	// Submission count past ring capacity.
	p := wrappers.Packer{}
	p.PackBool(true)
	p.PackByte(2)
	p.PackInt(60)
	p.PackInt(RingMaxSubmissions + 1)
	_, err = ReadPrice(KindRing, p.Bytes, 0, 950, testThresholds)
	require.ErrorIs(err, ErrUnpack)
}

func roundsFeed(kind Kind, openSlot, mantissa uint64, scale uint32) []byte {
	p := wrappers.Packer{}
	if kind == KindRoundsV2 {
		p.PackByte(roundsVersion2)
		p.PackInt(0) // flags
	} else {
		p.PackByte(roundsVersion1)
	}
	p.PackLong(openSlot)
	p.PackLong(mantissa)
	p.PackInt(scale)
	return p.Bytes
}

func TestReadRoundsBothVersions(t *testing.T) {
	require := require.New(t)

	v1, err := ReadPrice(KindRoundsV1, roundsFeed(KindRoundsV1, 95, 1_500_000, 4), 100, 0, testThresholds)
	require.NoError(err)
	v2, err := ReadPrice(KindRoundsV2, roundsFeed(KindRoundsV2, 95, 1_500_000, 4), 100, 0, testThresholds)
	require.NoError(err)

	// Identical semantics across layouts: 1500000 / 10^4 = 150.
	require.True(v1.Price.Eq(fixed.New(150)))
	require.True(v1.Price.Eq(v2.Price))
	require.Equal(uint64(95), v1.SourceSlot)
	require.Equal(v1.SourceSlot, v2.SourceSlot)
}

func TestReadRoundsStale(t *testing.T) {
	require := require.New(t)

	raw := roundsFeed(KindRoundsV1, 50, 100, 0)
	_, err := ReadPrice(KindRoundsV1, raw, 50+testThresholds.RoundSlots, 0, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)

	_, err = ReadPrice(KindRoundsV1, raw, 50+testThresholds.RoundSlots-1, 0, testThresholds)
	require.NoError(err)

	// A round opening after the caller's slot is rejected outright.
	_, err = ReadPrice(KindRoundsV1, raw, 49, 0, testThresholds)
	require.ErrorIs(err, ErrInvalidOracle)
}

func TestReadRoundsMalformed(t *testing.T) {
	require := require.New(t)

	// Version byte mismatched with the configured kind.
	_, err := ReadPrice(KindRoundsV2, roundsFeed(KindRoundsV1, 95, 100, 0), 100, 0, testThresholds)
	require.ErrorIs(err, ErrUnpack)

	// Wrong length for the version.
	_, err = ReadPrice(KindRoundsV1, roundsFeed(KindRoundsV1, 95, 100, 0)[:10], 100, 0, testThresholds)
	require.ErrorIs(err, ErrUnpack)
}

func TestPow10(t *testing.T) {
	require := require.New(t)

	n, err := pow10(0)
	require.NoError(err)
	require.Equal(uint64(1), n)

	n, err = pow10(19)
	require.NoError(err)
	require.Equal(uint64(10_000_000_000_000_000_000), n)

	_, err = pow10(20)
	require.ErrorIs(err, fixed.ErrMathOverflow)
}
