// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
)

var testModel = RateModel{
	OffsetPct:          2,
	OptimalPct:         10,
	MaxPct:             100,
	KinkUtilizationPct: 80,
}

func TestRateModelVerify(t *testing.T) {
	tests := []struct {
		name  string
		model RateModel
		valid bool
	}{
		{"default", testModel, true},
		{"narrow segments", RateModel{OffsetPct: 0, OptimalPct: 1, MaxPct: 2, KinkUtilizationPct: 50}, true},
		{"optimal below offset", RateModel{OffsetPct: 10, OptimalPct: 5, MaxPct: 100, KinkUtilizationPct: 80}, false},
		{"optimal equals offset", RateModel{OffsetPct: 10, OptimalPct: 10, MaxPct: 100, KinkUtilizationPct: 80}, false},
		{"max equals optimal", RateModel{OffsetPct: 2, OptimalPct: 10, MaxPct: 10, KinkUtilizationPct: 80}, false},
		{"kink at zero", RateModel{OffsetPct: 2, OptimalPct: 10, MaxPct: 100, KinkUtilizationPct: 0}, false},
		{"kink at one hundred", RateModel{OffsetPct: 2, OptimalPct: 10, MaxPct: 100, KinkUtilizationPct: 100}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.model.Verify()
			if test.valid {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidRateModel)
			}
		})
	}
}

func TestAnnualBorrowRate(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		utilization fixed.Rate
		want        fixed.Rate
	}{
		// Below the kink: offset + util/kink * (optimal - offset).
		{fixed.ZeroRate(), fixed.RateFromPercent(2)},
		{fixed.RateFromPercent(40), fixed.RateFromPercent(6)},
		{fixed.RateFromPercent(80), fixed.RateFromPercent(10)},
		// Above the kink: optimal + (util-kink)/(1-kink) * (max - optimal).
		{fixed.RateFromPercent(90), fixed.RateFromScaled(550_000_000_000_000_000)},
		{fixed.RateFromPercent(100), fixed.RateFromPercent(100)},
	}
	for _, test := range tests {
		got, err := testModel.AnnualBorrowRate(test.utilization)
		require.NoError(err)
		require.True(got.Eq(test.want), "utilization %s: got %s, want %s", test.utilization, got, test.want)
	}
}

func TestBorrowRateContinuousAtKink(t *testing.T) {
	require := require.New(t)

	atKink, err := testModel.AnnualBorrowRate(fixed.RateFromPercent(testModel.KinkUtilizationPct))
	require.NoError(err)
	require.True(atKink.Eq(fixed.RateFromPercent(testModel.OptimalPct)))

	// One scaled unit below the kink converges to the same value.
	kinkScaled, err := fixed.RateFromPercent(testModel.KinkUtilizationPct).Scaled()
	require.NoError(err)
	justBelow, err := testModel.AnnualBorrowRate(fixed.RateFromScaled(kinkScaled - 1))
	require.NoError(err)

	gap, err := atKink.Sub(justBelow)
	require.NoError(err)
	gapScaled, err := gap.Scaled()
	require.NoError(err)
	require.Less(gapScaled, uint64(10))
}

func TestBorrowRatePerSlot(t *testing.T) {
	require := require.New(t)

	clock := config.DefaultClock()
	annual, err := testModel.AnnualBorrowRate(fixed.RateFromPercent(40))
	require.NoError(err)
	perSlot, err := testModel.BorrowRate(fixed.RateFromPercent(40), clock)
	require.NoError(err)

	want, err := annual.DivUint(clock.SlotsPerYear())
	require.NoError(err)
	require.True(perSlot.Eq(want))

	// Per-slot rates are tiny but non-zero for any configured curve.
	require.False(perSlot.IsZero())
}
