// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	"errors"
	"fmt"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
)

// ErrInvalidRateModel indicates rate-curve parameters that fail
// validation at configuration-write time.
var ErrInvalidRateModel = errors.New("invalid rate curve configuration")

// RateModel parameterizes the two-segment borrow-rate curve. All fields
// are whole percents. Verify is called once when the configuration is
// written, not on every evaluation.
type RateModel struct {
	// OffsetPct is the annual borrow rate at zero utilization.
	OffsetPct uint8 `json:"offsetPct"`

	// OptimalPct is the annual borrow rate at the kink.
	OptimalPct uint8 `json:"optimalPct"`

	// MaxPct is the annual borrow rate at full utilization.
	MaxPct uint8 `json:"maxPct"`

	// KinkUtilizationPct is the utilization at which the slope changes.
	KinkUtilizationPct uint8 `json:"kinkUtilizationPct"`
}

// Verify checks the curve parameters: rates must strictly increase
// across the segments and the kink must lie strictly inside (0%, 100%).
func (m RateModel) Verify() error {
	switch {
	case m.OptimalPct <= m.OffsetPct:
		return fmt.Errorf("%w: optimal rate %d%% must exceed offset rate %d%%", ErrInvalidRateModel, m.OptimalPct, m.OffsetPct)
	case m.MaxPct <= m.OptimalPct:
		return fmt.Errorf("%w: max rate %d%% must exceed optimal rate %d%%", ErrInvalidRateModel, m.MaxPct, m.OptimalPct)
	case m.KinkUtilizationPct == 0 || m.KinkUtilizationPct >= 100:
		return fmt.Errorf("%w: kink utilization %d%% must be inside (0%%, 100%%)", ErrInvalidRateModel, m.KinkUtilizationPct)
	}
	return nil
}

// AnnualBorrowRate evaluates the kinked curve at [utilization] and
// returns the annualized borrow rate.
//
// Below the kink:  offset + utilization/kink * (optimal - offset)
// Above the kink:  optimal + (utilization-kink)/(1-kink) * (max - optimal)
//
// Both segments compute in Decimal for multiply headroom and narrow to
// Rate at the end.
func (m RateModel) AnnualBorrowRate(utilization fixed.Rate) (fixed.Rate, error) {
	util := utilization.Decimal()
	kink := fixed.FromPercent(m.KinkUtilizationPct)

	var low, high fixed.Decimal
	var norm fixed.Decimal
	var err error
	if util.Cmp(kink) <= 0 {
		low = fixed.FromPercent(m.OffsetPct)
		high = fixed.FromPercent(m.OptimalPct)
		norm, err = util.Div(kink)
	} else {
		low = fixed.FromPercent(m.OptimalPct)
		high = fixed.FromPercent(m.MaxPct)
		var over, width fixed.Decimal
		if over, err = util.Sub(kink); err == nil {
			if width, err = fixed.One().Sub(kink); err == nil {
				norm, err = over.Div(width)
			}
		}
	}
	if err != nil {
		return fixed.Rate{}, err
	}

	// Verify guarantees high > low.
	spread, err := high.Sub(low)
	if err != nil {
		return fixed.Rate{}, err
	}
	scaled, err := norm.Mul(spread)
	if err != nil {
		return fixed.Rate{}, err
	}
	annual, err := scaled.Add(low)
	if err != nil {
		return fixed.Rate{}, err
	}
	return fixed.RateFromDecimal(annual)
}

// BorrowRate evaluates the curve and narrows the annual rate down to a
// per-slot rate under [clock]'s cadence.
func (m RateModel) BorrowRate(utilization fixed.Rate, clock config.Clock) (fixed.Rate, error) {
	annual, err := m.AnnualBorrowRate(utilization)
	if err != nil {
		return fixed.Rate{}, err
	}
	return annual.DivUint(clock.SlotsPerYear())
}
