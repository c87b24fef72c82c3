// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	"errors"
	"fmt"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
)

var (
	// ErrNegativeInterestRate indicates a cumulative borrow index that
	// moved backwards. The global index is monotonically non-decreasing;
	// a regression is a fatal state inconsistency, not a recoverable
	// condition.
	ErrNegativeInterestRate = errors.New("interest rate cannot be negative")

	// ErrWithinLiquidationLimit indicates a position whose collateral
	// value does not exceed its loan value, so liquidation is not
	// permitted.
	ErrWithinLiquidationLimit = errors.New("collateral is within the liquidation limit")
)

// Interest rounding always favors the protocol: every amount leaving
// these functions as whole units is ceiling-rounded.

// CalculateInterest returns simple interest on [base] over
// [elapsedSlots]: base * annualRate * elapsed / slotsPerYear.
func CalculateInterest(base fixed.Decimal, annualRate fixed.Rate, elapsedSlots uint64, clock config.Clock) (uint64, error) {
	grown, err := base.Mul(annualRate.Decimal())
	if err != nil {
		return 0, err
	}
	if grown, err = grown.MulUint(elapsedSlots); err != nil {
		return 0, err
	}
	if grown, err = grown.DivUint(clock.SlotsPerYear()); err != nil {
		return 0, err
	}
	return grown.CeilU64()
}

// CompoundGrowth returns (1 + annualRate/slotsPerYear)^elapsedSlots,
// the factor the cumulative borrow index grows by over [elapsedSlots].
func CompoundGrowth(annualRate fixed.Rate, elapsedSlots uint64, clock config.Clock) (fixed.Decimal, error) {
	slotRate, err := annualRate.Decimal().DivUint(clock.SlotsPerYear())
	if err != nil {
		return fixed.Decimal{}, err
	}
	base, err := fixed.One().Add(slotRate)
	if err != nil {
		return fixed.Decimal{}, err
	}
	return base.Pow(elapsedSlots)
}

// CalculateCompoundInterest returns [base] compounded per-slot over
// [elapsedSlots], as whole units.
func CalculateCompoundInterest(base fixed.Decimal, annualRate fixed.Rate, elapsedSlots uint64, clock config.Clock) (uint64, error) {
	growth, err := CompoundGrowth(annualRate, elapsedSlots, clock)
	if err != nil {
		return 0, err
	}
	total, err := base.Mul(growth)
	if err != nil {
		return 0, err
	}
	return total.CeilU64()
}

// CalculateInterestFee returns the protocol's cut of [interest] at
// [feeRate], as whole units.
func CalculateInterestFee(interest fixed.Decimal, feeRate fixed.Rate) (uint64, error) {
	fee, err := interest.Mul(feeRate.Decimal())
	if err != nil {
		return 0, err
	}
	return fee.CeilU64()
}

// AccruePosition scales a position's [balance] from the index it was
// last accrued at up to the reserve's current index.
//
// A current index below the recorded one fails with
// ErrNegativeInterestRate; an equal index is a no-op.
func AccruePosition(balance fixed.Decimal, recordedIndex, currentIndex fixed.Decimal) (fixed.Decimal, error) {
	switch currentIndex.Cmp(recordedIndex) {
	case -1:
		return fixed.Decimal{}, fmt.Errorf("%w: index regressed from %s to %s",
			ErrNegativeInterestRate, recordedIndex, currentIndex)
	case 0:
		return balance, nil
	default:
		growth, err := currentIndex.Div(recordedIndex)
		if err != nil {
			return fixed.Decimal{}, err
		}
		return balance.Mul(growth)
	}
}

// Fund decomposes a withdrawal into the principal and accrued-interest
// portions it draws from.
type Fund struct {
	Principal uint64
	Interest  uint64
}

// SplitWithdrawal attributes a withdrawal of [amount] from a position
// holding [total] units of which [principal] were deposited. Accrued
// interest is drawn first; only the remainder reduces principal.
func SplitWithdrawal(total, principal, amount uint64) (Fund, error) {
	accrued, err := safemath.Sub(total, principal)
	if err != nil {
		return Fund{}, fmt.Errorf("%w: principal %d exceeds total %d", fixed.ErrMathOverflow, principal, total)
	}
	if amount > accrued {
		return Fund{
			Principal: amount - accrued,
			Interest:  accrued,
		}, nil
	}
	return Fund{Interest: amount}, nil
}

// LiquidationFee converts [collateralValue] into units of the loan
// asset at [loanPrice] and charges [feeRate] on the surplus over the
// outstanding [loanAmount]. A position at or below par owes no fee.
func LiquidationFee(collateralValue fixed.Decimal, loanAmount uint64, loanPrice fixed.Decimal, feeRate fixed.Rate) (uint64, error) {
	equivalent, err := collateralValue.Div(loanPrice)
	if err != nil {
		return 0, err
	}
	outstanding := fixed.New(loanAmount)
	if equivalent.Cmp(outstanding) <= 0 {
		return 0, nil
	}
	surplus, err := equivalent.Sub(outstanding)
	if err != nil {
		return 0, err
	}
	fee, err := surplus.Mul(feeRate.Decimal())
	if err != nil {
		return 0, err
	}
	return fee.CeilU64()
}

// ValidateLiquidationLimit requires collateral to be worth strictly
// more than the loan before liquidation is permitted at all.
func ValidateLiquidationLimit(collateralValue, loanValue fixed.Decimal) error {
	if collateralValue.Cmp(loanValue) <= 0 {
		return fmt.Errorf("%w: collateral %s, loan %s", ErrWithinLiquidationLimit, collateralValue, loanValue)
	}
	return nil
}
