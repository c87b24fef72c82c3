// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reserve

import (
	safemath "github.com/luxfi/math"

	"github.com/luxfi/ids"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/oracle"
)

// Reserve is the cached lending state for one asset. The instruction
// handlers own the instance; every method here is a pure transformation
// of caller-supplied state.
type Reserve struct {
	ID ids.ID

	// OracleKind selects the binary layout of this reserve's price
	// source.
	OracleKind oracle.Kind

	// LastUpdate gates whether the cached fields below may be used.
	LastUpdate LastUpdate

	Model RateModel

	// FeeRate is the protocol's cut of accrued interest and of
	// liquidation surpluses.
	FeeRate fixed.Rate

	// CumulativeBorrowIndex accumulates compound interest growth since
	// inception. Monotonically non-decreasing.
	CumulativeBorrowIndex fixed.Decimal

	// BorrowedAmount is the total outstanding debt, interest included.
	BorrowedAmount fixed.Decimal

	// AvailableLiquidity is the undrawn balance, in whole units.
	AvailableLiquidity uint64

	// Price is the last trusted oracle price.
	Price fixed.Decimal
}

// NewReserve returns a reserve created at [creationSlot]. The index
// starts at 1 and the tracker starts stale: nothing is trusted before
// the first refresh.
func NewReserve(id ids.ID, kind oracle.Kind, model RateModel, feeRate fixed.Rate, creationSlot uint64) *Reserve {
	return &Reserve{
		ID:                    id,
		OracleKind:            kind,
		LastUpdate:            NewLastUpdate(creationSlot),
		Model:                 model,
		FeeRate:               feeRate,
		CumulativeBorrowIndex: fixed.One(),
		BorrowedAmount:        fixed.Zero(),
	}
}

// Utilization returns borrowed / (borrowed + available). An empty
// reserve has zero utilization.
func (r *Reserve) Utilization() (fixed.Rate, error) {
	if r.BorrowedAmount.IsZero() {
		return fixed.ZeroRate(), nil
	}
	total, err := r.BorrowedAmount.Add(fixed.New(r.AvailableLiquidity))
	if err != nil {
		return fixed.Rate{}, err
	}
	util, err := r.BorrowedAmount.Div(total)
	if err != nil {
		return fixed.Rate{}, err
	}
	return fixed.RateFromDecimal(util)
}

// AccrueInterest compounds the borrow index and the outstanding debt
// over the slots elapsed since the last refresh. It does not touch
// LastUpdate; bumping the tracker is the caller's acknowledgement that
// the whole refresh succeeded.
func (r *Reserve) AccrueInterest(currentSlot uint64, clock config.Clock) error {
	elapsed, err := r.LastUpdate.SlotsElapsed(currentSlot)
	if err != nil {
		return err
	}
	if elapsed == 0 {
		return nil
	}

	util, err := r.Utilization()
	if err != nil {
		return err
	}
	annual, err := r.Model.AnnualBorrowRate(util)
	if err != nil {
		return err
	}
	growth, err := CompoundGrowth(annual, elapsed, clock)
	if err != nil {
		return err
	}

	if r.CumulativeBorrowIndex, err = r.CumulativeBorrowIndex.Mul(growth); err != nil {
		return err
	}
	if r.BorrowedAmount, err = r.BorrowedAmount.Mul(growth); err != nil {
		return err
	}
	return nil
}

// Borrow moves [amount] whole units from available liquidity into the
// outstanding debt.
func (r *Reserve) Borrow(amount uint64) error {
	remaining, err := safemath.Sub(r.AvailableLiquidity, amount)
	if err != nil {
		return fixed.ErrMathOverflow
	}
	borrowed, err := r.BorrowedAmount.Add(fixed.New(amount))
	if err != nil {
		return err
	}
	r.AvailableLiquidity = remaining
	r.BorrowedAmount = borrowed
	return nil
}

// Repay returns [amount] whole units from the outstanding debt to
// available liquidity. Repaying more than is owed settles the debt.
func (r *Reserve) Repay(amount uint64) error {
	settled := fixed.New(amount)
	if settled.Cmp(r.BorrowedAmount) > 0 {
		settled = r.BorrowedAmount
	}
	remaining, err := r.BorrowedAmount.Sub(settled)
	if err != nil {
		return err
	}
	liquidity, err := safemath.Add(r.AvailableLiquidity, amount)
	if err != nil {
		return fixed.ErrMathOverflow
	}
	r.BorrowedAmount = remaining
	r.AvailableLiquidity = liquidity
	return nil
}

// Deposit adds [amount] whole units of liquidity.
func (r *Reserve) Deposit(amount uint64) error {
	liquidity, err := safemath.Add(r.AvailableLiquidity, amount)
	if err != nil {
		return fixed.ErrMathOverflow
	}
	r.AvailableLiquidity = liquidity
	return nil
}

// Obligation is a single borrow position against a reserve.
type Obligation struct {
	// BorrowedAmount is the position's debt, interest included.
	BorrowedAmount fixed.Decimal

	// CumulativeBorrowIndex is the reserve index the position was last
	// accrued at.
	CumulativeBorrowIndex fixed.Decimal
}

// NewObligation opens a position of [amount] whole units at the
// reserve's current index.
func NewObligation(amount uint64, currentIndex fixed.Decimal) *Obligation {
	return &Obligation{
		BorrowedAmount:        fixed.New(amount),
		CumulativeBorrowIndex: currentIndex,
	}
}

// Accrue brings the position's balance up to [currentIndex] and adopts
// it.
func (o *Obligation) Accrue(currentIndex fixed.Decimal) error {
	balance, err := AccruePosition(o.BorrowedAmount, o.CumulativeBorrowIndex, currentIndex)
	if err != nil {
		return err
	}
	o.BorrowedAmount = balance
	o.CumulativeBorrowIndex = currentIndex
	return nil
}
