// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package market coordinates the lending core for the instruction
// handlers: it loads reserve state, runs oracle reads and accrual, and
// writes the results back.
//
// Refresh, accrual, and liquidation may arrive as separate top-level
// invocations that cannot be bundled atomically. Each operation here
// re-checks staleness before trusting cached state; none assumes an
// adjacent step ran in the same invocation.
package market

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lending/config"
	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/metrics"
	"github.com/luxfi/lending/oracle"
	"github.com/luxfi/lending/reserve"
	"github.com/luxfi/lending/state"
)

var (
	ErrReserveExists = errors.New("reserve already exists")

	// ErrReserveStale indicates cached reserve state too old for the
	// requested operation's staleness policy.
	ErrReserveStale = errors.New("reserve state is stale")
)

// Market owns the stored reserves of one lending market.
type Market struct {
	log        log.Logger
	metrics    metrics.Metrics
	store      *state.Store
	clock      config.Clock
	thresholds config.Thresholds
}

// New returns a market over [db].
func New(
	db database.Database,
	logger log.Logger,
	m metrics.Metrics,
	clock config.Clock,
	thresholds config.Thresholds,
) (*Market, error) {
	if err := clock.Verify(); err != nil {
		return nil, err
	}
	return &Market{
		log:        logger,
		metrics:    m,
		store:      state.New(db),
		clock:      clock,
		thresholds: thresholds,
	}, nil
}

// CreateReserve validates [model] once and persists a new reserve. The
// curve is never re-validated on evaluation.
func (m *Market) CreateReserve(
	id ids.ID,
	kind oracle.Kind,
	model reserve.RateModel,
	feeRate fixed.Rate,
	currentSlot uint64,
) (*reserve.Reserve, error) {
	if err := model.Verify(); err != nil {
		return nil, err
	}
	exists, err := m.store.HasReserve(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrReserveExists, id)
	}

	r := reserve.NewReserve(id, kind, model, feeRate, currentSlot)
	if err := m.store.PutReserve(r); err != nil {
		return nil, err
	}

	m.log.Info("created reserve",
		log.Stringer("reserveID", id),
		log.Stringer("oracleKind", kind),
		log.Uint64("slot", currentSlot),
	)
	return r, nil
}

// RefreshReserve decodes [oracleBytes], accrues interest over the slots
// since the last refresh, adopts the new price, and bumps the tracker.
// On any failure the stored reserve is left untouched.
func (m *Market) RefreshReserve(
	id ids.ID,
	oracleBytes []byte,
	currentSlot uint64,
	now int64,
) (*reserve.Reserve, error) {
	r, err := m.store.GetReserve(id)
	if err != nil {
		return nil, err
	}

	reading, err := oracle.ReadPrice(r.OracleKind, oracleBytes, currentSlot, now, m.thresholds)
	if err != nil {
		if errors.Is(err, oracle.ErrUnpack) {
			m.metrics.IncUnpackFailure()
		} else {
			m.metrics.IncStaleOracle()
		}
		m.log.Warn("rejected oracle reading",
			log.Stringer("reserveID", id),
			log.Uint64("slot", currentSlot),
			log.Err(err),
		)
		return nil, err
	}

	if err := r.AccrueInterest(currentSlot, m.clock); err != nil {
		return nil, err
	}
	r.Price = reading.Price
	r.LastUpdate.Update(currentSlot, false)

	if err := m.store.PutReserve(r); err != nil {
		return nil, err
	}

	m.metrics.IncRefresh()
	m.log.Debug("refreshed reserve",
		log.Stringer("reserveID", id),
		log.Uint64("slot", currentSlot),
		log.Uint64("sourceSlot", reading.SourceSlot),
		log.String("price", reading.Price.String()),
	)
	return r, nil
}

// AccrueObligation brings [ob] up to the reserve's current index. The
// lax windowed policy applies: the reserve must have been refreshed
// within the tracker threshold.
func (m *Market) AccrueObligation(id ids.ID, ob *reserve.Obligation, currentSlot uint64) error {
	r, err := m.store.GetReserve(id)
	if err != nil {
		return err
	}
	stale, err := r.LastUpdate.IsStale(currentSlot, m.thresholds.TrackerSlots)
	if err != nil {
		return err
	}
	if stale {
		return fmt.Errorf("%w: %s at slot %d", ErrReserveStale, id, currentSlot)
	}

	if err := ob.Accrue(r.CumulativeBorrowIndex); err != nil {
		return err
	}
	m.metrics.IncAccrual()
	return nil
}

// Liquidate checks the liquidation limit for [ob] against
// [collateralValue] and returns the protocol's fee on the surplus.
//
// Liquidation spans multiple non-atomic steps, so it demands strict
// same-slot freshness of the reserve rather than the windowed policy.
func (m *Market) Liquidate(
	id ids.ID,
	ob *reserve.Obligation,
	collateralValue fixed.Decimal,
	currentSlot uint64,
) (uint64, error) {
	r, err := m.store.GetReserve(id)
	if err != nil {
		return 0, err
	}
	stale, err := r.LastUpdate.IsStrictlyStale(currentSlot)
	if err != nil {
		return 0, err
	}
	if stale {
		return 0, fmt.Errorf("%w: %s requires a same-slot refresh", ErrReserveStale, id)
	}

	if err := ob.Accrue(r.CumulativeBorrowIndex); err != nil {
		return 0, err
	}

	loanAmount, err := ob.BorrowedAmount.CeilU64()
	if err != nil {
		return 0, err
	}
	loanValue, err := ob.BorrowedAmount.Mul(r.Price)
	if err != nil {
		return 0, err
	}
	if err := reserve.ValidateLiquidationLimit(collateralValue, loanValue); err != nil {
		return 0, err
	}

	fee, err := reserve.LiquidationFee(collateralValue, loanAmount, r.Price, r.FeeRate)
	if err != nil {
		return 0, err
	}

	m.metrics.IncLiquidation()
	m.log.Info("liquidation permitted",
		log.Stringer("reserveID", id),
		log.Uint64("slot", currentSlot),
		log.Uint64("fee", fee),
		log.String("collateralValue", collateralValue.String()),
		log.String("loanValue", loanValue.String()),
	)
	return fee, nil
}
