// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/luxfi/metric"
)

var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = Noop{}
)

// Metrics counts the outcomes of market operations.
type Metrics interface {
	// IncRefresh marks a successful reserve refresh.
	IncRefresh()
	// IncStaleOracle marks an oracle rejected for staleness or failed
	// validation.
	IncStaleOracle()
	// IncUnpackFailure marks an oracle buffer that could not be parsed.
	IncUnpackFailure()
	// IncAccrual marks an obligation accrual.
	IncAccrual()
	// IncLiquidation marks a permitted liquidation.
	IncLiquidation()
}

type metricsImpl struct {
	numRefreshes, numStaleOracles, numUnpackFailures metric.Counter
	numAccruals, numLiquidations                     metric.Counter
}

func (m *metricsImpl) IncRefresh()       { m.numRefreshes.Inc() }
func (m *metricsImpl) IncStaleOracle()   { m.numStaleOracles.Inc() }
func (m *metricsImpl) IncUnpackFailure() { m.numUnpackFailures.Inc() }
func (m *metricsImpl) IncAccrual()       { m.numAccruals.Inc() }
func (m *metricsImpl) IncLiquidation()   { m.numLiquidations.Inc() }

func New() Metrics {
	m := &metricsImpl{}
	m.numRefreshes = metric.NewCounter(metric.CounterOpts{
		Name: "reserve_refreshes",
		Help: "Number of reserves refreshed with a fresh oracle price",
	})
	m.numStaleOracles = metric.NewCounter(metric.CounterOpts{
		Name: "oracle_stale_rejections",
		Help: "Number of oracle readings rejected as stale or invalid",
	})
	m.numUnpackFailures = metric.NewCounter(metric.CounterOpts{
		Name: "oracle_unpack_failures",
		Help: "Number of oracle buffers that failed to parse",
	})
	m.numAccruals = metric.NewCounter(metric.CounterOpts{
		Name: "obligation_accruals",
		Help: "Number of obligations accrued against a reserve index",
	})
	m.numLiquidations = metric.NewCounter(metric.CounterOpts{
		Name: "liquidations",
		Help: "Number of liquidations permitted by the limit check",
	})
	return m
}

// Noop discards all observations. Used in tests.
type Noop struct{}

func (Noop) IncRefresh()       {}
func (Noop) IncStaleOracle()   {}
func (Noop) IncUnpackFailure() {}
func (Noop) IncAccrual()       {}
func (Noop) IncLiquidation()   {}
