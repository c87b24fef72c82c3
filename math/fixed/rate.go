// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixed

import "fmt"

// RateBits is the width of the Rate view. Narrowing a Decimal to a Rate
// fails when the value needs more than RateBits.
const RateBits = 128

// Rate is an unsigned fixed-point ratio sharing the Decimal
// representation and scale. It is the narrower view used for per-period
// rates and utilization ratios; typical values stay below 1.0 but the
// type only enforces the RateBits width.
type Rate struct {
	v Decimal
}

// ZeroRate returns the Rate 0.
func ZeroRate() Rate {
	return Rate{}
}

// OneRate returns the Rate 1.
func OneRate() Rate {
	return Rate{v: One()}
}

// NewRate returns the Rate representing [whole] whole units.
func NewRate(whole uint64) Rate {
	return Rate{v: New(whole)}
}

// RateFromScaled returns the Rate whose raw 10^18-scaled representation
// is [scaled].
func RateFromScaled(scaled uint64) Rate {
	return Rate{v: FromScaled(scaled)}
}

// RateFromPercent returns the Rate representing [pct]/100.
func RateFromPercent(pct uint8) Rate {
	return Rate{v: FromPercent(pct)}
}

// RateFromDecimal narrows a Decimal to a Rate. Fails if the value does
// not fit in RateBits.
func RateFromDecimal(d Decimal) (Rate, error) {
	if d.v.BitLen() > RateBits {
		return Rate{}, fmt.Errorf("%w: %s exceeds %d bits", ErrMathOverflow, d, RateBits)
	}
	return Rate{v: d}, nil
}

// Decimal widens the Rate to a Decimal. Widening never fails.
func (r Rate) Decimal() Decimal {
	return r.v
}

// Scaled returns the raw 10^18-scaled representation as a uint64.
// Fails if the value does not fit in 64 bits.
func (r Rate) Scaled() (uint64, error) {
	return r.v.Scaled()
}

// Add returns r + o.
func (r Rate) Add(o Rate) (Rate, error) {
	sum, err := r.v.Add(o.v)
	if err != nil {
		return Rate{}, err
	}
	return RateFromDecimal(sum)
}

// Sub returns r - o. Fails if o exceeds r.
func (r Rate) Sub(o Rate) (Rate, error) {
	diff, err := r.v.Sub(o.v)
	if err != nil {
		return Rate{}, err
	}
	return Rate{v: diff}, nil
}

// Mul returns r * o at the same scale.
func (r Rate) Mul(o Rate) (Rate, error) {
	prod, err := r.v.Mul(o.v)
	if err != nil {
		return Rate{}, err
	}
	return RateFromDecimal(prod)
}

// MulUint returns r * [scalar] with no rescale.
func (r Rate) MulUint(scalar uint64) (Rate, error) {
	prod, err := r.v.MulUint(scalar)
	if err != nil {
		return Rate{}, err
	}
	return RateFromDecimal(prod)
}

// Div returns r / o, preserving scale.
func (r Rate) Div(o Rate) (Rate, error) {
	quot, err := r.v.Div(o.v)
	if err != nil {
		return Rate{}, err
	}
	return RateFromDecimal(quot)
}

// DivUint returns r / [scalar] with no rescale.
func (r Rate) DivUint(scalar uint64) (Rate, error) {
	quot, err := r.v.DivUint(scalar)
	if err != nil {
		return Rate{}, err
	}
	return Rate{v: quot}, nil
}

// Pow returns r^exp by repeated squaring.
func (r Rate) Pow(exp uint64) (Rate, error) {
	p, err := r.v.Pow(exp)
	if err != nil {
		return Rate{}, err
	}
	return RateFromDecimal(p)
}

// Cmp returns -1, 0, or 1 when r is less than, equal to, or greater
// than o.
func (r Rate) Cmp(o Rate) int {
	return r.v.Cmp(o.v)
}

// Eq returns true if r equals o.
func (r Rate) Eq(o Rate) bool {
	return r.v.Eq(o.v)
}

// IsZero returns true if r is 0.
func (r Rate) IsZero() bool {
	return r.v.IsZero()
}

func (r Rate) String() string {
	return r.v.String()
}
