// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixed implements the unsigned fixed-point arithmetic underlying
// all value, price, and rate computations in the lending protocol.
//
// Values are held at a fixed scale of 10^18 (WAD) in a 192-bit unsigned
// representation. There is no saturation and no wraparound anywhere:
// every operation that could overflow, underflow, or lose representability
// fails with ErrMathOverflow and produces no result.
package fixed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// Decimals is the number of fractional digits in the representation.
	Decimals = 18

	// MaxBits is the width of the representation. Operations whose result
	// would not fit in MaxBits fail with ErrMathOverflow even when the
	// 256-bit backing word could hold them.
	MaxBits = 192
)

// ErrMathOverflow is returned by every checked arithmetic failure:
// overflow, underflow, division by zero, and non-representable rounding.
var ErrMathOverflow = errors.New("math overflow")

var (
	wad        = uint256.NewInt(1_000_000_000_000_000_000)
	halfWad    = uint256.NewInt(500_000_000_000_000_000)
	wadMinus1  = uint256.NewInt(999_999_999_999_999_999)
	oneHundred = uint256.NewInt(100)
)

// Decimal is an immutable unsigned fixed-point value scaled by 10^18.
// The zero value is 0.
type Decimal struct {
	v uint256.Int
}

// Zero returns the Decimal 0.
func Zero() Decimal {
	return Decimal{}
}

// One returns the Decimal 1.
func One() Decimal {
	var d Decimal
	d.v.Set(wad)
	return d
}

// New returns the Decimal representing [whole] whole units.
func New(whole uint64) Decimal {
	var d Decimal
	d.v.SetUint64(whole)
	d.v.Mul(&d.v, wad)
	return d
}

// NewBig returns the Decimal representing [whole] whole units, where
// [whole] may exceed 64 bits. Fails if the scaled value exceeds MaxBits.
func NewBig(whole *uint256.Int) (Decimal, error) {
	var d Decimal
	if _, overflow := d.v.MulOverflow(whole, wad); overflow || exceedsWidth(&d.v) {
		return Decimal{}, fmt.Errorf("%w: scaling %s", ErrMathOverflow, whole)
	}
	return d, nil
}

// FromScaled returns the Decimal whose raw 10^18-scaled representation
// is [scaled].
func FromScaled(scaled uint64) Decimal {
	var d Decimal
	d.v.SetUint64(scaled)
	return d
}

// FromScaledBig returns the Decimal whose raw representation is [scaled].
// Fails if [scaled] exceeds MaxBits.
func FromScaledBig(scaled *uint256.Int) (Decimal, error) {
	if exceedsWidth(scaled) {
		return Decimal{}, fmt.Errorf("%w: %s exceeds %d bits", ErrMathOverflow, scaled, MaxBits)
	}
	var d Decimal
	d.v.Set(scaled)
	return d, nil
}

// FromPercent returns the Decimal representing [pct]/100.
func FromPercent(pct uint8) Decimal {
	var d Decimal
	d.v.SetUint64(uint64(pct))
	d.v.Mul(&d.v, wad)
	d.v.Div(&d.v, oneHundred)
	return d
}

// Scaled returns the raw 10^18-scaled representation as a uint64.
// Fails if the value does not fit in 64 bits.
func (d Decimal) Scaled() (uint64, error) {
	if !d.v.IsUint64() {
		return 0, fmt.Errorf("%w: scaled value %s exceeds 64 bits", ErrMathOverflow, &d.v)
	}
	return d.v.Uint64(), nil
}

// ScaledBig returns a copy of the raw scaled representation.
func (d Decimal) ScaledBig() *uint256.Int {
	return new(uint256.Int).Set(&d.v)
}

// Add returns d + o.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.AddOverflow(&d.v, &o.v); overflow || exceedsWidth(&r.v) {
		return Decimal{}, fmt.Errorf("%w: %s + %s", ErrMathOverflow, d, o)
	}
	return r, nil
}

// Sub returns d - o. Fails if o exceeds d; the representation is
// unsigned and never wraps.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	var r Decimal
	if _, underflow := r.v.SubOverflow(&d.v, &o.v); underflow {
		return Decimal{}, fmt.Errorf("%w: %s - %s", ErrMathOverflow, d, o)
	}
	return r, nil
}

// Mul returns d * o at the same scale. The raw product is computed at
// double width before the correcting division by 10^18, so intermediate
// overflow of a representable result is impossible.
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, &o.v, wad); overflow || exceedsWidth(&r.v) {
		return Decimal{}, fmt.Errorf("%w: %s * %s", ErrMathOverflow, d, o)
	}
	return r, nil
}

// MulUint returns d * [scalar] with no rescale.
func (d Decimal) MulUint(scalar uint64) (Decimal, error) {
	var r Decimal
	s := uint256.NewInt(scalar)
	if _, overflow := r.v.MulOverflow(&d.v, s); overflow || exceedsWidth(&r.v) {
		return Decimal{}, fmt.Errorf("%w: %s * %d", ErrMathOverflow, d, scalar)
	}
	return r, nil
}

// Div returns d / o, preserving scale by widening the dividend by 10^18
// before dividing by the divisor's raw value.
func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.v.IsZero() {
		return Decimal{}, fmt.Errorf("%w: division by zero", ErrMathOverflow)
	}
	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, wad, &o.v); overflow || exceedsWidth(&r.v) {
		return Decimal{}, fmt.Errorf("%w: %s / %s", ErrMathOverflow, d, o)
	}
	return r, nil
}

// DivUint returns d / [scalar] with no rescale.
func (d Decimal) DivUint(scalar uint64) (Decimal, error) {
	if scalar == 0 {
		return Decimal{}, fmt.Errorf("%w: division by zero", ErrMathOverflow)
	}
	var r Decimal
	r.v.Div(&d.v, uint256.NewInt(scalar))
	return r, nil
}

// Pow returns d^exp by repeated squaring, propagating overflow from the
// underlying multiplications.
func (d Decimal) Pow(exp uint64) (Decimal, error) {
	result := One()
	base := d
	var err error
	for exp > 0 {
		if exp&1 == 1 {
			if result, err = result.Mul(base); err != nil {
				return Decimal{}, err
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, err = base.Mul(base); err != nil {
				return Decimal{}, err
			}
		}
	}
	return result, nil
}

// RoundU64 returns the value rounded to the nearest whole unit, halves
// away from zero. Fails if the result does not fit in 64 bits.
func (d Decimal) RoundU64() (uint64, error) {
	return d.divWadU64(halfWad)
}

// CeilU64 returns the value rounded up to a whole unit. Fails if the
// result does not fit in 64 bits.
func (d Decimal) CeilU64() (uint64, error) {
	return d.divWadU64(wadMinus1)
}

// FloorU64 returns the value rounded down to a whole unit. Fails if the
// result does not fit in 64 bits.
func (d Decimal) FloorU64() (uint64, error) {
	return d.divWadU64(nil)
}

func (d Decimal) divWadU64(bias *uint256.Int) (uint64, error) {
	var n uint256.Int
	n.Set(&d.v)
	if bias != nil {
		// d < 2^192 and bias < 2^60, the sum cannot overflow 256 bits.
		n.Add(&n, bias)
	}
	n.Div(&n, wad)
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrMathOverflow, d)
	}
	return n.Uint64(), nil
}

// Cmp returns -1, 0, or 1 when d is less than, equal to, or greater
// than o.
func (d Decimal) Cmp(o Decimal) int {
	return d.v.Cmp(&o.v)
}

// Eq returns true if d equals o.
func (d Decimal) Eq(o Decimal) bool {
	return d.v.Eq(&o.v)
}

// IsZero returns true if d is 0.
func (d Decimal) IsZero() bool {
	return d.v.IsZero()
}

// String formats the value as a decimal number with the fractional part
// trimmed of trailing zeros.
func (d Decimal) String() string {
	var whole, frac uint256.Int
	whole.Div(&d.v, wad)
	frac.Mod(&d.v, wad)
	if frac.IsZero() {
		return whole.Dec()
	}
	fracStr := fmt.Sprintf("%018s", frac.Dec())
	return whole.Dec() + "." + strings.TrimRight(fracStr, "0")
}

func exceedsWidth(v *uint256.Int) bool {
	return v.BitLen() > MaxBits
}
