// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists reserve accounts.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/lending/math/fixed"
	"github.com/luxfi/lending/oracle"
	"github.com/luxfi/lending/reserve"
	"github.com/luxfi/lending/utils/wrappers"
)

const (
	recordVersion = 0

	// decimalLen is the persisted size of a fixed.Decimal: the full
	// 192-bit raw value, little-endian.
	decimalLen = 24
)

var (
	ErrReserveNotFound = errors.New("reserve not found")

	errBadRecordVersion = errors.New("unsupported reserve record version")

	reservePrefix = []byte("reserve:")
)

// Store persists reserves in a key-value database. It is safe for
// concurrent use by the API layer; the core itself never shares state.
type Store struct {
	mu sync.RWMutex
	db database.Database
}

// New returns a store backed by [db].
func New(db database.Database) *Store {
	return &Store{db: db}
}

// PutReserve writes [r].
func (s *Store) PutReserve(r *reserve.Reserve) error {
	data, err := encodeReserve(r)
	if err != nil {
		return fmt.Errorf("couldn't encode reserve %s: %w", r.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(reserveKey(r.ID), data)
}

// GetReserve reads the reserve with [id].
func (s *Store) GetReserve(id ids.ID) (*reserve.Reserve, error) {
	s.mu.RLock()
	data, err := s.db.Get(reserveKey(id))
	s.mu.RUnlock()
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReserveNotFound, id)
		}
		return nil, err
	}

	r, err := decodeReserve(id, data)
	if err != nil {
		return nil, fmt.Errorf("couldn't decode reserve %s: %w", id, err)
	}
	return r, nil
}

// HasReserve reports whether the reserve with [id] exists.
func (s *Store) HasReserve(id ids.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(reserveKey(id))
}

// DeleteReserve removes the reserve with [id].
func (s *Store) DeleteReserve(id ids.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete(reserveKey(id))
}

func reserveKey(id ids.ID) []byte {
	return append(reservePrefix, id[:]...)
}

// Reserve record v0, little-endian:
//
//	version     u8
//	oracle kind u8
//	last update 9 bytes (the LastUpdate account contract, verbatim)
//	rate model  4 x u8 (offset, optimal, max, kink)
//	fee rate    u64 scaled
//	borrow index, borrowed amount: 24-byte scaled values
//	available liquidity u64
//	price       24-byte scaled value
func encodeReserve(r *reserve.Reserve) ([]byte, error) {
	feeScaled, err := r.FeeRate.Scaled()
	if err != nil {
		return nil, err
	}

	p := wrappers.Packer{Bytes: make([]byte, 0, 2+reserve.LastUpdateLen+4+8+3*decimalLen+8)}
	p.PackByte(recordVersion)
	p.PackByte(byte(r.OracleKind))
	r.LastUpdate.Pack(&p)
	p.PackByte(r.Model.OffsetPct)
	p.PackByte(r.Model.OptimalPct)
	p.PackByte(r.Model.MaxPct)
	p.PackByte(r.Model.KinkUtilizationPct)
	p.PackLong(feeScaled)
	packDecimal(&p, r.CumulativeBorrowIndex)
	packDecimal(&p, r.BorrowedAmount)
	p.PackLong(r.AvailableLiquidity)
	packDecimal(&p, r.Price)
	return p.Bytes, p.Err
}

func decodeReserve(id ids.ID, data []byte) (*reserve.Reserve, error) {
	p := wrappers.Packer{Bytes: data}
	if version := p.UnpackByte(); !p.Errored() && version != recordVersion {
		return nil, fmt.Errorf("%w: %d", errBadRecordVersion, version)
	}
	kind, err := oracle.ParseKind(p.UnpackByte())
	if err != nil && !p.Errored() {
		return nil, err
	}

	r := &reserve.Reserve{ID: id, OracleKind: kind}
	r.LastUpdate.Unpack(&p)
	r.Model.OffsetPct = p.UnpackByte()
	r.Model.OptimalPct = p.UnpackByte()
	r.Model.MaxPct = p.UnpackByte()
	r.Model.KinkUtilizationPct = p.UnpackByte()
	r.FeeRate = fixed.RateFromScaled(p.UnpackLong())
	r.CumulativeBorrowIndex = unpackDecimal(&p)
	r.BorrowedAmount = unpackDecimal(&p)
	r.AvailableLiquidity = p.UnpackLong()
	r.Price = unpackDecimal(&p)
	return r, p.Err
}

func packDecimal(p *wrappers.Packer, d fixed.Decimal) {
	be := d.ScaledBig().Bytes32()
	le := make([]byte, decimalLen)
	for i := range le {
		le[i] = be[31-i]
	}
	p.PackFixedBytes(le)
}

func unpackDecimal(p *wrappers.Packer) fixed.Decimal {
	le := p.UnpackFixedBytes(decimalLen)
	if p.Errored() {
		return fixed.Decimal{}
	}
	var be [32]byte
	for i, b := range le {
		be[31-i] = b
	}
	// 24 little-endian bytes cannot exceed the 192-bit width.
	d, _ := fixed.FromScaledBig(new(uint256.Int).SetBytes(be[:]))
	return d
}
