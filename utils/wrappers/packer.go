// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides the little-endian packer used for oracle
// account buffers and persisted reserve records.
package wrappers

import (
	"encoding/binary"
	"errors"
)

const (
	// ByteLen is the number of bytes per byte
	ByteLen = 1
	// IntLen is the number of bytes per int
	IntLen = 4
	// LongLen is the number of bytes per long
	LongLen = 8
	// BoolLen is the number of bytes per bool
	BoolLen = 1
)

var (
	ErrInsufficientLength = errors.New("packer has insufficient length for input")
	errBadBool            = errors.New("unexpected value when unpacking bool")
)

// Errs collects errors during a series of operations.
type Errs struct {
	Err error
}

// Errored returns true if an error has been recorded.
func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

// Add records the first non-nil error.
func (errs *Errs) Add(errors ...error) {
	if errs.Err == nil {
		for _, err := range errors {
			if err != nil {
				errs.Err = err
				break
			}
		}
	}
}

// Packer packs and unpacks a byte array from/to standard values.
//
// All multi-byte values are little-endian: both the external price-feed
// layouts and the 9-byte LastUpdate account contract are little-endian
// formats.
type Packer struct {
	Errs

	// The current byte array
	Bytes []byte
	// The offset that is being read from/written to in the byte array
	Offset int
}

// PackByte appends a byte to the byte array
func (p *Packer) PackByte(val byte) {
	p.expand(ByteLen)
	if p.Errored() {
		return
	}

	p.Bytes[p.Offset] = val
	p.Offset++
}

// UnpackByte unpacks a byte from the byte array
func (p *Packer) UnpackByte() byte {
	p.checkSpace(ByteLen)
	if p.Errored() {
		return 0
	}

	val := p.Bytes[p.Offset]
	p.Offset += ByteLen
	return val
}

// PackInt appends an int to the byte array
func (p *Packer) PackInt(val uint32) {
	p.expand(IntLen)
	if p.Errored() {
		return
	}

	binary.LittleEndian.PutUint32(p.Bytes[p.Offset:], val)
	p.Offset += IntLen
}

// UnpackInt unpacks an int from the byte array
func (p *Packer) UnpackInt() uint32 {
	p.checkSpace(IntLen)
	if p.Errored() {
		return 0
	}

	val := binary.LittleEndian.Uint32(p.Bytes[p.Offset:])
	p.Offset += IntLen
	return val
}

// PackLong appends a long to the byte array
func (p *Packer) PackLong(val uint64) {
	p.expand(LongLen)
	if p.Errored() {
		return
	}

	binary.LittleEndian.PutUint64(p.Bytes[p.Offset:], val)
	p.Offset += LongLen
}

// UnpackLong unpacks a long from the byte array
func (p *Packer) UnpackLong() uint64 {
	p.checkSpace(LongLen)
	if p.Errored() {
		return 0
	}

	val := binary.LittleEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += LongLen
	return val
}

// UnpackInt32 unpacks a signed 32-bit integer from the byte array
func (p *Packer) UnpackInt32() int32 {
	return int32(p.UnpackInt())
}

// UnpackInt64 unpacks a signed 64-bit integer from the byte array
func (p *Packer) UnpackInt64() int64 {
	return int64(p.UnpackLong())
}

// PackBool packs a bool into the byte array
func (p *Packer) PackBool(b bool) {
	if b {
		p.PackByte(1)
	} else {
		p.PackByte(0)
	}
}

// UnpackBool unpacks a bool from the byte array
func (p *Packer) UnpackBool() bool {
	b := p.UnpackByte()
	switch b {
	case 0:
		return false
	case 1:
		return true
	default:
		p.Add(errBadBool)
		return false
	}
}

// PackFixedBytes appends a byte slice, with no length descriptor, to the
// byte array
func (p *Packer) PackFixedBytes(bytes []byte) {
	p.expand(len(bytes))
	if p.Errored() {
		return
	}

	copy(p.Bytes[p.Offset:], bytes)
	p.Offset += len(bytes)
}

// UnpackFixedBytes unpacks a byte slice of length [size], with no length
// descriptor, from the byte array
func (p *Packer) UnpackFixedBytes(size int) []byte {
	p.checkSpace(size)
	if p.Errored() {
		return nil
	}

	bytes := p.Bytes[p.Offset : p.Offset+size]
	p.Offset += size
	return bytes
}

// Skip advances the read offset past [size] bytes
func (p *Packer) Skip(size int) {
	p.checkSpace(size)
	if p.Errored() {
		return
	}
	p.Offset += size
}

func (p *Packer) expand(bytes int) {
	neededSize := bytes + p.Offset
	if neededSize <= len(p.Bytes) {
		return
	}
	if neededSize <= cap(p.Bytes) {
		p.Bytes = p.Bytes[:neededSize]
		return
	}
	p.Bytes = append(p.Bytes[:cap(p.Bytes)], make([]byte, neededSize-cap(p.Bytes))...)
}

func (p *Packer) checkSpace(bytes int) {
	if p.Offset+bytes > len(p.Bytes) {
		p.Add(ErrInsufficientLength)
	}
}
