// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value defines Crosscut's single runtime value representation: an
// opaque 32-bit word. Narrower integer views are conversions, not distinct
// storage.
package value

import "fmt"

// Value is a 32-bit opaque word. Equality is bit-equality.
type Value uint32

// FromS32 wraps a signed 32-bit integer.
func FromS32(v int32) Value { return Value(uint32(v)) }

// FromU32 wraps an unsigned 32-bit integer.
func FromU32(v uint32) Value { return Value(v) }

// FromS8 wraps a signed 8-bit integer, sign-extended into the word.
func FromS8(v int8) Value { return Value(uint32(int32(v))) }

// FromU8 wraps an unsigned 8-bit integer, zero-extended into the word.
func FromU8(v uint8) Value { return Value(uint32(v)) }

// AsS32 views the value as a signed 32-bit integer.
func (v Value) AsS32() int32 { return int32(uint32(v)) }

// AsU32 views the value as an unsigned 32-bit integer.
func (v Value) AsU32() uint32 { return uint32(v) }

// AsS8 views the low byte of the value as a signed 8-bit integer.
func (v Value) AsS8() int8 { return int8(uint32(v)) }

// AsU8 views the low byte of the value as an unsigned 8-bit integer.
func (v Value) AsU8() uint8 { return uint8(uint32(v)) }

// Bool reports the value's C-style truthiness: nonzero is true.
func (v Value) Bool() bool { return v != 0 }

// FromBool encodes a boolean the way LogicalAnd/LogicalNot/Eq/Greater*
// instructions do: 1 for true, 0 for false.
func FromBool(b bool) Value {
	if b {
		return Value(1)
	}
	return Value(0)
}

func (v Value) String() string {
	return fmt.Sprintf("0x%08x", uint32(v))
}
