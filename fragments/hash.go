// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fragments

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Hash is a 32-byte content hash of a fragment's essential contents. Two
// fragments with the same Hash are the same code, however many times each
// was independently parsed.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// builder accumulates tagged fields into a content hash: a type tag, then
// one tag+value pair per field, with any child fragment folded in by its
// own Hash bytes rather than its source text. This is what makes the
// resulting hash depend only on semantic contents: re-typing identical
// source yields the identical hash, but changing a single literal, or the
// shape of a nested function, changes every hash on the path up to the
// root.
type builder struct {
	h hash.Hash
}

func newBuilder(typeTag string) *builder {
	b := &builder{h: sha256.New()}
	b.tag(typeTag)
	return b
}

// tag writes a length-prefixed string, so that e.g. the tags "ab"+"c" and
// "a"+"bc" never collide in the accumulated byte stream.
func (b *builder) tag(s string) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(s)))
	b.h.Write(length[:])
	b.h.Write([]byte(s))
}

// field folds one tagged field into the hash. val is itself tag-prefixed
// bytes from a nested builder.Sum, a raw value encoding, or another
// fragment's Hash — the caller decides, but every call site uses a field
// tag unique within its type so that reordered fields never alias.
func (b *builder) field(tag string, val []byte) {
	b.tag(tag)
	b.h.Write(val)
}

// variant marks which case of an enum-shaped type this is, the same way
// field does for a struct field, keeping different variants of a type
// from ever hashing to the same bytes as each other's fields would.
func (b *builder) variant(tag string) { b.tag("$variant:" + tag) }

func (b *builder) sum() Hash {
	var out Hash
	copy(out[:], b.h.Sum(nil))
	return out
}
