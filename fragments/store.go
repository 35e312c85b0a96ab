// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fragments

import "fmt"

// Replacement records that New's fragment took Old's slot across a
// recompile.
type Replacement struct {
	Old Hash
	New Hash
}

// ErrReplacementCascadeOverflow is returned by Insert if substituting
// already-known replacements into a fragment's Address never settles.
// The bound scales with the number of fragments already stored, so a
// large program isn't more likely to trip it than a small one.
type ErrReplacementCascadeOverflow struct {
	Limit int
}

func (e ErrReplacementCascadeOverflow) Error() string {
	return fmt.Sprintf("fragments: replacement cascade exceeded %d iterations", e.Limit)
}

// Store is the content-addressed fragment table: every fragment ever
// inserted, indexed both by its own Hash and by the Address it currently
// occupies, plus a running log of which Hash replaced which.
type Store struct {
	byID       map[Hash]Fragment
	byAddress  map[Address]Hash
	supersedes map[Hash]Hash // new -> old: the fragment new bumped out of its slot
	log        []Replacement
}

// New returns an empty fragment store.
func New() *Store {
	return &Store{
		byID:       map[Hash]Fragment{},
		byAddress:  map[Address]Hash{},
		supersedes: map[Hash]Hash{},
	}
}

// Insert adds frag, detecting whether it replaces a fragment already
// occupying the same slot.
//
// The insertion itself is straightforward: index frag by its Hash and by
// its Address. Detecting replacements is not. A simple case —
//
//	b a -> c a
//
// (b replaced by c, with a unchanged) is caught directly: b and c share
// an Address, since both are followed by a. But a replacement further
// from the edge —
//
//	c b a -> e d a
//
// — changes c's Address too, since its next sibling is now d instead of
// b: c and e don't share an Address at all, on the surface. Because
// fragments are built and inserted right-to-left (see Build), the
// replacement b -> d is already known by the time e is considered: e's raw
// Address says "next: d", and d is on record as having bumped b out of its
// slot, so the lookup substitutes "next: b" in its place and retries. That's
// what the loop below does, substituting first Parent, then Next, by
// whatever each one's occupant most recently displaced, retrying the
// address lookup after each substitution.
func (s *Store) Insert(frag Fragment) (Hash, error) {
	id := frag.ID
	if existing, ok := s.byID[id]; ok {
		if existing.Kind != frag.Kind || existing.Name != frag.Name {
			panic(fmt.Sprintf("fragments: hash collision between %v and %v", existing, frag))
		}
	}
	s.byID[id] = frag

	addr := frag.Address
	limit := 128
	if n := len(s.byID) * 4; n > limit {
		limit = n
	}

	for i := 1; ; i++ {
		if i > limit {
			return id, ErrReplacementCascadeOverflow{Limit: limit}
		}

		if existing, ok := s.byAddress[addr]; ok && existing != id {
			s.supersedes[id] = existing
			s.log = append(s.log, Replacement{Old: existing, New: id})
			// One Insert records at most one replacement. Duplicate
			// content elsewhere in the program can make the matched
			// addr's own Parent or Next coincide with a supersedes
			// key, so falling through to substitute again would log a
			// second, spurious replacement.
			break
		}

		if addr.HasParent {
			if displaced, ok := s.supersedes[addr.Parent]; ok {
				addr.Parent = displaced
				continue
			}
		}
		if addr.HasNext {
			if displaced, ok := s.supersedes[addr.Next]; ok {
				addr.Next = displaced
				continue
			}
		}
		break
	}

	s.byAddress[addr] = id
	return id, nil
}

// InsertAll inserts every fragment in frags, in order, stopping at the
// first error. Build's own right-to-left ordering is what this method
// expects its argument to already be in.
func (s *Store) InsertAll(frags []Fragment) error {
	for _, f := range frags {
		if _, err := s.Insert(f); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up a fragment by its Hash.
func (s *Store) Get(id Hash) (Fragment, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// TakeReplacements drains and returns every replacement recorded since
// the last call.
func (s *Store) TakeReplacements() []Replacement {
	out := s.log
	s.log = nil
	return out
}
