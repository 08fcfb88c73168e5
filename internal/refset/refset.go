// Package refset holds the working set of primary keys harvested from
// the reference file. The set is built during the reference pass,
// frozen, and then shared read-only by every dependent-file worker.
//
// Membership is exact-string: the harvested key text must equal the
// looked-up key text, the same comparison the database applies to the
// stored foreign key columns. The offender ids in the published data
// are short digit strings, so keys whose text is the canonical decimal
// form of a uint32 go into a roaring bitmap; anything else, including
// zero-padded digits, falls back to a plain string set.
package refset

import (
	"strconv"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
)

// Set is a grow-then-freeze key set.
type Set struct {
	numeric *roaring.Bitmap
	other   map[string]struct{}
	frozen  atomic.Bool
}

// New returns an empty, unfrozen set.
func New() *Set {
	return &Set{
		numeric: roaring.New(),
		other:   make(map[string]struct{}),
	}
}

// numericKey admits only keys whose text round-trips through uint32
// formatting unchanged. A zero-padded key like "0012345" must not
// share a bitmap slot with "12345": the two are distinct strings to
// the database.
func numericKey(key string) (uint32, bool) {
	if key == "" || len(key) > 10 {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, false
	}
	if strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return uint32(n), true
}

// Add inserts a key. Panics if the set is frozen: the two-phase
// schedule guarantees all writes happen before the barrier, and a
// write after it is a scheduling bug, not a recoverable condition.
func (s *Set) Add(key string) {
	if s.frozen.Load() {
		panic("refset: Add after Freeze")
	}
	if n, ok := numericKey(key); ok {
		s.numeric.Add(n)
		return
	}
	s.other[key] = struct{}{}
}

// Freeze makes the set read-only. Idempotent.
func (s *Set) Freeze() {
	s.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (s *Set) Frozen() bool { return s.frozen.Load() }

// Contains reports membership. Safe for concurrent use once frozen.
func (s *Set) Contains(key string) bool {
	if n, ok := numericKey(key); ok {
		return s.numeric.Contains(n)
	}
	_, ok := s.other[key]
	return ok
}

// Len returns the number of distinct keys.
func (s *Set) Len() int {
	return int(s.numeric.GetCardinality()) + len(s.other)
}
