// Package idset defines the object-id set container shared by every
// per-attribute index and the query engine that sits on top of them.
//
// Object ids are dense int64 values, so a generic k8s.io/apimachinery
// set gives us union/intersection/difference for free, including the
// smaller-set-walks-larger-set behavior Set.Intersection already
// implements — exactly the cardinality heuristic the query engine
// needs when AND-ing several attribute matches together.
package idset

import "k8s.io/apimachinery/pkg/util/sets"

// Set is the id-set container type used throughout the index.
type Set = sets.Set[int64]

// New returns a Set containing the given ids.
func New(ids ...int64) Set {
	return sets.New[int64](ids...)
}

// UnionAll returns the union of zero or more sets without mutating any
// of them. With zero inputs it returns an empty set.
func UnionAll(sets_ ...Set) Set {
	out := New()
	for _, s := range sets_ {
		// Union from the larger set's perspective keeps the common case
		// (one small set unioned into a big running total) cheap.
		if out.Len() > s.Len() {
			out = out.Union(s)
		} else {
			out = s.Union(out)
		}
	}
	return out
}
