// Package attrindex implements the per-attribute index: a dynamically
// rebalancing, hash-partitioned store of buckets keyed by a lower
// hash bound, ordered so that routing a value to its owning bucket is
// an O(log n) floor lookup.
package attrindex

import (
	"fmt"
	"math"

	"github.com/google/btree"

	"github.com/manimino/filtered/internal/bucket"
	"github.com/manimino/filtered/internal/idset"
	"github.com/manimino/filtered/internal/valuehash"
)

// HashMin is the sentinel leftmost bucket key: the minimum signed
// 64-bit integer. The ordered bucket map always contains an entry at
// this key.
const HashMin = math.MinInt64

const btreeDegree = 32

// item is the btree.Item stored in the ordered map: a lower hash
// bound and the bucket it owns.
type item struct {
	lo int64
	b  bucket.Bucket
}

func (a *item) Less(than btree.Item) bool {
	return a.lo < than.(*item).lo
}

// ValueOf resolves an object id to its current attribute value. It is
// supplied by the owning IndexSet, which alone knows how to look an
// id up in the shared object table and apply the attribute's
// extractor.
type ValueOf func(id int64) (value any, ok bool)

// AttributeIndex is the per-attribute bucket store described in the
// package doc.
type AttributeIndex struct {
	tree          *btree.BTree
	valueOf       ValueOf
	sizeThreshold int
	onRebalance   func(format string, args ...any)
}

// New returns an AttributeIndex with a single empty HashBucket at
// HashMin. valueOf resolves object ids to attribute values during
// bucket conversions/splits; sizeThreshold is the HashBucket size
// above which rebalancing triggers.
func New(valueOf ValueOf, sizeThreshold int) *AttributeIndex {
	tr := btree.New(btreeDegree)
	tr.ReplaceOrInsert(&item{lo: HashMin, b: bucket.NewHashBucket()})
	return &AttributeIndex{
		tree:          tr,
		valueOf:       valueOf,
		sizeThreshold: sizeThreshold,
		onRebalance:   func(string, ...any) {},
	}
}

// OnRebalance installs a callback invoked (for debug logging) whenever
// a bucket splits or converts. It is optional.
func (ai *AttributeIndex) OnRebalance(f func(format string, args ...any)) {
	if f != nil {
		ai.onRebalance = f
	}
}

// floor returns the item owning hash h: the greatest key <= h. HashMin
// is always present, so this never fails.
func (ai *AttributeIndex) floor(h int64) *item {
	var found *item
	ai.tree.DescendLessOrEqual(&item{lo: h}, func(i btree.Item) bool {
		found = i.(*item)
		return false
	})
	if found == nil {
		panic("attrindex: internal invariant violation: no floor bucket found (HashMin missing)")
	}
	return found
}

// Add extracts no value itself — callers already know the value being
// indexed — it routes value to its owning bucket, inserts id, and
// rebalances if that push the bucket over threshold. value is
// canonicalized first (see valuehash.Canon) so a []byte attribute
// value never reaches a bucket's map key or == comparison as a raw,
// non-comparable slice.
func (ai *AttributeIndex) Add(id int64, value any) {
	value = valuehash.Canon(value)
	h := valuehash.Of(value)
	it := ai.floor(h)

	switch b := it.b.(type) {
	case *bucket.DictBucket:
		if h == b.ValHash {
			b.Add(value, id)
			return
		}
		// This DictBucket owns h exactly; everything else in its range
		// needs a HashBucket of its own, anchored just past the
		// DictBucket's key so the DictBucket keeps exclusive ownership
		// of its one hash.
		newKey := it.lo + 1
		nb := ai.bucketAt(newKey)
		if nb == nil {
			nb = bucket.NewHashBucket()
			ai.tree.ReplaceOrInsert(&item{lo: newKey, b: nb})
		}
		hb := nb.(*bucket.HashBucket)
		hb.Add(h, id)
		ai.maybeRebalance(newKey, hb)
	case *bucket.HashBucket:
		b.Add(h, id)
		ai.maybeRebalance(it.lo, b)
	default:
		panic(fmt.Sprintf("attrindex: internal invariant violation: unknown bucket type %T", b))
	}
}

// bucketAt returns the bucket installed at exactly key lo, or nil.
func (ai *AttributeIndex) bucketAt(lo int64) bucket.Bucket {
	if found, ok := ai.tree.Get(&item{lo: lo}).(*item); ok {
		return found.b
	}
	return nil
}

func (ai *AttributeIndex) maybeRebalance(lo int64, hb *bucket.HashBucket) {
	if hb.Size() <= ai.sizeThreshold {
		return
	}
	if hb.NumDistinctHashes() == 1 {
		valHash := hb.SoleHash()
		ai.onRebalance("converting HashBucket at %d (size %d) to DictBucket keyed %d", lo, hb.Size(), valHash)
		db := bucket.NewDictBucket(valHash)
		for id := range hb.AllIDs() {
			v, ok := ai.valueOf(id)
			if !ok {
				panic("attrindex: internal invariant violation: object vanished from table during conversion")
			}
			db.Add(valuehash.Canon(v), id)
		}
		// The DictBucket must be keyed at valHash regardless of lo:
		// floor(h) only finds this bucket again for queries/removals of
		// the dominant value if the tree key equals the hash it owns.
		// Keying it at HashMin instead (while ValHash records the real
		// hash) breaks the moment any other value creates a HashBucket
		// at HashMin+1 or above but below valHash — floor(valHash) would
		// then resolve to that other bucket, not this DictBucket, making
		// the dominant value unqueryable and unremovable.
		//
		// For a non-leftmost bucket, valHash >= lo always holds (every
		// member's hash falls inside [lo, nextKey)), so re-keying to
		// valHash never opens a gap. For the leftmost bucket, valHash is
		// (almost certainly) not HashMin, so re-keying away from HashMin
		// would leave nothing covering hashes below valHash; a fresh
		// empty HashBucket is installed at HashMin to keep that range
		// covered and preserve the leftmost-bucket invariant.
		ai.tree.Delete(&item{lo: lo})
		ai.tree.ReplaceOrInsert(&item{lo: valHash, b: db})
		if lo == HashMin && valHash != HashMin {
			ai.tree.ReplaceOrInsert(&item{lo: HashMin, b: bucket.NewHashBucket()})
		}
		return
	}

	ai.onRebalance("splitting HashBucket at %d (size %d, %d distinct hashes)", lo, hb.Size(), hb.NumDistinctHashes())
	hashOf := func(id int64) int64 {
		v, ok := ai.valueOf(id)
		if !ok {
			panic("attrindex: internal invariant violation: object vanished from table during split")
		}
		return valuehash.Of(v)
	}
	newCounts, newIDs := hb.Split(hashOf)
	if len(newCounts) == 0 {
		// Every id shared one hash after all (can happen if Split was
		// raced by concurrent single-writer mutation between the
		// threshold check and here, which the single-writer model
		// forbids) — nothing to install.
		return
	}
	newBucket := bucket.NewHashBucket()
	minHash := int64(math.MaxInt64)
	for h := range newCounts {
		if h < minHash {
			minHash = h
		}
	}
	for id := range newIDs {
		v, ok := ai.valueOf(id)
		if !ok {
			panic("attrindex: internal invariant violation: object vanished from table during split")
		}
		newBucket.Add(valuehash.Of(v), id)
	}
	ai.tree.ReplaceOrInsert(&item{lo: minHash, b: newBucket})
}

// Remove extracts no value itself; it routes value to its owning
// bucket and removes id from it. If the bucket becomes empty and is
// not the leftmost (HashMin) bucket, it is destroyed. The leftmost
// bucket is never destroyed, but if it is a DictBucket that has just
// emptied out, it is demoted back to an empty HashBucket (see
// SPEC_FULL.md's decision on the HashMin DictBucket open question).
func (ai *AttributeIndex) Remove(id int64, value any) error {
	value = valuehash.Canon(value)
	h := valuehash.Of(value)
	it := ai.floor(h)

	switch b := it.b.(type) {
	case *bucket.DictBucket:
		if err := b.Remove(value, id); err != nil {
			return err
		}
	case *bucket.HashBucket:
		if err := b.Remove(h, id); err != nil {
			return err
		}
	default:
		panic(fmt.Sprintf("attrindex: internal invariant violation: unknown bucket type %T", b))
	}

	if it.b.Size() != 0 {
		return nil
	}
	if it.lo == HashMin {
		if _, isDict := it.b.(*bucket.DictBucket); isDict {
			ai.tree.ReplaceOrInsert(&item{lo: HashMin, b: bucket.NewHashBucket()})
		}
		return nil
	}
	ai.tree.Delete(&item{lo: it.lo})
	return nil
}

// GetIDs returns the ids of every object whose attribute value equals
// value. For a DictBucket whose ValHash matches hash(value), lookup is
// a direct map hit. Otherwise (a HashBucket, or a DictBucket keyed to
// a different hash — which can only mean value hashes to the same
// floor range but isn't the value the DictBucket owns, so it has no
// matches) ids are filtered by re-checking the live object's value.
func (ai *AttributeIndex) GetIDs(value any) idset.Set {
	value = valuehash.Canon(value)
	h := valuehash.Of(value)
	it := ai.floor(h)

	switch b := it.b.(type) {
	case *bucket.DictBucket:
		if h == b.ValHash {
			return b.MatchingIDs(value)
		}
		return idset.New()
	case *bucket.HashBucket:
		out := idset.New()
		for id := range b.AllIDs() {
			v, ok := ai.valueOf(id)
			if !ok {
				continue
			}
			if valuehash.Canon(v) == value {
				out.Insert(id)
			}
		}
		return out
	default:
		panic(fmt.Sprintf("attrindex: internal invariant violation: unknown bucket type %T", b))
	}
}

// BucketReport describes one bucket for diagnostics (SPEC_FULL.md
// §4.2's bucket introspection feature).
type BucketReport struct {
	Lo       int64
	Kind     string
	Size     int
	DistinctValues int
}

// Report returns one BucketReport per bucket, ordered by key.
func (ai *AttributeIndex) Report() []BucketReport {
	var out []BucketReport
	ai.tree.Ascend(func(i btree.Item) bool {
		it := i.(*item)
		rep := BucketReport{Lo: it.lo, Size: it.b.Size()}
		switch b := it.b.(type) {
		case *bucket.HashBucket:
			rep.Kind = "HashBucket"
			rep.DistinctValues = b.NumDistinctHashes()
		case *bucket.DictBucket:
			rep.Kind = "DictBucket"
			rep.DistinctValues = -1
		}
		out = append(out, rep)
		return true
	})
	return out
}

// BucketCount returns the number of buckets currently installed.
func (ai *AttributeIndex) BucketCount() int { return ai.tree.Len() }
