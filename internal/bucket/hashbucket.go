package bucket

import (
	"errors"
	"sort"

	"github.com/manimino/filtered/internal/idset"
)

// ErrNotPresent is returned by Remove when the given object id is not
// a member of the bucket.
var ErrNotPresent = errors.New("bucket: object id not present")

// HashBucket holds object ids keyed by the hash of their attribute
// value. Many distinct hashes can share one HashBucket; Σ of the
// per-hash multiplicities always equals len(ids).
type HashBucket struct {
	counts map[int64]int
	ids    idset.Set
}

// NewHashBucket returns an empty HashBucket.
func NewHashBucket() *HashBucket {
	return &HashBucket{
		counts: make(map[int64]int),
		ids:    idset.New(),
	}
}

// Add records that object id belongs to the given value hash.
func (hb *HashBucket) Add(valueHash, id int64) {
	hb.counts[valueHash]++
	hb.ids.Insert(id)
}

// Remove drops id (which was filed under valueHash) from the bucket.
// It returns ErrNotPresent if id was never added.
func (hb *HashBucket) Remove(valueHash, id int64) error {
	if !hb.ids.Has(id) {
		return ErrNotPresent
	}
	hb.ids.Delete(id)
	if n := hb.counts[valueHash]; n <= 1 {
		delete(hb.counts, valueHash)
	} else {
		hb.counts[valueHash] = n - 1
	}
	return nil
}

// Size returns the number of object ids in the bucket.
func (hb *HashBucket) Size() int { return hb.ids.Len() }

// AllIDs returns every object id in the bucket.
func (hb *HashBucket) AllIDs() idset.Set { return hb.ids }

// NumDistinctHashes reports how many distinct value hashes are
// present. The AttributeIndex uses this to decide whether an
// over-threshold bucket should convert to a DictBucket (exactly one
// distinct hash) or split (more than one).
func (hb *HashBucket) NumDistinctHashes() int { return len(hb.counts) }

// SoleHash returns the single value hash held by the bucket. It must
// only be called when NumDistinctHashes() == 1.
func (hb *HashBucket) SoleHash() int64 {
	for h := range hb.counts {
		return h
	}
	panic("bucket: SoleHash called on a bucket without exactly one distinct hash")
}

// Split repartitions the bucket in place: the lower half of the
// distinct value hashes it held stays, and the upper half — together
// with a map of {value hash -> multiplicity} for just that half — is
// returned for installation as a new HashBucket. hashOf re-derives the
// current hash of an object's attribute value; it is supplied by the
// caller (the AttributeIndex), which alone knows how to extract and
// hash an attribute value from an object id.
//
// There exists a pivot hash p such that every returned id hashes to
// >= p and every id left behind hashes to < p. Split is never called
// when every id shares one hash — the AttributeIndex converts to a
// DictBucket in that case instead.
func (hb *HashBucket) Split(hashOf func(id int64) int64) (newCounts map[int64]int, newIDs idset.Set) {
	distinct := make([]int64, 0, len(hb.counts))
	for h := range hb.counts {
		distinct = append(distinct, h)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })
	pivot := distinct[len(distinct)/2]

	newCounts = make(map[int64]int)
	newIDs = idset.New()
	keepIDs := idset.New()
	for id := range hb.ids {
		h := hashOf(id)
		if h >= pivot {
			newIDs.Insert(id)
			newCounts[h]++
		} else {
			keepIDs.Insert(id)
		}
	}

	keepCounts := make(map[int64]int, len(distinct)/2+1)
	for _, h := range distinct {
		if h < pivot {
			keepCounts[h] = hb.counts[h]
		}
	}
	hb.counts = keepCounts
	hb.ids = keepIDs
	return newCounts, newIDs
}
