package bucket

import "github.com/manimino/filtered/internal/idset"

// DictBucket holds every object whose attribute value hashes to a
// single ValHash, partitioned internally by true equality of the
// attribute value. It exists so that a value hash hit by thousands of
// colliding or identical values doesn't degrade into one giant
// HashBucket scan: within a DictBucket, lookup by value is a direct
// map hit.
type DictBucket struct {
	// ValHash is the one value hash every member of this bucket shares.
	ValHash int64

	values map[any]idset.Set
	size   int
}

// NewDictBucket returns an empty DictBucket for valHash.
func NewDictBucket(valHash int64) *DictBucket {
	return &DictBucket{
		ValHash: valHash,
		values:  make(map[any]idset.Set),
	}
}

// Add records that id has the given attribute value (which must hash
// to b.ValHash).
func (b *DictBucket) Add(value any, id int64) {
	ids, ok := b.values[value]
	if !ok {
		ids = idset.New()
		b.values[value] = ids
	}
	if !ids.Has(id) {
		ids.Insert(id)
		b.size++
	}
}

// Remove drops id (filed under value) from the bucket. It returns
// ErrNotPresent if id was never added under that value.
func (b *DictBucket) Remove(value any, id int64) error {
	ids, ok := b.values[value]
	if !ok || !ids.Has(id) {
		return ErrNotPresent
	}
	ids.Delete(id)
	b.size--
	if ids.Len() == 0 {
		delete(b.values, value)
	}
	return nil
}

// MatchingIDs returns a fresh copy of the ids whose attribute value
// equals value, or an empty set if there are none. It never returns
// the bucket's own internal set: callers (including query results
// returned all the way out through IndexSet.FindIDs) are free to
// mutate what they get back without corrupting the bucket.
func (b *DictBucket) MatchingIDs(value any) idset.Set {
	if ids, ok := b.values[value]; ok {
		return idset.New().Union(ids)
	}
	return idset.New()
}

// Size returns the number of object ids in the bucket.
func (b *DictBucket) Size() int { return b.size }

// AllIDs returns every object id in the bucket.
func (b *DictBucket) AllIDs() idset.Set {
	out := idset.New()
	for _, ids := range b.values {
		out = out.Union(ids)
	}
	return out
}
