// Package bucket implements the two leaf storage variants of a
// per-attribute index: HashBucket, which holds many distinct value
// hashes, and DictBucket, which holds exactly one hash value
// partitioned by true equality of the underlying attribute value.
//
// Buckets never see whole objects: callers pass in a value's hash (or
// the value itself, for DictBucket) and an object id, and get back
// object ids. Resolving an id back to an object, and comparing its
// live attribute value against a query value, is the AttributeIndex's
// job (see the attrindex package) — that is also where hash
// collisions between distinct values sharing a HashBucket slot get
// filtered out.
package bucket

import "github.com/manimino/filtered/internal/idset"

// Bucket is the common, read-mostly surface both variants implement.
// Mutation and conversion (Add/Remove/Split) are variant-specific and
// live on the concrete types; callers type-switch when they need them.
type Bucket interface {
	// Size returns the number of object ids held by the bucket.
	Size() int
	// AllIDs returns every object id in the bucket. Order is
	// unspecified and may change after any mutation.
	AllIDs() idset.Set
}

var (
	_ Bucket = (*HashBucket)(nil)
	_ Bucket = (*DictBucket)(nil)
)
