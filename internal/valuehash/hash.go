// Package valuehash computes the stable, signed 64-bit hash that an
// AttributeIndex uses to route an attribute value to its owning
// bucket. It canonicalizes a value to bytes and hashes them with
// xxHash, the fast non-cryptographic hash used throughout the wider
// indexing/embedded-database corpus this package was modeled on.
package valuehash

import (
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/davecgh/go-spew/spew"
)

// Missing is the sentinel attribute value used whenever an extractor
// finds no value on an object. It is equal only to itself and hashes
// to a fixed value, so it participates in bucketing like any other
// attribute value.
type Missing struct{}

// Canon returns v in the form every other package in this index
// should use it as a map key or with ==: identical to v, except a
// []byte is converted to the equivalent string. A bare []byte is a
// non-comparable dynamic type — used as a map key or compared with ==
// it panics per the Go spec — so every attribute value must pass
// through Canon before it reaches a DictBucket's value map or a
// HashBucket fallback's equality check. AttributeIndex does this once,
// at its value-handling boundary, rather than leaving every caller to
// remember it.
func Canon(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// missingTag is hashed in place of Missing{} so that the sentinel's
// hash is stable across processes without depending on fmt's
// formatting of an empty struct.
const missingTag = "\x00filtered:missing\x00"

// Of returns the signed 64-bit hash of v. Two values that are
// identical or compare equal hash identically. Integer kinds holding
// the same value hash equal regardless of their Go type; floats hash
// by their IEEE bit pattern, so float64(8) and int(8) hash
// differently. A shared hash does not by itself make two values
// match: bucket lookups compare values with ==, under which values of
// different dynamic types are never equal.
func Of(v any) int64 {
	var b []byte
	switch t := v.(type) {
	case Missing:
		b = []byte(missingTag)
	case nil:
		b = []byte(missingTag)
	case string:
		b = []byte(t)
	case []byte:
		b = t
	case bool:
		if t {
			b = []byte{1}
		} else {
			b = []byte{0}
		}
	case int:
		b = int64Bytes(int64(t))
	case int8:
		b = int64Bytes(int64(t))
	case int16:
		b = int64Bytes(int64(t))
	case int32:
		b = int64Bytes(int64(t))
	case int64:
		b = int64Bytes(t)
	case uint:
		b = int64Bytes(int64(t))
	case uint8:
		b = int64Bytes(int64(t))
	case uint16:
		b = int64Bytes(int64(t))
	case uint32:
		b = int64Bytes(int64(t))
	case uint64:
		b = int64Bytes(int64(t))
	case float32:
		b = int64Bytes(int64(math.Float32bits(t)))
	case float64:
		b = int64Bytes(int64(math.Float64bits(t)))
	default:
		// Anything else (structs, pointers used as sentinel values,
		// custom comparable types): fall back to a deep dump of its
		// fields via go-spew rather than fmt, since spew's output is
		// stable across unexported fields and pointer-cycle-safe. This
		// is only a collision risk across distinct types that dump
		// identically, which bucket routing already tolerates (GetIDs
		// re-checks true equality against the live object).
		b = []byte(spew.Sprintf("%+#v", t))
	}
	return int64(xxhash.Sum64(b))
}

func int64Bytes(v int64) []byte {
	u := uint64(v)
	return []byte{
		byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24),
		byte(u >> 32), byte(u >> 40), byte(u >> 48), byte(u >> 56),
	}
}
