package attrindex_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/manimino/filtered/internal/attrindex"
)

// fixture wraps an AttributeIndex with the tiny in-memory object table
// it needs a ValueOf callback to read from during rebalancing.
type fixture struct {
	ai     *attrindex.AttributeIndex
	values map[int64]any
	nextID int64
}

func newFixture(threshold int) *fixture {
	f := &fixture{values: make(map[int64]any)}
	f.ai = attrindex.New(func(id int64) (any, bool) {
		v, ok := f.values[id]
		return v, ok
	}, threshold)
	return f
}

func (f *fixture) add(value any) int64 {
	id := f.nextID
	f.nextID++
	f.values[id] = value
	f.ai.Add(id, value)
	return id
}

func TestNewHasLeftmostHashMinBucket(t *testing.T) {
	f := newFixture(1024)
	reports := f.ai.Report()
	if len(reports) != 1 {
		t.Fatalf("new AttributeIndex has %d buckets, want 1", len(reports))
	}
	if reports[0].Lo != attrindex.HashMin {
		t.Errorf("sole bucket key = %d, want HashMin (%d)", reports[0].Lo, int64(attrindex.HashMin))
	}
}

func TestGetIDsBasicEquality(t *testing.T) {
	f := newFixture(1024)
	f.add("mars")
	id2 := f.add("earth")
	f.add("mars")

	got := f.ai.GetIDs("earth")
	if got.Len() != 1 || !got.Has(id2) {
		t.Errorf("GetIDs(earth) = %v, want {%d}", got, id2)
	}

	got = f.ai.GetIDs("mars")
	if got.Len() != 2 {
		t.Errorf("GetIDs(mars) = %v, want 2 ids", got)
	}
}

func TestSplitOnManyDistinctValues(t *testing.T) {
	f := newFixture(8)
	for i := 0; i < 200; i++ {
		f.add(fmt.Sprintf("planet-%d", i))
	}
	if f.ai.BucketCount() < 2 {
		t.Fatalf("BucketCount() = %d after exceeding threshold with distinct values, want >= 2", f.ai.BucketCount())
	}
	// Every value must still resolve correctly after splitting.
	for i := 0; i < 200; i++ {
		v := fmt.Sprintf("planet-%d", i)
		ids := f.ai.GetIDs(v)
		if ids.Len() != 1 {
			t.Errorf("GetIDs(%q) = %v, want exactly 1 id", v, ids)
		}
	}
}

func TestConvertsToDictBucketOnSharedValue(t *testing.T) {
	f := newFixture(8)
	const n = 50
	for i := 0; i < n; i++ {
		f.add("dup")
	}
	found := false
	for _, r := range f.ai.Report() {
		if r.Kind == "DictBucket" {
			found = true
			if r.Size != n {
				t.Errorf("DictBucket size = %d, want %d", r.Size, n)
			}
		}
	}
	if !found {
		t.Fatalf("expected a DictBucket after %d objects shared one value over threshold 8; report: %+v", n, f.ai.Report())
	}
	if got := f.ai.GetIDs("dup"); got.Len() != n {
		t.Errorf("GetIDs(dup) = %v, want %d ids", got, n)
	}
}

func TestRemoveDestroysEmptyNonLeftmostBucket(t *testing.T) {
	f := newFixture(4)
	var ids []int64
	for i := 0; i < 50; i++ {
		ids = append(ids, f.add(fmt.Sprintf("v-%d", i)))
	}
	before := f.ai.BucketCount()
	if before < 2 {
		t.Fatalf("expected split to have happened, got %d buckets", before)
	}
	for i, id := range ids {
		v := fmt.Sprintf("v-%d", i)
		if err := f.ai.Remove(id, v); err != nil {
			t.Fatalf("Remove(%d, %q): %v", id, v, err)
		}
		delete(f.values, id)
	}
	// Every non-leftmost bucket should be gone; HashMin always remains.
	reports := f.ai.Report()
	if len(reports) != 1 || reports[0].Lo != attrindex.HashMin {
		t.Errorf("after removing everything, buckets = %+v, want just HashMin", reports)
	}
}

func TestConvertsLeftmostBucketKeysDictBucketByValHash(t *testing.T) {
	f := newFixture(4)
	for i := 0; i < 20; i++ {
		f.add("only")
	}
	// Converting the leftmost HashBucket must key the new DictBucket at
	// the dominant value's own hash, not at HashMin: floor() only finds
	// this bucket again (for queries and removals of "only") if the
	// tree key equals the hash it owns. A fresh, empty HashBucket takes
	// over HashMin so the leftmost-bucket invariant still holds and
	// everything below the dominant hash stays covered.
	reports := f.ai.Report()
	if len(reports) != 2 {
		t.Fatalf("buckets = %+v, want exactly two (an empty HashMin HashBucket + a DictBucket at valHash)", reports)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Lo < reports[j].Lo })
	if reports[0].Lo != attrindex.HashMin || reports[0].Kind != "HashBucket" || reports[0].Size != 0 {
		t.Errorf("leftmost bucket = %+v, want an empty HashBucket at HashMin", reports[0])
	}
	if reports[1].Kind != "DictBucket" || reports[1].Size != 20 {
		t.Errorf("second bucket = %+v, want a DictBucket holding 20 ids", reports[1])
	}
	if reports[1].Lo == attrindex.HashMin {
		t.Errorf("DictBucket key = HashMin, want the dominant value's own hash")
	}

	if got := f.ai.GetIDs("only"); got.Len() != 20 {
		t.Errorf("GetIDs(only) = %v, want 20 ids", got)
	}
	// A value that does NOT hash the same as "only" must still route
	// through floor() and come back empty, rather than panicking for
	// lack of a covering bucket.
	if got := f.ai.GetIDs("totally different value"); got.Len() != 0 {
		t.Errorf("GetIDs(unrelated value) = %v, want empty", got)
	}
}

func TestDominantValueStaysQueryableAfterDistinctValueAdded(t *testing.T) {
	f := newFixture(4)
	var ids []int64
	for i := 0; i < 20; i++ {
		ids = append(ids, f.add("only"))
	}
	// Before the routing fix, a HashBucket created for a later distinct
	// value could end up keyed below the dominant DictBucket's real
	// hash, so floor(hash("only")) would resolve to that HashBucket
	// instead, making "only" unqueryable and unremovable. Adding a
	// distinct value here must not disturb lookups of the dominant one.
	otherID := f.add("different")

	if got := f.ai.GetIDs("only"); got.Len() != 20 {
		t.Fatalf("GetIDs(only) after adding a distinct value = %v, want 20 ids", got)
	}
	if got := f.ai.GetIDs("different"); got.Len() != 1 || !got.Has(otherID) {
		t.Fatalf("GetIDs(different) = %v, want {%d}", got, otherID)
	}

	// Removing a dominant-value object must succeed rather than
	// surfacing ErrNotPresent from mis-routing to the wrong bucket.
	if err := f.ai.Remove(ids[0], "only"); err != nil {
		t.Fatalf("Remove(dominant value) = %v, want nil", err)
	}
	delete(f.values, ids[0])
	if got := f.ai.GetIDs("only"); got.Len() != 19 {
		t.Errorf("GetIDs(only) after removing one = %v, want 19 ids", got)
	}
}

func TestEmptiedDominantDictBucketLeavesSingleHashMinBucket(t *testing.T) {
	f := newFixture(4)
	var ids []int64
	for i := 0; i < 20; i++ {
		ids = append(ids, f.add("only"))
	}
	// The dominant-value DictBucket now lives at its own valHash key,
	// not HashMin, so emptying it destroys it through the ordinary
	// non-leftmost empty-bucket path; the leftmost key keeps the empty
	// HashBucket the conversion installed there. Either way the end
	// state is the same single, empty, HashMin HashBucket.
	for _, id := range ids {
		if err := f.ai.Remove(id, "only"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		delete(f.values, id)
	}
	reports := f.ai.Report()
	if len(reports) != 1 {
		t.Fatalf("buckets after emptying = %+v, want exactly one (leftmost) bucket", reports)
	}
	if reports[0].Lo != attrindex.HashMin || reports[0].Kind != "HashBucket" {
		t.Errorf("sole bucket after emptying = %+v, want an empty HashBucket at HashMin", reports[0])
	}
}
