package bucket_test

import (
	"errors"
	"testing"

	"github.com/manimino/filtered/internal/bucket"
)

func TestHashBucketAddRemove(t *testing.T) {
	hb := bucket.NewHashBucket()
	hb.Add(10, 1)
	hb.Add(10, 2)
	hb.Add(20, 3)

	if hb.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", hb.Size())
	}
	if hb.NumDistinctHashes() != 2 {
		t.Fatalf("NumDistinctHashes() = %d, want 2", hb.NumDistinctHashes())
	}

	if err := hb.Remove(10, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if hb.Size() != 2 {
		t.Fatalf("Size() after remove = %d, want 2", hb.Size())
	}
	if hb.NumDistinctHashes() != 2 {
		t.Fatalf("NumDistinctHashes() after partial remove = %d, want 2 (hash 10 still held by id 2)", hb.NumDistinctHashes())
	}

	if err := hb.Remove(10, 2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if hb.NumDistinctHashes() != 1 {
		t.Fatalf("NumDistinctHashes() after hash 10 empties = %d, want 1", hb.NumDistinctHashes())
	}
}

func TestHashBucketRemoveNotPresent(t *testing.T) {
	hb := bucket.NewHashBucket()
	hb.Add(1, 1)
	if err := hb.Remove(1, 99); !errors.Is(err, bucket.ErrNotPresent) {
		t.Fatalf("Remove(missing id) = %v, want ErrNotPresent", err)
	}
}

func TestHashBucketSoleHash(t *testing.T) {
	hb := bucket.NewHashBucket()
	hb.Add(7, 1)
	hb.Add(7, 2)
	if got := hb.SoleHash(); got != 7 {
		t.Errorf("SoleHash() = %d, want 7", got)
	}
}

func TestHashBucketSplitPartitionsByPivot(t *testing.T) {
	hb := bucket.NewHashBucket()
	hashes := map[int64]int64{1: 100, 2: 200, 3: 300, 4: 400}
	for id, h := range hashes {
		hb.Add(h, id)
	}
	hashOf := func(id int64) int64 { return hashes[id] }

	newCounts, newIDs := hb.Split(hashOf)

	if newIDs.Len() == 0 || newIDs.Len() == 4 {
		t.Fatalf("Split produced a degenerate partition: %d of 4 ids moved", newIDs.Len())
	}
	if hb.Size()+newIDs.Len() != 4 {
		t.Fatalf("Split lost ids: %d remaining + %d moved != 4", hb.Size(), newIDs.Len())
	}

	var minMoved, maxKept int64 = 1 << 62, -(1 << 62)
	for id := range newIDs {
		if hashes[id] < minMoved {
			minMoved = hashes[id]
		}
	}
	for id := range hb.AllIDs() {
		if hashes[id] > maxKept {
			maxKept = hashes[id]
		}
	}
	if maxKept >= minMoved {
		t.Errorf("found a kept hash (%d) >= a moved hash (%d); split must partition by a single pivot", maxKept, minMoved)
	}

	total := 0
	for _, c := range newCounts {
		total += c
	}
	if total != newIDs.Len() {
		t.Errorf("sum of newCounts = %d, want %d (newIDs.Len())", total, newIDs.Len())
	}
}
