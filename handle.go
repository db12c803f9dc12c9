package filtered

import "github.com/google/uuid"

// Handle is an opaque external token identifying an object for as
// long as it stays in the set, independent of the internal monotonic
// id that backs bucket routing. Removing the object, directly or via
// RemoveByHandle, retires its Handle; re-adding the object does not
// revive it.
//
// Handle plays no role in bucket routing or queries; it only answers
// "which object is this, across time" for callers that would
// otherwise have to keep their own side table.
type Handle uuid.UUID

// AddWithHandle adds obj like Add, additionally minting and returning
// a Handle for it.
func (is *IndexSet) AddWithHandle(obj any) (Handle, error) {
	if err := is.Add(obj); err != nil {
		return Handle{}, err
	}
	ptr, _ := identity(obj) // Add already validated this succeeds
	id := is.reverse[ptr]
	h := Handle(uuid.New())
	is.handles[h] = id
	is.handleRev[id] = h
	return h, nil
}

// ObjectForHandle returns the object currently registered under h, if
// any.
func (is *IndexSet) ObjectForHandle(h Handle) (any, bool) {
	id, ok := is.handles[h]
	if !ok {
		return nil, false
	}
	obj, ok := is.objects[id]
	return obj, ok
}

// RemoveByHandle removes the object registered under h. It returns
// ErrMissingObject if h is not (or is no longer) registered.
func (is *IndexSet) RemoveByHandle(h Handle) error {
	id, ok := is.handles[h]
	if !ok {
		return ErrMissingObject
	}
	obj, ok := is.objects[id]
	if !ok {
		return ErrMissingObject
	}
	return is.Remove(obj)
}
