// Package filtered is an in-memory, multi-attribute inverted index
// over application objects: register one or more Attributes, add
// objects, and run equality Find queries ("planet == mars AND size !=
// 4") that resolve in time proportional to the result size rather
// than a full scan.
package filtered

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/manimino/filtered/config"
	"github.com/manimino/filtered/internal/attrindex"
	"github.com/manimino/filtered/internal/idset"
	"github.com/manimino/filtered/internal/valuehash"
	"github.com/manimino/filtered/logging"
	"github.com/manimino/filtered/querycache"
)

// Match is a query constraint set: attribute name -> value, or a slice
// of values to match any of (a union). A nil or empty Match in Find
// imposes no constraint.
type Match map[string]any

// Option configures an IndexSet at construction.
type Option func(*options)

type options struct {
	ctx context.Context
	cfg config.Config
}

// WithContext installs ctx as the source of the IndexSet's logger, via
// logging.FromContext. Without it, IndexSet logs nowhere.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithConfig overrides the config loaded from the environment (see
// config.Load). Mainly useful for tests that want a tiny
// SizeThreshold to exercise rebalancing without millions of objects.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// IndexSet owns the shared object table and one AttributeIndex per
// registered Attribute. It offers no internal synchronization: per
// spec.md §5, a single logical owner mutates at a time and every
// operation runs to completion without yielding.
type IndexSet struct {
	objects   map[int64]any
	reverse   map[uintptr]int64
	handles   map[Handle]int64
	handleRev map[int64]Handle

	attrs      map[string]*attrindex.AttributeIndex
	extractors map[string]Extractor
	names      []string

	nextID int64
	cfg    config.Config
	cache  *querycache.Cache
	log    *zap.SugaredLogger
}

// New constructs an IndexSet over objects (which may be empty or nil),
// indexed on the given Attributes.
func New(objects []any, on []Attribute, opts ...Option) (*IndexSet, error) {
	o := options{ctx: context.Background(), cfg: config.Load()}
	for _, opt := range opts {
		opt(&o)
	}

	is := &IndexSet{
		objects:    make(map[int64]any),
		reverse:    make(map[uintptr]int64),
		handles:    make(map[Handle]int64),
		handleRev:  make(map[int64]Handle),
		attrs:      make(map[string]*attrindex.AttributeIndex),
		extractors: make(map[string]Extractor),
		cfg:        o.cfg,
		cache:      querycache.New(o.cfg.QueryCacheSize),
		log:        logging.FromContext(o.ctx),
	}
	for _, a := range on {
		is.registerAttribute(a)
	}
	for _, obj := range objects {
		if err := is.Add(obj); err != nil {
			return nil, err
		}
	}
	return is, nil
}

func (is *IndexSet) registerAttribute(a Attribute) {
	is.names = append(is.names, a.Name)
	is.extractors[a.Name] = a.Extract
	is.attrs[a.Name] = is.newAttributeIndex(a.Name)
}

func (is *IndexSet) newAttributeIndex(name string) *attrindex.AttributeIndex {
	ai := attrindex.New(is.valueOf(name), is.cfg.SizeThreshold)
	ai.OnRebalance(func(format string, args ...any) {
		is.log.Debugf("attribute %q: "+format, append([]any{name}, args...)...)
	})
	return ai
}

// valueOf returns the ValueOf callback an AttributeIndex uses, during
// a split or conversion, to re-derive an object id's current attribute
// value from the shared object table.
func (is *IndexSet) valueOf(name string) attrindex.ValueOf {
	return func(id int64) (any, bool) {
		obj, ok := is.objects[id]
		if !ok {
			return nil, false
		}
		return is.extractors[name](obj), true
	}
}

// identity returns a stable key for obj's lifetime in the index. Go
// has no address-of-value for plain structs passed by value (unlike
// the source implementation's id(obj)), so objects must be reference
// types — a pointer, or a map for the dict-style record shape — whose
// underlying data pointer serves the same role.
func identity(obj any) (uintptr, bool) {
	if obj == nil {
		return 0, false
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Slice:
		if v.IsNil() {
			return 0, false
		}
		return v.Pointer(), true
	default:
		return 0, false
	}
}

// Add inserts obj, extracting and indexing its value for every
// registered attribute. Adding the same object (by identity) twice is
// a no-op.
func (is *IndexSet) Add(obj any) error {
	ptr, ok := identity(obj)
	if !ok {
		return &Error{Code: CodeTypeViolation, Msg: "object must be a non-nil pointer or map to have a stable identity"}
	}
	if _, exists := is.reverse[ptr]; exists {
		return nil
	}

	id := is.nextID
	is.nextID++
	is.objects[id] = obj
	is.reverse[ptr] = id
	for name, ai := range is.attrs {
		ai.Add(id, is.extractors[name](obj))
	}
	is.invalidateAll()
	return nil
}

// AddMany adds every object in objs. It stops at, and returns, the
// first error (an object lacking stable identity); objects added
// before the failing one remain in the set.
func (is *IndexSet) AddMany(objs []any) error {
	for _, obj := range objs {
		if err := is.Add(obj); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes obj from the set and every attribute index. It
// returns ErrMissingObject if obj (by identity) is not present.
func (is *IndexSet) Remove(obj any) error {
	ptr, ok := identity(obj)
	if !ok {
		return ErrMissingObject
	}
	id, exists := is.reverse[ptr]
	if !exists {
		return ErrMissingObject
	}

	for name, ai := range is.attrs {
		v := is.extractors[name](obj)
		if err := ai.Remove(id, v); err != nil {
			is.log.Errorw("internal invariant violation removing object", "attribute", name, "id", id, "error", err)
			return fmt.Errorf("%w: %v", ErrInternalInvariant, err)
		}
	}
	delete(is.objects, id)
	delete(is.reverse, ptr)
	if h, ok := is.handleRev[id]; ok {
		delete(is.handles, h)
		delete(is.handleRev, id)
	}
	is.invalidateAll()
	return nil
}

// Update removes obj, applies newValues to its fields (by the same
// name-resolution rules Field uses: struct field by name, or map key),
// then re-adds it. obj must already belong to the set.
func (is *IndexSet) Update(obj any, newValues map[string]any) error {
	if !is.Contains(obj) {
		return ErrMissingObject
	}
	if err := is.Remove(obj); err != nil {
		return err
	}
	for field, v := range newValues {
		setField(obj, field, v)
	}
	return is.Add(obj)
}

func setField(obj any, field string, value any) {
	if m, ok := obj.(map[string]any); ok {
		m[field] = value
		return
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	f := v.FieldByNameFunc(func(fieldName string) bool { return strings.EqualFold(fieldName, field) })
	if f.IsValid() && f.CanSet() {
		f.Set(reflect.ValueOf(value))
	}
}

// Contains reports whether obj (by identity) is currently in the set.
func (is *IndexSet) Contains(obj any) bool {
	ptr, ok := identity(obj)
	if !ok {
		return false
	}
	_, exists := is.reverse[ptr]
	return exists
}

// Len returns the number of objects currently in the set.
func (is *IndexSet) Len() int { return len(is.objects) }

// All returns every live object. Order is unspecified.
func (is *IndexSet) All() []any {
	out := make([]any, 0, len(is.objects))
	for _, obj := range is.objects {
		out = append(out, obj)
	}
	return out
}

// Clear empties the set: every object is removed and every
// AttributeIndex is reset to its single HashMin bucket.
func (is *IndexSet) Clear() {
	is.objects = make(map[int64]any)
	is.reverse = make(map[uintptr]int64)
	is.handles = make(map[Handle]int64)
	is.handleRev = make(map[int64]Handle)
	is.nextID = 0
	for _, name := range is.names {
		is.attrs[name] = is.newAttributeIndex(name)
	}
	is.cache.Reset()
}

func (is *IndexSet) invalidateAll() {
	for _, name := range is.names {
		is.cache.Invalidate(name)
	}
}

// Find returns every object matching match (AND across attributes,
// OR across a value list) that is not matched by exclude.
func (is *IndexSet) Find(match, exclude Match) ([]any, error) {
	ids, err := is.FindIDs(match, exclude)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, ids.Len())
	for id := range ids {
		if obj, ok := is.objects[id]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

// FindIDs is Find, returning raw object ids instead of resolved
// objects.
func (is *IndexSet) FindIDs(match, exclude Match) (idset.Set, error) {
	if err := is.validateKeys(match); err != nil {
		return nil, err
	}
	if err := is.validateKeys(exclude); err != nil {
		return nil, err
	}

	var hits idset.Set
	if len(match) == 0 {
		hits = idset.New()
		for id := range is.objects {
			hits.Insert(id)
		}
	} else {
		first := true
		for attr, value := range match {
			fieldHits := is.matchAnyOf(attr, value)
			if first {
				hits = fieldHits
				first = false
			} else {
				// Cardinality heuristic: Set.Intersection already walks
				// whichever operand is smaller.
				hits = hits.Intersection(fieldHits)
			}
			if hits.Len() == 0 {
				return hits, nil
			}
		}
	}

	for attr, value := range exclude {
		if hits.Len() == 0 {
			break
		}
		hits = hits.Difference(is.matchAnyOf(attr, value))
	}
	return hits, nil
}

func (is *IndexSet) validateKeys(m Match) error {
	for attr := range m {
		if _, ok := is.attrs[attr]; !ok {
			return unknownAttributeErr(attr)
		}
	}
	return nil
}

// matchAnyOf resolves one (attr, value) constraint to an id-set: a
// union over value's elements if it is a list, else a single
// attribute lookup.
func (is *IndexSet) matchAnyOf(attr string, value any) idset.Set {
	list, isList := asList(value)
	if !isList {
		return is.getIDs(attr, value)
	}
	var out idset.Set
	for _, v := range list {
		vIDs := is.getIDs(attr, v)
		switch {
		case out == nil:
			out = vIDs
		case out.Len() > vIDs.Len():
			out = out.Union(vIDs)
		default:
			out = vIDs.Union(out)
		}
	}
	if out == nil {
		out = idset.New()
	}
	return out
}

func (is *IndexSet) getIDs(attr string, value any) idset.Set {
	// Canonicalize before the cache key is formed, not just before
	// AttributeIndex.GetIDs, so that []byte("mars") and "mars" share
	// one cache entry instead of missing against each other.
	value = valuehash.Canon(value)
	if ids, ok := is.cache.Get(attr, value); ok {
		return ids
	}
	ids := is.attrs[attr].GetIDs(value)
	is.cache.Put(attr, value, ids)
	return ids
}

// asList reports whether value should be treated as a list of values
// to union, per Match's "value or list of values" contract. []byte is
// excluded: it is an ordinary scalar attribute value, not a list.
func asList(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if _, ok := value.([]byte); ok {
		return nil, false
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, true
}

// Report returns per-bucket diagnostics for attr (see
// attrindex.AttributeIndex.Report), or nil if attr is not registered.
func (is *IndexSet) Report(attr string) []attrindex.BucketReport {
	ai, ok := is.attrs[attr]
	if !ok {
		return nil
	}
	return ai.Report()
}
