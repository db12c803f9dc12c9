package filtered

import (
	"reflect"
	"strings"

	"github.com/manimino/filtered/internal/valuehash"
	"github.com/manimino/filtered/kmap"
)

// Missing is the attribute value substituted whenever an Extractor
// finds no value on an object. It compares equal only to itself and
// hashes to a fixed value, so "find objects with no planet set" is
// just an ordinary equality query: Find(Match{"planet": Missing{}}, nil).
type Missing = valuehash.Missing

// Extractor computes an attribute value for an object. It must be
// deterministic and total over every object ever passed to it — for
// an object lacking the attribute it returns Missing{}, never an
// error (extraction errors are out of scope; see spec's attribute
// extractor contract).
type Extractor func(obj any) any

// Attribute is a registered, named dimension of the index: how to
// compute its value from an object. Name is also how callers refer to
// it in Match/Exclude queries.
//
// Extraction handles both object shapes the soak test in
// _examples/original_source/test/test_soak.py exercises (Thing
// instances and make_dict_thing dicts): a struct field via
// reflection, or a map[string]any key via kmap.KeyPriority.
type Attribute struct {
	Name    string
	Extract Extractor
}

// Field returns an Attribute that reads the named field off an
// object: a struct field (matched case-insensitively against the Go
// field name, so JSON-style lowercase names work without tags) or a
// map key, in that order. Missing{} is returned when neither applies.
//
// aliases registers additional map keys to try, in priority order,
// for the map[string]any object shape — useful when a field has been
// renamed across a dataset's lifetime and old and new records both
// need to land in the same attribute bucket. The Attribute's Name
// (and the key struct fields are matched against) is always name;
// aliases only affect map lookups.
func Field(name string, aliases ...string) Attribute {
	keys := kmap.KeyPriority(append([]string{name}, aliases...))
	return Attribute{Name: name, Extract: fieldExtractor(name, keys)}
}

// Func returns an Attribute whose value is computed by fn. name is
// its identifier for Match/Exclude and for registering it with an
// IndexSet; it plays the role the original Python implementation gave
// to using the function itself as a dict key, made explicit since Go
// funcs are not comparable and so cannot serve as map keys.
func Func(name string, fn Extractor) Attribute {
	return Attribute{Name: name, Extract: fn}
}

func fieldExtractor(name string, keys kmap.KeyPriority) Extractor {
	return func(obj any) any {
		if obj == nil {
			return Missing{}
		}
		if m, ok := obj.(map[string]any); ok {
			if _, v, ok := keys.Resolve(m); ok {
				return v
			}
			return Missing{}
		}

		v := reflect.ValueOf(obj)
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return Missing{}
			}
			v = v.Elem()
		}
		switch v.Kind() {
		case reflect.Struct:
			f := v.FieldByNameFunc(func(fieldName string) bool {
				return strings.EqualFold(fieldName, name)
			})
			if f.IsValid() && f.CanInterface() {
				return f.Interface()
			}
		case reflect.Map:
			mv := v.MapIndex(reflect.ValueOf(name))
			if mv.IsValid() {
				return mv.Interface()
			}
		}
		return Missing{}
	}
}
