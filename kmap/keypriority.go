/*
Copyright 2021 The Knative Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package kmap resolves a value out of a record under one of several
// candidate key names, trying each in order. It backs Field's support
// for attribute aliases: a field that has been renamed over the life
// of a dataset (e.g. "planet" -> "Planet") can be registered under
// every name it has ever had, and KeyPriority finds whichever is
// present without the caller needing to know which.
package kmap

// KeyPriority is an ordered list of candidate keys, tried first to
// last. The first one is the canonical key: Resolve falls back to
// reporting it (with ok=false) when none of the keys are present, so
// callers always have a name to report even on a miss.
type KeyPriority []string

// Resolve looks up each key in m in order and returns the first hit.
// If none are present it returns the canonical (first) key, a zero
// value, and ok=false.
func (p KeyPriority) Resolve(m map[string]any) (key string, value any, ok bool) {
	for _, k := range p {
		if v, present := m[k]; present {
			return k, v, true
		}
	}
	if len(p) == 0 {
		return "", nil, false
	}
	return p[0], nil, false
}

// Canonical returns the first, preferred key.
func (p KeyPriority) Canonical() string {
	if len(p) == 0 {
		panic("kmap: KeyPriority must have at least one key")
	}
	return p[0]
}
