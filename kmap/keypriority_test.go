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

package kmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyPriorityResolve(t *testing.T) {
	tests := []struct {
		name      string
		keys      KeyPriority
		in        map[string]any
		wantKey   string
		wantValue any
		wantOk    bool
	}{{
		name:      "first key present",
		keys:      KeyPriority{"planet", "Planet"},
		in:        map[string]any{"planet": "mars"},
		wantKey:   "planet",
		wantValue: "mars",
		wantOk:    true,
	}, {
		name:      "only fallback key present",
		keys:      KeyPriority{"planet", "Planet"},
		in:        map[string]any{"Planet": "earth"},
		wantKey:   "Planet",
		wantValue: "earth",
		wantOk:    true,
	}, {
		name:      "neither present",
		keys:      KeyPriority{"planet", "Planet"},
		in:        map[string]any{"moon": "europa"},
		wantKey:   "planet",
		wantValue: nil,
		wantOk:    false,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKey, gotValue, gotOk := tt.keys.Resolve(tt.in)
			if gotKey != tt.wantKey || gotOk != tt.wantOk {
				t.Fatalf("Resolve() = (%q, %v, %v), want (%q, %v, %v)", gotKey, gotValue, gotOk, tt.wantKey, tt.wantValue, tt.wantOk)
			}
			if diff := cmp.Diff(tt.wantValue, gotValue); diff != "" {
				t.Errorf("Resolve() value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeyPriorityCanonical(t *testing.T) {
	if got := (KeyPriority{"a", "b"}).Canonical(); got != "a" {
		t.Errorf("Canonical() = %q, want %q", got, "a")
	}
}
