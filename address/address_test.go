// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package address

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   Address
		want string
	}{
		{"all fields", Address{"12 Beach Rd", "Kochi", "Kerala", "682001"}, "12 Beach Rd, Kochi, Kerala, 682001"},
		{"empty city dropped", Address{Street: "A", State: "B", Zip: "C"}, "A, B, C"},
		{"only zip", Address{Zip: "682001"}, "682001"},
		{"empty", Address{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.in); got != tt.want {
				t.Errorf("Format(%+v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDeterministic(t *testing.T) {
	a := Address{Street: "A", City: "", State: "B", Zip: "C"}
	first := Format(a)
	for i := 0; i < 10; i++ {
		if got := Format(a); got != first {
			t.Fatalf("call %d = %q, want %q", i, got, first)
		}
	}
	if a.String() != first {
		t.Errorf("String() = %q, want %q", a.String(), first)
	}
}

func TestComplete(t *testing.T) {
	if !(Address{"a", "b", "c", "d"}).Complete() {
		t.Error("expected complete address")
	}
	for _, a := range []Address{
		{"", "b", "c", "d"},
		{"a", " ", "c", "d"},
		{"a", "b", "", "d"},
		{"a", "b", "c", ""},
	} {
		if a.Complete() {
			t.Errorf("%+v reported complete", a)
		}
	}
}

func TestResolve(t *testing.T) {
	saved := []Address{
		{Street: "1 MG Rd", City: "Kochi", State: "Kerala", Zip: "682001"},
		{Street: "9 Park St", City: "Kolkata", State: "WB", Zip: "700016"},
	}
	got, ok := Resolve(saved, "9 Park St, Kolkata, WB, 700016")
	if !ok || got != saved[1] {
		t.Fatalf("Resolve = %+v, %v; want %+v", got, ok, saved[1])
	}
	if _, ok := Resolve(saved, "nowhere"); ok {
		t.Error("expected no match")
	}
	if _, ok := Resolve(saved, ""); ok {
		t.Error("empty key must not match")
	}
}
