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

// Package address holds the postal address shape shared by profiles and
// orders, and the single formatter used both for display and for matching
// a selected address back to its record.
package address

import "strings"

const separator = ", "

// Address is a structured postal address. Every field is optional for
// display; all of them are required to place an order.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Format joins the non-empty fields in street, city, state, zip order.
func Format(a Address) string {
	fields := make([]string, 0, 4)
	for _, f := range []string{a.Street, a.City, a.State, a.Zip} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return strings.Join(fields, separator)
}

// String implements fmt.Stringer.
func (a Address) String() string { return Format(a) }

// Complete reports whether every field carries a non-blank value.
func (a Address) Complete() bool {
	for _, f := range []string{a.Street, a.City, a.State, a.Zip} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// Resolve returns the first saved address whose formatted form equals key.
func Resolve(saved []Address, key string) (Address, bool) {
	if key == "" {
		return Address{}, false
	}
	for _, a := range saved {
		if Format(a) == key {
			return a, true
		}
	}
	return Address{}, false
}
