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

package catalog

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/backend"
)

func prices(vs ...int64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

var testProducts = []backend.Product{
	{
		ID:          "fc",
		Name:        "Floor Cleaner",
		Description: "Lavender scented",
		Sizes:       []string{"500 ml", "5 L"},
		Prices:      prices(120, 900),
		Offers:      []string{"10% off"},
		Images:      [][]string{{"/FC_500_F.JPG", "/FC_500_B.JPG"}, {"/FC_5000_F.JPG"}},
	},
	{
		ID:          "dt",
		Name:        "Detergent",
		Description: "For washing machines",
		Sizes:       []string{"20 L"},
		Prices:      prices(6000),
	},
}

func TestVariants(t *testing.T) {
	vs := Variants(testProducts)
	if len(vs) != 3 {
		t.Fatalf("got %d variants, want 3", len(vs))
	}
	first := vs[0]
	if first.ID != "fc/0" || first.Name != "Floor Cleaner (500 ml)" || first.Offer != "10% off" || first.Image != "/FC_500_F.JPG" {
		t.Errorf("first variant = %+v", first)
	}
	if vs[1].ID != "fc/1" || vs[1].Offer != "" || !vs[1].Price.Equal(decimal.NewFromInt(900)) {
		t.Errorf("second variant = %+v", vs[1])
	}
	if vs[2].Image != "" || vs[2].SizeIndex != 0 || vs[2].ProductID != "dt" {
		t.Errorf("third variant = %+v", vs[2])
	}
}

func TestVariantsSkipsUnpricedSizes(t *testing.T) {
	vs := Variants([]backend.Product{{ID: "x", Name: "X", Sizes: []string{"a", "b"}, Prices: prices(1)}})
	if len(vs) != 1 {
		t.Errorf("got %d variants, want 1", len(vs))
	}
}

func TestFilter(t *testing.T) {
	vs := Variants(testProducts)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"default range", Filter{Range: DefaultRange}, []string{"fc/0", "fc/1", "dt/0"}},
		{"search is case insensitive", Filter{Search: "FLOOR", Range: DefaultRange}, []string{"fc/0", "fc/1"}},
		{"search matches description", Filter{Search: "washing", Range: DefaultRange}, []string{"dt/0"}},
		{"category", Filter{Category: "detergent", Range: DefaultRange}, []string{"dt/0"}},
		{"under 500", Filter{Range: RangePreset("under500")}, []string{"fc/0"}},
		{"500 to 1000 is inclusive", Filter{Range: RangePreset("500to1000")}, []string{"fc/1"}},
		{"above 5000 is unbounded", Filter{Range: RangePreset("above5000")}, []string{"dt/0"}},
		{"all", Filter{Range: RangePreset("all")}, []string{"fc/0", "fc/1", "dt/0"}},
		{"no match", Filter{Search: "soap", Range: DefaultRange}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(vs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d variants, want %v", len(got), tt.want)
			}
			for i, v := range got {
				if v.ID != tt.want[i] {
					t.Errorf("variant %d = %s, want %s", i, v.ID, tt.want[i])
				}
			}
		})
	}
}

func TestRangeBoundaries(t *testing.T) {
	r := RangePreset("1000to5000")
	for _, p := range []int64{1000, 5000} {
		if !r.Contains(decimal.NewFromInt(p)) {
			t.Errorf("range should contain %d", p)
		}
	}
	if r.Contains(decimal.NewFromInt(5001)) || r.Contains(decimal.NewFromInt(999)) {
		t.Error("range contains values outside its bounds")
	}
}
