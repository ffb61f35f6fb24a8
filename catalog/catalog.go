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

// Package catalog shapes the product list for browsing.
package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/backend"
)

// Variant is one size of a product, listed as a product of its own.
type Variant struct {
	ID          string          `json:"_id"`
	ProductID   string          `json:"productId"`
	SizeIndex   int             `json:"sizeIndex"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Offer       string          `json:"offer,omitempty"`
	Image       string          `json:"image,omitempty"`
}

// Variants flattens products into one entry per size. A size without a
// price is skipped.
func Variants(products []backend.Product) []Variant {
	var out []Variant
	for _, p := range products {
		for i, size := range p.Sizes {
			if i >= len(p.Prices) {
				break
			}
			v := Variant{
				ID:          fmt.Sprintf("%s/%d", p.ID, i),
				ProductID:   p.ID,
				SizeIndex:   i,
				Name:        fmt.Sprintf("%s (%s)", p.Name, size),
				Description: p.Description,
				Category:    p.Category,
				Price:       p.Prices[i],
			}
			if i < len(p.Offers) {
				v.Offer = p.Offers[i]
			}
			if i < len(p.Images) && len(p.Images[i]) > 0 {
				v.Image = p.Images[i][0]
			}
			out = append(out, v)
		}
	}
	return out
}

// PriceRange is an inclusive price interval. A nil Max is unbounded.
type PriceRange struct {
	Min decimal.Decimal
	Max *decimal.Decimal
}

func (r PriceRange) Contains(price decimal.Decimal) bool {
	if price.LessThan(r.Min) {
		return false
	}
	return r.Max == nil || !price.GreaterThan(*r.Max)
}

func bounded(min, max int64) PriceRange {
	m := decimal.NewFromInt(max)
	return PriceRange{Min: decimal.NewFromInt(min), Max: &m}
}

// DefaultRange is what the browse page shows when no range is picked.
var DefaultRange = bounded(0, 10000)

// RangePreset maps a price filter option to its range. Unknown names and
// "all" give DefaultRange.
func RangePreset(name string) PriceRange {
	switch name {
	case "under500":
		return bounded(0, 500)
	case "500to1000":
		return bounded(500, 1000)
	case "1000to5000":
		return bounded(1000, 5000)
	case "above5000":
		return PriceRange{Min: decimal.NewFromInt(5000)}
	default:
		return DefaultRange
	}
}

// Filter selects variants. Search and Category are matched without regard
// to case against the name and description; an empty value matches all.
type Filter struct {
	Search   string
	Category string
	Range    PriceRange
}

func (f Filter) Match(v Variant) bool {
	return matchText(v, f.Search) && matchText(v, f.Category) && f.Range.Contains(v.Price)
}

func (f Filter) Apply(vs []Variant) []Variant {
	out := make([]Variant, 0, len(vs))
	for _, v := range vs {
		if f.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

func matchText(v Variant, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(v.Name), term) ||
		strings.Contains(strings.ToLower(v.Description), term)
}
