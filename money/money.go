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

package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNegative      = errors.New("money: amount is negative")
	ErrInvalidFactor = errors.New("money: minor unit factor must be positive")
)

// Multiply returns unit * quantity.
func Multiply(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds all amounts. The sum of nothing is zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MinorUnits converts amount into the integer count of minor units a payment
// provider expects (paise for INR, cents for USD) given the number of minor
// units per major unit. Fractions of a minor unit are rounded half away from
// zero.
func MinorUnits(amount decimal.Decimal, factor int64) (int64, error) {
	if factor <= 0 {
		return 0, ErrInvalidFactor
	}
	if amount.IsNegative() {
		return 0, ErrNegative
	}
	return amount.Mul(decimal.NewFromInt(factor)).Round(0).IntPart(), nil
}

// Render formats amount with the symbol of currencyCode and two decimals.
func Render(amount decimal.Decimal, currencyCode string) string {
	return fmt.Sprintf("%s%s", Symbol(currencyCode), amount.StringFixed(2))
}

// Symbol returns the display symbol for a currency code, "₹" by default.
func Symbol(currencyCode string) string {
	logos := map[string]string{
		"INR": "₹",
		"USD": "$",
		"CAD": "$",
		"JPY": "¥",
		"EUR": "€",
		"GBP": "£",
	}
	if v, ok := logos[currencyCode]; ok {
		return v
	}
	return "₹"
}
