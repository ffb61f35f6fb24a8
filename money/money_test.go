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
	"testing"

	"github.com/shopspring/decimal"
)

func TestMultiplyAndSum(t *testing.T) {
	a := Multiply(decimal.NewFromInt(100), 2)
	b := Multiply(decimal.NewFromInt(50), 1)
	if got := Sum(a, b); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Sum = %s, want 250", got)
	}
	if got := Sum(); !got.IsZero() {
		t.Errorf("Sum() = %s, want 0", got)
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		factor int64
		want   int64
	}{
		{"250.00", 100, 25000},
		{"250", 100, 25000},
		{"19.99", 100, 1999},
		{"0.005", 100, 1},
		{"0.004", 100, 0},
		{"1500", 1, 1500},
	}
	for _, tt := range tests {
		got, err := MinorUnits(decimal.RequireFromString(tt.amount), tt.factor)
		if err != nil {
			t.Fatalf("MinorUnits(%s, %d): %v", tt.amount, tt.factor, err)
		}
		if got != tt.want {
			t.Errorf("MinorUnits(%s, %d) = %d, want %d", tt.amount, tt.factor, got, tt.want)
		}
	}
}

func TestMinorUnitsErrors(t *testing.T) {
	if _, err := MinorUnits(decimal.NewFromInt(-1), 100); !errors.Is(err, ErrNegative) {
		t.Errorf("negative amount: got %v, want ErrNegative", err)
	}
	if _, err := MinorUnits(decimal.NewFromInt(1), 0); !errors.Is(err, ErrInvalidFactor) {
		t.Errorf("zero factor: got %v, want ErrInvalidFactor", err)
	}
}

func TestRender(t *testing.T) {
	if got := Render(decimal.NewFromInt(250), "INR"); got != "₹250.00" {
		t.Errorf("Render = %q", got)
	}
	if got := Render(decimal.RequireFromString("3.5"), "USD"); got != "$3.50" {
		t.Errorf("Render = %q", got)
	}
	if got := Symbol("XYZ"); got != "₹" {
		t.Errorf("Symbol default = %q", got)
	}
}
