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

package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
)

func TestStages(t *testing.T) {
	tests := []struct {
		status  backend.OrderStatus
		reached int
		current string
	}{
		{backend.OrderReceived, 1, "Order Received"},
		{backend.OrderPending, 2, "Processing"},
		{backend.OrderShipped, 3, "Shipped"},
		{backend.OrderCompleted, 4, "Delivered"},
		{"cancelled", 0, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			stages := Stages(tt.status)
			if len(stages) != 4 {
				t.Fatalf("got %d stages", len(stages))
			}
			reached, current := 0, ""
			for _, s := range stages {
				if s.Reached {
					reached++
				}
				if s.Current {
					current = s.Label
				}
			}
			if reached != tt.reached || current != tt.current {
				t.Errorf("reached=%d current=%q, want %d %q", reached, current, tt.reached, tt.current)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	older := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	orders := []backend.Order{
		{
			ID:            "o1",
			CreatedAt:     older,
			Status:        backend.OrderCompleted,
			PaymentStatus: backend.PaymentCompleted,
			TotalPrice:    decimal.NewFromInt(250),
			Address:       address.Address{Street: "12 MG Road", City: "Pune", Zip: "411001"},
			Items: []backend.CartItem{
				{Product: backend.Product{ID: "p1", Name: "Floor Cleaner", Sizes: []string{"1 L"}}, Quantity: 2},
				{Product: backend.Product{ID: "p2"}, Quantity: 1, SelectedSizeIndex: 3},
			},
		},
		{ID: "o2", CreatedAt: newer, Status: backend.OrderReceived, PaymentStatus: backend.PaymentPending},
	}
	got := Summarize(orders)
	if len(got) != 2 || got[0].ID != "o2" || got[1].ID != "o1" {
		t.Fatalf("order = %+v, want newest first", got)
	}
	s := got[1]
	if s.Address != "12 MG Road, Pune, 411001" {
		t.Errorf("Address = %q", s.Address)
	}
	if s.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", s.ItemCount)
	}
	if s.Status != "Delivered" || s.PaymentStatus != "Paid" {
		t.Errorf("labels = %q, %q", s.Status, s.PaymentStatus)
	}
	if s.Items[0].Size != "1 L" || s.Items[1].Size != "" {
		t.Errorf("items = %+v", s.Items)
	}
	if got[0].Status != "Order Received" || got[0].PaymentStatus != "Payment pending" {
		t.Errorf("newer labels = %q, %q", got[0].Status, got[0].PaymentStatus)
	}
}
