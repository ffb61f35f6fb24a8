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

// Package orders shapes a user's order history for display.
package orders

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
)

var stageLabels = []string{"Order Received", "Processing", "Shipped", "Delivered"}

func stageIndex(s backend.OrderStatus) int {
	switch s {
	case backend.OrderReceived:
		return 0
	case backend.OrderPending:
		return 1
	case backend.OrderShipped:
		return 2
	case backend.OrderCompleted:
		return 3
	}
	return -1
}

// Stage is one step of the order progress bar.
type Stage struct {
	Label   string `json:"label"`
	Reached bool   `json:"reached"`
	Current bool   `json:"current"`
}

// Stages returns the four progress stages for status. For an unknown
// status no stage is reached.
func Stages(status backend.OrderStatus) []Stage {
	cur := stageIndex(status)
	out := make([]Stage, len(stageLabels))
	for i, l := range stageLabels {
		out[i] = Stage{Label: l, Reached: i <= cur, Current: i == cur}
	}
	return out
}

// StatusLabel is the display name of status, or the raw status when it is
// not one of the known ones.
func StatusLabel(status backend.OrderStatus) string {
	if i := stageIndex(status); i >= 0 {
		return stageLabels[i]
	}
	return string(status)
}

func PaymentLabel(status backend.PaymentStatus) string {
	switch status {
	case backend.PaymentCompleted:
		return "Paid"
	case backend.PaymentFailed:
		return "Payment failed"
	case backend.PaymentPending:
		return "Payment pending"
	}
	return string(status)
}

type Summary struct {
	ID            string          `json:"id"`
	PlacedAt      time.Time       `json:"placedAt"`
	Address       string          `json:"address"`
	ItemCount     int             `json:"itemCount"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Stages        []Stage         `json:"stages"`
	Items         []Line          `json:"items"`
}

type Line struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Summarize returns one Summary per order, newest first.
func Summarize(orders []backend.Order) []Summary {
	out := make([]Summary, 0, len(orders))
	for _, o := range orders {
		s := Summary{
			ID:            o.ID,
			PlacedAt:      o.CreatedAt,
			Address:       address.Format(o.Address),
			Total:         o.TotalPrice,
			Status:        StatusLabel(o.Status),
			PaymentStatus: PaymentLabel(o.PaymentStatus),
			Stages:        Stages(o.Status),
		}
		for _, it := range o.Items {
			s.ItemCount += it.Quantity
			l := Line{ProductID: it.Product.ID, Name: it.Product.Name, Quantity: it.Quantity}
			if i := it.SelectedSizeIndex; i >= 0 && i < len(it.Product.Sizes) {
				l.Size = it.Product.Sizes[i]
			}
			s.Items = append(s.Items, l)
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out
}
