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

package backend

// types.go defines the JSON shapes exchanged with the Kerl backend.

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/address"
)

// Product is a catalog entry. Sizes, Prices, Offers and Images are parallel:
// index i describes the i-th size.
type Product struct {
	ID          string            `json:"_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Sizes       []string          `json:"sizes"`
	Prices      []decimal.Decimal `json:"prices"`
	Offers      []string          `json:"offers,omitempty"`
	Images      [][]string        `json:"images,omitempty"`
}

// UnmarshalJSON accepts either a full product object or a bare product id,
// the form the cart endpoints use when the reference is not populated.
func (p *Product) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = Product{ID: id}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	type plain Product
	return json.Unmarshal(data, (*plain)(p))
}

// CartItem is one line of the remote cart.
type CartItem struct {
	Product           Product `json:"productId"`
	Quantity          int     `json:"quantity"`
	SelectedSizeIndex int     `json:"selectedSizeIndex"`
}

// CartUpdate is the body of the cart mutation endpoints.
type CartUpdate struct {
	UserID            string `json:"userId"`
	ProductID         string `json:"productId"`
	Quantity          int    `json:"quantity"`
	SelectedSizeIndex int    `json:"selectedSizeIndex"`
}

type OrderStatus string

const (
	OrderReceived  OrderStatus = "received"
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Order is a placed order as stored by the backend.
type Order struct {
	ID            string          `json:"_id"`
	UserID        string          `json:"userId"`
	Items         []CartItem      `json:"items"`
	Address       address.Address `json:"address"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	UserID  string          `json:"userId"`
	Items   []CartItem      `json:"items"`
	Address address.Address `json:"address"`
}

// PaymentUpdate is the body of PUT /payment/update, sent after the payment
// widget reports either outcome.
type PaymentUpdate struct {
	PaymentID       string        `json:"paymentId,omitempty"`
	ProviderOrderID string        `json:"razorpayOrderId"`
	Signature       string        `json:"signature,omitempty"`
	OrderID         string        `json:"orderId"`
	UserID          string        `json:"userId"`
	Status          PaymentStatus `json:"status"`
	Reason          string        `json:"reason,omitempty"`
}

// User is the account attached to the backend session.
type User struct {
	ID      string          `json:"_id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	Address address.Address `json:"address"`
}

type AuthStatus struct {
	IsLoggedIn bool  `json:"isLoggedIn"`
	User       *User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type SignupRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

type ProfileUpdate struct {
	Address address.Address `json:"address"`
	Phone   string          `json:"phone"`
}
