// Copyright 2018 Google LLC
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

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/Company-KERL/Kerl/address"
)

// CreateOrder places an order for the given cart snapshot. The returned
// order carries the server-assigned id and total.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var resp struct {
		Order *Order `json:"order"`
	}
	if _, err := c.call(ctx, "checkout: create order", http.MethodPost, "/orders", req, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil || resp.Order.ID == "" {
		return nil, &Error{Op: "checkout: create order", StatusCode: http.StatusOK, Err: errors.New("response carries no order")}
	}
	return resp.Order, nil
}

// Orders returns the user's order history.
func (c *Client) Orders(ctx context.Context, userID string) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if _, err := c.call(ctx, "checkout: get order history", http.MethodGet, "/orders/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// Addresses returns the addresses the user has ordered to before.
func (c *Client) Addresses(ctx context.Context, userID string) ([]address.Address, error) {
	var addrs []address.Address
	if _, err := c.call(ctx, "checkout: get addresses", http.MethodGet, "/order/addresses/"+url.PathEscape(userID), nil, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// CreatePaymentOrder registers the order with the payment provider and
// returns the provider's order id.
func (c *Client) CreatePaymentOrder(ctx context.Context, orderID string, totalPrice decimal.Decimal) (string, error) {
	body := struct {
		OrderID    string          `json:"orderId"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
	}{orderID, totalPrice}
	var resp struct {
		RazorpayOrderID string `json:"razorpayOrderId"`
	}
	if _, err := c.call(ctx, "payment: create order", http.MethodPost, "/payment/order", body, &resp); err != nil {
		return "", err
	}
	if resp.RazorpayOrderID == "" {
		return "", &Error{Op: "payment: create order", StatusCode: http.StatusOK, Err: errors.New("response carries no provider order id")}
	}
	return resp.RazorpayOrderID, nil
}

// UpdatePayment reports the widget's outcome for an order.
func (c *Client) UpdatePayment(ctx context.Context, u PaymentUpdate) error {
	_, err := c.call(ctx, "payment: update", http.MethodPut, "/payment/update", u, nil)
	return err
}
