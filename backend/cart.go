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
	"net/http"
	"net/url"
)

// Cart returns the lines of the user's remote cart.
func (c *Client) Cart(ctx context.Context, userID string) ([]CartItem, error) {
	var resp struct {
		Cart struct {
			Items []CartItem `json:"items"`
		} `json:"cart"`
	}
	if _, err := c.call(ctx, "cart: get", http.MethodGet, "/cart/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Cart.Items == nil {
		return []CartItem{}, nil
	}
	return resp.Cart.Items, nil
}

// CartLength returns the item count the backend reports for the user's cart.
func (c *Client) CartLength(ctx context.Context, userID string) (int, error) {
	var resp struct {
		CartLength int `json:"cartLength"`
	}
	if _, err := c.call(ctx, "cart: length", http.MethodGet, "/cart/"+url.PathEscape(userID)+"/length", nil, &resp); err != nil {
		return 0, err
	}
	return resp.CartLength, nil
}

// AddCartItem adds a product in a given size to the cart.
func (c *Client) AddCartItem(ctx context.Context, u CartUpdate) error {
	_, err := c.call(ctx, "cart: add item", http.MethodPost, "/cart", u, nil)
	return err
}

// UpdateCartItem sets the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, u CartUpdate) error {
	_, err := c.call(ctx, "cart: update quantity", http.MethodPut, "/cart", u, nil)
	return err
}

// RemoveCartItem deletes the cart line holding productID.
func (c *Client) RemoveCartItem(ctx context.Context, userID, productID string) error {
	body := struct {
		UserID    string `json:"userId"`
		ProductID string `json:"productId"`
	}{userID, productID}
	_, err := c.call(ctx, "cart: remove item", http.MethodDelete, "/cart", body, nil)
	return err
}
