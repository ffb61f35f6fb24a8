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

import (
	"context"
	"net/http"
)

// CheckAuth asks the backend whether the forwarded session cookie belongs
// to a logged-in user.
func (c *Client) CheckAuth(ctx context.Context) (*AuthStatus, error) {
	var st AuthStatus
	if _, err := c.call(ctx, "auth: check", http.MethodGet, "/check-auth", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Login calls POST /login. The cookies the backend sets for the new session
// are returned so they can be relayed to the browser.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, []*http.Cookie, error) {
	var lr LoginResponse
	resp, err := c.call(ctx, "auth: login", http.MethodPost, "/login", LoginRequest{Email: email, Password: password}, &lr)
	if err != nil {
		return nil, nil, err
	}
	return &lr, resp.Cookies(), nil
}

// Signup calls POST /signup and returns the backend's message.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if _, err := c.call(ctx, "auth: signup", http.MethodPost, "/signup", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, "auth: logout", http.MethodPost, "/logout", nil, nil)
	return err
}

// UpdateProfile saves the user's address and phone number.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if _, err := c.call(ctx, "auth: update profile", http.MethodPut, "/profile", u, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}
