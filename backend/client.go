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

// Package backend is the storefront's client for the Kerl REST backend:
// catalog, cart, orders, payments and the cookie-authenticated account
// endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// Error is returned for every call that did not complete with a 2xx
// response: either the request never got an answer (Err is set) or the
// backend answered with StatusCode.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNetworkError reports whether err came from a failed backend call.
func IsNetworkError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.StatusCode
	}
	return 0
}

// Client calls the backend rooted at a base URI such as
// "https://api.kerl.in".
type Client struct {
	baseURI    string
	httpClient *http.Client
}

// New returns a Client. A nil httpClient gets a 10 second timeout.
func New(baseURI string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURI:    strings.TrimRight(baseURI, "/"),
		httpClient: httpClient,
	}
}

type ctxKeyCookies struct{}

// WithCookies attaches the shopper's backend session cookies to ctx. Every
// call made with the returned context forwards them.
func WithCookies(ctx context.Context, cookies []*http.Cookie) context.Context {
	return context.WithValue(ctx, ctxKeyCookies{}, cookies)
}

func cookiesFrom(ctx context.Context) []*http.Cookie {
	c, _ := ctx.Value(ctxKeyCookies{}).([]*http.Cookie)
	return c
}

// call performs one JSON round trip. in may be nil for bodiless requests,
// out may be nil when the response body is not needed.
func (c *Client) call(ctx context.Context, op, method, path string, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Op: op, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURI+path, body)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, ck := range cookiesFrom(ctx) {
		req.AddCookie(ck)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp, &Error{Op: op, StatusCode: resp.StatusCode, Body: errorMessage(respBody)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return resp, nil
}

// errorMessage prefers the backend's {"message": ...} or {"error": ...}
// over the raw body.
func errorMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &m) == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	return strings.TrimSpace(string(body))
}
