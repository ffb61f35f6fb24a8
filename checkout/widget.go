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

package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// WidgetOptions configure the payment widget. Amount is in minor units.
type WidgetOptions struct {
	Key      string `json:"key"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"order_id"`
	Theme    string `json:"theme,omitempty"`
}

// SuccessResponse is what the widget hands the success handler.
type SuccessResponse struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// Callbacks are invoked by the widget; at most the first one counts.
type Callbacks struct {
	OnSuccess func(SuccessResponse)
	OnFailure func(reason string)
}

// Widget is the external payment UI. Open must return without waiting for
// the shopper. Close is called when the attempt stops listening.
type Widget interface {
	Open(ctx context.Context, opts WidgetOptions, cb Callbacks) error
	Close(providerOrderID string)
}

// Bridge is a Widget hosted in the shopper's browser. Open only registers
// the attempt; the browser's callbacks come back through Succeed and Fail.
type Bridge struct {
	log logrus.FieldLogger

	mu      sync.Mutex
	pending map[string]Callbacks
}

func NewBridge(log logrus.FieldLogger) *Bridge {
	return &Bridge{log: log, pending: make(map[string]Callbacks)}
}

func (b *Bridge) Open(ctx context.Context, opts WidgetOptions, cb Callbacks) error {
	if opts.OrderID == "" {
		return errors.New("checkout: widget needs a provider order id")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[opts.OrderID] = cb
	return nil
}

func (b *Bridge) Close(providerOrderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, providerOrderID)
}

// Succeed delivers the widget's success response for providerOrderID.
func (b *Bridge) Succeed(providerOrderID string, resp SuccessResponse) error {
	cb, ok := b.take(providerOrderID)
	if !ok {
		return ErrUnknownPayment
	}
	if resp.OrderID == "" {
		resp.OrderID = providerOrderID
	}
	cb.OnSuccess(resp)
	return nil
}

// Fail delivers the widget's failure reason for providerOrderID.
func (b *Bridge) Fail(providerOrderID, reason string) error {
	cb, ok := b.take(providerOrderID)
	if !ok {
		return ErrUnknownPayment
	}
	cb.OnFailure(reason)
	return nil
}

func (b *Bridge) take(id string) (Callbacks, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	} else {
		b.log.WithField("provider_order", id).Debug("callback for unknown payment")
	}
	return cb, ok
}

// Pending is the number of widgets still open.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
