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

// Package checkout drives one purchase from address selection through
// order creation, payment and reconciliation with the backend.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/cart"
	"github.com/Company-KERL/Kerl/money"
)

type State int

const (
	AddressSelection State = iota
	OrderCreation
	PaymentProviderOrderCreation
	PaymentWidgetOpen
	PaymentReconciliation
	Success
	Failed
)

var stateNames = [...]string{
	"address_selection",
	"order_creation",
	"payment_provider_order_creation",
	"payment_widget_open",
	"payment_reconciliation",
	"success",
	"failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether s is Success or Failed.
func (s State) Terminal() bool { return s == Success || s == Failed }

// Backend is the order and payment API the coordinator calls.
type Backend interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error)
	CreatePaymentOrder(ctx context.Context, orderID string, totalPrice decimal.Decimal) (string, error)
	UpdatePayment(ctx context.Context, u backend.PaymentUpdate) error
}

// Cart is cleared once a payment is acknowledged.
type Cart interface {
	Reset()
}

// Counter is re-read from the backend once a payment is acknowledged.
type Counter interface {
	Refresh(ctx context.Context, userID string) error
}

// Request is what the shopper checks out.
type Request struct {
	UserID  string
	Items   []cart.LineItem
	Address address.Address

	Cart  Cart
	Badge Counter
}

// PaymentSession lives for one attempt and is never persisted.
type PaymentSession struct {
	OrderID         string `json:"orderId"`
	ProviderOrderID string `json:"providerOrderId"`
	Amount          int64  `json:"amount"`
}

type Options struct {
	Key             string
	Currency        string
	Theme           string
	MinorUnitFactor int64
	// WidgetTimeout bounds the wait for a widget callback. Zero waits for
	// the context alone.
	WidgetTimeout time.Duration
}

type Coordinator struct {
	be     Backend
	widget Widget
	opts   Options
	log    logrus.FieldLogger
}

func New(be Backend, widget Widget, opts Options, log logrus.FieldLogger) *Coordinator {
	if opts.MinorUnitFactor <= 0 {
		opts.MinorUnitFactor = 100
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	return &Coordinator{be: be, widget: widget, opts: opts, log: log}
}

// Checkout runs an attempt to completion. Input errors are returned without
// an attempt; otherwise the attempt's final error, if any, is returned with
// it.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (*Attempt, error) {
	a, err := c.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	<-a.Done()
	return a, a.Err()
}

// Start validates req and runs the rest of the attempt in the background.
// ctx must outlive the attempt.
func (c *Coordinator) Start(ctx context.Context, req Request) (*Attempt, error) {
	if !req.Address.Complete() {
		checkoutAttempts.WithLabelValues("invalid").Inc()
		return nil, ErrAddressRequired
	}
	if len(req.Items) == 0 {
		checkoutAttempts.WithLabelValues("invalid").Inc()
		return nil, ErrEmptyCart
	}
	a := newAttempt()
	go c.run(ctx, req, a)
	return a, nil
}

type widgetResult struct {
	ok     bool
	resp   SuccessResponse
	reason string
}

func (c *Coordinator) run(ctx context.Context, req Request, a *Attempt) {
	log := c.log.WithField("user", req.UserID)

	a.advance(OrderCreation)
	items := make([]backend.CartItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = backend.CartItem{Product: it.Product, Quantity: it.Quantity, SelectedSizeIndex: it.SizeIndex}
	}
	order, err := c.be.CreateOrder(ctx, backend.CreateOrderRequest{UserID: req.UserID, Items: items, Address: req.Address})
	if err != nil {
		c.fail(a, log, errors.Wrap(err, "could not create order"))
		return
	}
	a.setOrder(order)
	log = log.WithField("order", order.ID)

	a.advance(PaymentProviderOrderCreation)
	amount, err := money.MinorUnits(order.TotalPrice, c.opts.MinorUnitFactor)
	if err != nil {
		c.fail(a, log, errors.Wrap(err, "invalid order total"))
		return
	}
	providerOrderID, err := c.be.CreatePaymentOrder(ctx, order.ID, order.TotalPrice)
	if err != nil {
		c.fail(a, log, errors.Wrap(err, "could not create payment order"))
		return
	}
	session := PaymentSession{OrderID: order.ID, ProviderOrderID: providerOrderID, Amount: amount}
	log = log.WithField("provider_order", providerOrderID)

	results := make(chan widgetResult, 1)
	var once sync.Once
	deliver := func(r widgetResult) { once.Do(func() { results <- r }) }
	cb := Callbacks{
		OnSuccess: func(resp SuccessResponse) { deliver(widgetResult{ok: true, resp: resp}) },
		OnFailure: func(reason string) { deliver(widgetResult{reason: reason}) },
	}
	opts := WidgetOptions{
		Key:      c.opts.Key,
		Amount:   amount,
		Currency: c.opts.Currency,
		OrderID:  providerOrderID,
		Theme:    c.opts.Theme,
	}
	if err := c.widget.Open(ctx, opts, cb); err != nil {
		c.fail(a, log, errors.Wrap(err, "could not open payment widget"))
		return
	}
	defer c.widget.Close(providerOrderID)
	a.opened(session, opts)

	var timeout <-chan time.Time
	if c.opts.WidgetTimeout > 0 {
		t := time.NewTimer(c.opts.WidgetTimeout)
		defer t.Stop()
		timeout = t.C
	}
	var res widgetResult
	select {
	case res = <-results:
	case <-timeout:
		c.fail(a, log, ErrAbandoned)
		return
	case <-ctx.Done():
		c.fail(a, log, ErrAbandoned)
		return
	}

	a.advance(PaymentReconciliation)
	if !res.ok {
		perr := &PaymentProviderError{ProviderOrderID: providerOrderID, Reason: res.reason}
		if err := c.be.UpdatePayment(ctx, backend.PaymentUpdate{
			ProviderOrderID: providerOrderID,
			OrderID:         order.ID,
			UserID:          req.UserID,
			Status:          backend.PaymentFailed,
			Reason:          res.reason,
		}); err != nil {
			log.WithError(err).Warn("failed to record payment failure")
		}
		c.fail(a, log, perr)
		return
	}

	if err := c.be.UpdatePayment(ctx, backend.PaymentUpdate{
		PaymentID:       res.resp.PaymentID,
		ProviderOrderID: providerOrderID,
		Signature:       res.resp.Signature,
		OrderID:         order.ID,
		UserID:          req.UserID,
		Status:          backend.PaymentCompleted,
	}); err != nil {
		c.fail(a, log, &ReconciliationError{OrderID: order.ID, Err: err})
		return
	}

	if req.Cart != nil {
		req.Cart.Reset()
	}
	if req.Badge != nil {
		_ = req.Badge.Refresh(ctx, req.UserID)
	}
	log.Info("payment reconciled")
	checkoutAttempts.WithLabelValues("success").Inc()
	a.finish(Success, nil)
}

func (c *Coordinator) fail(a *Attempt, log logrus.FieldLogger, err error) {
	log.WithField("state", a.State().String()).WithError(err).Warn("checkout failed")
	checkoutAttempts.WithLabelValues(outcomeLabel(err)).Inc()
	a.finish(Failed, err)
}

func outcomeLabel(err error) string {
	var (
		perr *PaymentProviderError
		rerr *ReconciliationError
	)
	switch {
	case errors.Is(err, ErrAbandoned):
		return "abandoned"
	case errors.As(err, &perr):
		return "payment_failed"
	case errors.As(err, &rerr):
		return "unreconciled"
	default:
		return "error"
	}
}

// Attempt is one run of the checkout state machine. Its accessors are safe
// to call from any goroutine.
type Attempt struct {
	mu         sync.Mutex
	state      State
	session    PaymentSession
	options    WidgetOptions
	order      *backend.Order
	err        error
	done       chan struct{}
	widgetOpen chan struct{}
	openOnce   sync.Once
}

func newAttempt() *Attempt {
	return &Attempt{
		state:      AddressSelection,
		done:       make(chan struct{}),
		widgetOpen: make(chan struct{}),
	}
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) Session() PaymentSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// WidgetOptions are the options the widget was opened with.
func (a *Attempt) WidgetOptions() WidgetOptions {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.options
}

// Order is nil until the backend has created the order.
func (a *Attempt) Order() *backend.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order
}

func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed when the attempt reaches Success or Failed.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// WidgetOpened is closed once the payment widget is open, or the attempt
// ended before it could be.
func (a *Attempt) WidgetOpened() <-chan struct{} { return a.widgetOpen }

func (a *Attempt) advance(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.Terminal() {
		a.state = s
	}
}

func (a *Attempt) setOrder(o *backend.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = o
}

func (a *Attempt) opened(s PaymentSession, opts WidgetOptions) {
	a.mu.Lock()
	a.session = s
	a.options = opts
	a.state = PaymentWidgetOpen
	a.mu.Unlock()
	a.openOnce.Do(func() { close(a.widgetOpen) })
}

func (a *Attempt) finish(s State, err error) {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	a.state = s
	a.err = err
	a.mu.Unlock()
	a.openOnce.Do(func() { close(a.widgetOpen) })
	close(a.done)
}
