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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/cart"
	"github.com/Company-KERL/Kerl/validator"
)

type fakeBackend struct {
	mu         sync.Mutex
	total      decimal.Decimal
	orderErr   error
	paymentErr error
	updateErr  error
	orders     []backend.CreateOrderRequest
	payOrders  int
	updates    []backend.PaymentUpdate
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, req)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	return &backend.Order{ID: "o1", TotalPrice: f.total, Status: backend.OrderReceived}, nil
}

func (f *fakeBackend) CreatePaymentOrder(ctx context.Context, orderID string, total decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payOrders++
	if f.paymentErr != nil {
		return "", f.paymentErr
	}
	return "order_rzp_" + orderID, nil
}

func (f *fakeBackend) UpdatePayment(ctx context.Context, u backend.PaymentUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.updateErr
}

func (f *fakeBackend) paymentUpdates() []backend.PaymentUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.PaymentUpdate(nil), f.updates...)
}

// scriptedWidget answers every Open by running act with the callbacks.
type scriptedWidget struct {
	mu     sync.Mutex
	opened []WidgetOptions
	closed []string
	act    func(Callbacks)
}

func (w *scriptedWidget) Open(ctx context.Context, opts WidgetOptions, cb Callbacks) error {
	w.mu.Lock()
	w.opened = append(w.opened, opts)
	w.mu.Unlock()
	if w.act != nil {
		w.act(cb)
	}
	return nil
}

func (w *scriptedWidget) Close(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = append(w.closed, id)
}

type fakeCart struct {
	mu    sync.Mutex
	reset bool
}

func (c *fakeCart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset = true
}

func (c *fakeCart) wasReset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reset
}

type fakeBadge struct {
	mu        sync.Mutex
	refreshes int
}

func (b *fakeBadge) Refresh(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshes++
	return nil
}

func (b *fakeBadge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

var home = address.Address{Street: "12 MG Road", City: "Pune", State: "MH", Zip: "411001"}

func request(c *fakeCart, b *fakeBadge) Request {
	return Request{
		UserID: "u1",
		Items: []cart.LineItem{
			{Product: backend.Product{ID: "p1", Prices: []decimal.Decimal{decimal.NewFromInt(100)}}, Quantity: 2},
			{Product: backend.Product{ID: "p2", Prices: []decimal.Decimal{decimal.NewFromInt(50)}}, Quantity: 1},
		},
		Address: home,
		Cart:    c,
		Badge:   b,
	}
}

func succeed(cb Callbacks) {
	cb.OnSuccess(SuccessResponse{PaymentID: "pay_1", Signature: "sig"})
}

func newCoordinator(be Backend, w Widget, timeout time.Duration) *Coordinator {
	log, _ := test.NewNullLogger()
	return New(be, w, Options{Key: "rzp_test", MinorUnitFactor: 100, Theme: "#3399cc", WidgetTimeout: timeout}, log)
}

func TestSuccessfulCheckout(t *testing.T) {
	be := &fakeBackend{total: decimal.RequireFromString("250.00")}
	w := &scriptedWidget{act: succeed}
	c, b := &fakeCart{}, &fakeBadge{}
	before := testutil.ToFloat64(checkoutAttempts.WithLabelValues("success"))

	a, err := newCoordinator(be, w, time.Second).Checkout(context.Background(), request(c, b))
	if err != nil {
		t.Fatal(err)
	}
	if a.State() != Success {
		t.Fatalf("state = %s", a.State())
	}
	if len(w.opened) != 1 || w.opened[0].Amount != 25000 || w.opened[0].Currency != "INR" || w.opened[0].OrderID != "order_rzp_o1" {
		t.Errorf("widget opened with %+v", w.opened)
	}
	if s := a.Session(); s.Amount != 25000 || s.OrderID != "o1" || s.ProviderOrderID != "order_rzp_o1" {
		t.Errorf("session = %+v", s)
	}
	if got := be.orders[0]; got.UserID != "u1" || len(got.Items) != 2 || got.Address != home {
		t.Errorf("order request = %+v", got)
	}
	ups := be.paymentUpdates()
	if len(ups) != 1 || ups[0].Status != backend.PaymentCompleted || ups[0].PaymentID != "pay_1" || ups[0].Signature != "sig" || ups[0].OrderID != "o1" {
		t.Errorf("payment updates = %+v", ups)
	}
	if !c.wasReset() || b.count() != 1 {
		t.Errorf("cart reset = %v, badge refreshes = %d", c.wasReset(), b.count())
	}
	if len(w.closed) != 1 {
		t.Errorf("widget closed %d times", len(w.closed))
	}
	if got := testutil.ToFloat64(checkoutAttempts.WithLabelValues("success")) - before; got != 1 {
		t.Errorf("success counter moved by %v", got)
	}
}

func TestUnacknowledgedPaymentKeepsCart(t *testing.T) {
	be := &fakeBackend{total: decimal.NewFromInt(250), updateErr: errors.New("502")}
	c, b := &fakeCart{}, &fakeBadge{}
	a, err := newCoordinator(be, &scriptedWidget{act: succeed}, time.Second).Checkout(context.Background(), request(c, b))
	var rerr *ReconciliationError
	if !errors.As(err, &rerr) || rerr.OrderID != "o1" {
		t.Fatalf("got %v, want *ReconciliationError", err)
	}
	if a.State() != Failed {
		t.Errorf("state = %s", a.State())
	}
	if c.wasReset() || b.count() != 0 {
		t.Error("cart cleared without a payment acknowledgement")
	}
}

func TestFailureCallbackIsRecorded(t *testing.T) {
	for _, bookkeepingErr := range []error{nil, errors.New("also down")} {
		be := &fakeBackend{total: decimal.NewFromInt(250), updateErr: bookkeepingErr}
		w := &scriptedWidget{act: func(cb Callbacks) {
			cb.OnFailure("card declined")
			cb.OnSuccess(SuccessResponse{PaymentID: "late"})
		}}
		c := &fakeCart{}
		a, err := newCoordinator(be, w, time.Second).Checkout(context.Background(), request(c, &fakeBadge{}))
		var perr *PaymentProviderError
		if !errors.As(err, &perr) || perr.Reason != "card declined" {
			t.Fatalf("got %v, want *PaymentProviderError", err)
		}
		ups := be.paymentUpdates()
		if len(ups) != 1 || ups[0].Status != backend.PaymentFailed || ups[0].Reason != "card declined" {
			t.Errorf("bookkeeping updates = %+v", ups)
		}
		if a.State() != Failed || c.wasReset() {
			t.Errorf("state = %s, reset = %v", a.State(), c.wasReset())
		}
	}
}

func TestAbandonedWidgetTimesOut(t *testing.T) {
	be := &fakeBackend{total: decimal.NewFromInt(250)}
	log, _ := test.NewNullLogger()
	bridge := NewBridge(log)
	coord := newCoordinator(be, bridge, 20*time.Millisecond)
	c := &fakeCart{}
	a, err := coord.Checkout(context.Background(), request(c, &fakeBadge{}))
	if !errors.Is(err, ErrAbandoned) || a.State() != Failed {
		t.Fatalf("got %v in state %s, want ErrAbandoned", err, a.State())
	}
	if err := bridge.Succeed("order_rzp_o1", SuccessResponse{PaymentID: "late"}); !errors.Is(err, ErrUnknownPayment) {
		t.Errorf("late callback: %v", err)
	}
	if len(be.paymentUpdates()) != 0 || c.wasReset() {
		t.Error("abandoned attempt reached reconciliation")
	}
}

func TestCancelledContextAbandons(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &scriptedWidget{act: func(Callbacks) { cancel() }}
	_, err := newCoordinator(&fakeBackend{total: decimal.NewFromInt(1)}, w, 0).Checkout(ctx, request(&fakeCart{}, &fakeBadge{}))
	if !errors.Is(err, ErrAbandoned) {
		t.Errorf("got %v, want ErrAbandoned", err)
	}
}

func TestInvalidRequestsNeverReachBackend(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr error
	}{
		{"no address", func(r *Request) { r.Address = address.Address{} }, ErrAddressRequired},
		{"blank zip", func(r *Request) { r.Address.Zip = "  " }, ErrAddressRequired},
		{"empty cart", func(r *Request) { r.Items = nil }, ErrEmptyCart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &fakeBackend{}
			req := request(&fakeCart{}, &fakeBadge{})
			tt.mutate(&req)
			a, err := newCoordinator(be, &scriptedWidget{}, time.Second).Checkout(context.Background(), req)
			if !errors.Is(err, tt.wantErr) || a != nil {
				t.Fatalf("got %v, %v; want %v", a, err, tt.wantErr)
			}
			if len(be.orders) != 0 {
				t.Error("backend called for an invalid request")
			}
		})
	}
	if !validator.IsValidationError(ErrAddressRequired) {
		t.Error("ErrAddressRequired should be a validation error")
	}
}

func TestRemoteFailuresEndAttempt(t *testing.T) {
	t.Run("order", func(t *testing.T) {
		be := &fakeBackend{orderErr: errors.New("down")}
		a, err := newCoordinator(be, &scriptedWidget{}, time.Second).Checkout(context.Background(), request(&fakeCart{}, &fakeBadge{}))
		if err == nil || a.State() != Failed || a.Order() != nil || be.payOrders != 0 {
			t.Errorf("err=%v state=%s payOrders=%d", err, a.State(), be.payOrders)
		}
	})
	t.Run("payment order", func(t *testing.T) {
		be := &fakeBackend{total: decimal.NewFromInt(10), paymentErr: errors.New("down")}
		w := &scriptedWidget{}
		a, err := newCoordinator(be, w, time.Second).Checkout(context.Background(), request(&fakeCart{}, &fakeBadge{}))
		if err == nil || a.State() != Failed || a.Order() == nil || len(w.opened) != 0 {
			t.Errorf("err=%v state=%s opened=%d", err, a.State(), len(w.opened))
		}
	})
}

func TestBridgeDeliversBrowserCallbacks(t *testing.T) {
	be := &fakeBackend{total: decimal.RequireFromString("99.50")}
	log, _ := test.NewNullLogger()
	bridge := NewBridge(log)
	coord := newCoordinator(be, bridge, time.Second)
	c := &fakeCart{}

	a, err := coord.Start(context.Background(), request(c, &fakeBadge{}))
	if err != nil {
		t.Fatal(err)
	}
	<-a.WidgetOpened()
	opts := a.WidgetOptions()
	if a.State() != PaymentWidgetOpen || opts.Amount != 9950 || opts.Key != "rzp_test" {
		t.Fatalf("state=%s options=%+v", a.State(), opts)
	}
	if err := bridge.Succeed("someone_else", SuccessResponse{}); !errors.Is(err, ErrUnknownPayment) {
		t.Errorf("unknown id: %v", err)
	}
	if err := bridge.Succeed(opts.OrderID, SuccessResponse{PaymentID: "pay_9", Signature: "s"}); err != nil {
		t.Fatal(err)
	}
	<-a.Done()
	if a.State() != Success || !c.wasReset() {
		t.Errorf("state=%s reset=%v err=%v", a.State(), c.wasReset(), a.Err())
	}
	if ups := be.paymentUpdates(); len(ups) != 1 || ups[0].ProviderOrderID != opts.OrderID {
		t.Errorf("updates = %+v", ups)
	}
	if bridge.Pending() != 0 {
		t.Errorf("bridge still holds %d payments", bridge.Pending())
	}
}
