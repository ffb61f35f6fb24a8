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

// Package cart keeps a shopper's in-memory mirror of the remote cart and
// the cart-count badge consistent with the backend across concurrent,
// possibly out-of-order, network calls.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/money"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrNoSuchItem      = errors.New("cart: no item at that position")
	ErrNoSuchSize      = errors.New("cart: product has no such size")
	ErrNotConfirmed    = errors.New("cart: removal not confirmed")
	ErrNoUser          = errors.New("cart: no user bound to cart")

	// ErrSuperseded is returned by Load when a newer Load was started (or
	// the store was reset or closed) before this one completed. Its result
	// was discarded.
	ErrSuperseded = errors.New("cart: load superseded by a newer one")
)

// Remote is the subset of the backend the store needs.
type Remote interface {
	Cart(ctx context.Context, userID string) ([]backend.CartItem, error)
	AddCartItem(ctx context.Context, u backend.CartUpdate) error
	UpdateCartItem(ctx context.Context, u backend.CartUpdate) error
	RemoveCartItem(ctx context.Context, userID, productID string) error
}

// FetchError is returned by Load when the remote cart could not be read.
// The previous items are left in place.
type FetchError struct {
	UserID string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("cart: fetch cart of %s: %v", e.UserID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LineItem is one product, in one size, with a quantity of at least one.
// A cart may hold several lines for the same product and size.
type LineItem struct {
	Product   backend.Product `json:"product"`
	SizeIndex int             `json:"selectedSizeIndex"`
	Quantity  int             `json:"quantity"`

	// line is assigned by Load and unique for the lifetime of the Store.
	line uint64
}

// UnitPrice is the product's price for the selected size, zero when the
// product has no price at that index.
func (li LineItem) UnitPrice() decimal.Decimal {
	if li.SizeIndex < 0 || li.SizeIndex >= len(li.Product.Prices) {
		return decimal.Zero
	}
	return li.Product.Prices[li.SizeIndex]
}

// Size is the label of the selected size, if the product has one.
func (li LineItem) Size() string {
	if li.SizeIndex < 0 || li.SizeIndex >= len(li.Product.Sizes) {
		return ""
	}
	return li.Product.Sizes[li.SizeIndex]
}

func (li LineItem) Subtotal() decimal.Decimal {
	return money.Multiply(li.UnitPrice(), li.Quantity)
}

// ConfirmFunc asks the shopper to confirm removing item. Only a true answer
// lets the removal proceed.
type ConfirmFunc func(item LineItem) bool

// Store is the session's cart mirror. It is safe for concurrent use; remote
// calls are made without holding the lock.
type Store struct {
	remote Remote
	badge  *Badge
	log    logrus.FieldLogger

	mu      sync.Mutex
	userID  string
	items   []LineItem
	loadSeq uint64
	lastID  uint64
	closed  bool
}

// NewStore returns an empty store. badge may be nil.
func NewStore(remote Remote, badge *Badge, log logrus.FieldLogger) *Store {
	return &Store{remote: remote, badge: badge, log: log}
}

// Load replaces the local items with the user's remote cart. Only the most
// recently started Load may apply its result; earlier ones that finish
// later return ErrSuperseded and change nothing.
func (s *Store) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	remote, err := s.remote.Cart(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.loadSeq {
		s.log.WithField("user", userID).Debug("discarding superseded cart load")
		return ErrSuperseded
	}
	if err != nil {
		s.log.WithField("user", userID).WithError(err).Warn("failed to load cart")
		return &FetchError{UserID: userID, Err: err}
	}
	items := make([]LineItem, 0, len(remote))
	for _, it := range remote {
		q := it.Quantity
		if q < 1 {
			s.log.WithField("product", it.Product.ID).WithField("quantity", q).Warn("remote cart line has no quantity, showing 1")
			q = 1
		}
		s.lastID++
		items = append(items, LineItem{Product: it.Product, SizeIndex: it.SelectedSizeIndex, Quantity: q, line: s.lastID})
	}
	s.userID = userID
	s.items = items
	return nil
}

// Add puts a product in the chosen size into the remote cart, then reloads
// the mirror and the badge from the backend.
func (s *Store) Add(ctx context.Context, userID string, product backend.Product, sizeIndex, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if sizeIndex < 0 || sizeIndex >= len(product.Prices) {
		return ErrNoSuchSize
	}
	if userID == "" {
		return ErrNoUser
	}
	if err := s.remote.AddCartItem(ctx, backend.CartUpdate{
		UserID:            userID,
		ProductID:         product.ID,
		Quantity:          quantity,
		SelectedSizeIndex: sizeIndex,
	}); err != nil {
		return fmt.Errorf("cart: add item: %w", err)
	}
	err := s.Load(ctx, userID)
	if s.badge != nil {
		_ = s.badge.Refresh(ctx, userID)
	}
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	return err
}

// SetQuantity changes the quantity of the item at index, locally first and
// then remotely. A quantity below one is rejected. If the backend refuses
// the change it is rolled back, unless a newer edit has already replaced it.
func (s *Store) SetQuantity(ctx context.Context, index, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return ErrNoSuchItem
	}
	item := s.items[index]
	userID := s.userID
	if item.Quantity == quantity {
		s.mu.Unlock()
		return nil
	}
	s.items[index].Quantity = quantity
	s.mu.Unlock()

	err := s.remote.UpdateCartItem(ctx, backend.CartUpdate{
		UserID:            userID,
		ProductID:         item.Product.ID,
		Quantity:          quantity,
		SelectedSizeIndex: item.SizeIndex,
	})
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if i := s.indexOf(item); i >= 0 && s.items[i].Quantity == quantity {
		s.items[i].Quantity = item.Quantity
	}
	s.mu.Unlock()
	s.log.WithField("product", item.Product.ID).WithError(err).Warn("cart quantity update failed, rolled back")
	return fmt.Errorf("cart: set quantity: %w", err)
}

// RemoveItem removes the item at index once confirm approves it. The item
// disappears locally at once and comes back at its old position if the
// backend refuses the delete. The badge is refreshed only after the
// backend has acknowledged the delete.
func (s *Store) RemoveItem(ctx context.Context, index int, confirm ConfirmFunc) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return ErrNoSuchItem
	}
	item := s.items[index]
	s.mu.Unlock()

	if confirm == nil || !confirm(item) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	i := s.indexOf(item)
	if i < 0 {
		s.mu.Unlock()
		return ErrNoSuchItem
	}
	item = s.items[i]
	userID := s.userID
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.mu.Unlock()

	if err := s.remote.RemoveCartItem(ctx, userID, item.Product.ID); err != nil {
		s.mu.Lock()
		if !s.closed {
			at := i
			if at > len(s.items) {
				at = len(s.items)
			}
			s.items = append(s.items[:at:at], append([]LineItem{item}, s.items[at:]...)...)
		}
		s.mu.Unlock()
		s.log.WithField("product", item.Product.ID).WithError(err).Warn("cart item removal failed, restored")
		return fmt.Errorf("cart: remove item: %w", err)
	}

	if s.badge != nil {
		_ = s.badge.Refresh(ctx, userID)
	}
	return nil
}

// Total is the sum of unit price times quantity over the current items.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Items returns a copy of the current items.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// UserID is the user whose cart was last loaded.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Reset empties the mirror after a paid checkout and discards any load
// still in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.loadSeq++
}

// Close detaches the store. Results of calls still in flight are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// indexOf finds the position of item's line, which may have moved since
// item was read. It must be called with s.mu held.
func (s *Store) indexOf(item LineItem) int {
	for i, it := range s.items {
		if it.line == item.line {
			return i
		}
	}
	return -1
}
