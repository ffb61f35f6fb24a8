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
	"errors"
	"fmt"

	"github.com/Company-KERL/Kerl/validator"
)

var (
	// ErrAddressRequired is returned when the delivery address is missing
	// or has a blank field.
	ErrAddressRequired = validator.NewValidationError("address", "required")

	ErrEmptyCart = errors.New("checkout: cart is empty")

	// ErrAbandoned ends an attempt whose payment widget never reported back.
	ErrAbandoned = errors.New("checkout: payment widget abandoned")

	// ErrUnknownPayment is returned for a callback naming a provider order
	// that has no open widget.
	ErrUnknownPayment = errors.New("checkout: no open payment with that provider order id")
)

// PaymentProviderError is the failure reported by the payment widget.
type PaymentProviderError struct {
	ProviderOrderID string
	Reason          string
}

func (e *PaymentProviderError) Error() string {
	return fmt.Sprintf("payment %s failed: %s", e.ProviderOrderID, e.Reason)
}

// ReconciliationError means the widget reported success but the backend did
// not acknowledge the payment. The cart is kept.
type ReconciliationError struct {
	OrderID string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment for order %s not acknowledged: %v", e.OrderID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }
