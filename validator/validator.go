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

package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

type AddToCartPayload struct {
	ProductID string `json:"productId" validate:"required"`
	SizeIndex int    `json:"selectedSizeIndex" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
}

type SetQuantityPayload struct {
	Index    int `json:"index" validate:"gte=0"`
	Quantity int `json:"quantity" validate:"gte=1"`
}

type AddressPayload struct {
	Street string `json:"street" validate:"notblank"`
	City   string `json:"city" validate:"notblank"`
	State  string `json:"state" validate:"notblank"`
	Zip    string `json:"zip" validate:"notblank"`
}

// CheckoutPayload selects either a saved address, by its formatted form, or
// a newly entered one.
type CheckoutPayload struct {
	SavedAddress string          `json:"savedAddress"`
	Address      *AddressPayload `json:"address"`
}

type ProfilePayload struct {
	Address AddressPayload `json:"address"`
	Phone   string         `json:"phone" validate:"required,phone"`
}

type SignupPayload struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
	Address         string `json:"address"`
	PhoneNumber     string `json:"phoneNumber" validate:"required,phone"`
}

// PaymentCallbackPayload is what the browser relays from the payment
// widget. A failure carries Reason; a success carries the payment id and
// signature.
type PaymentCallbackPayload struct {
	ProviderOrderID string `json:"razorpay_order_id" validate:"required"`
	PaymentID       string `json:"razorpay_payment_id"`
	Signature       string `json:"razorpay_signature"`
	Reason          string `json:"reason"`
}

type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (p *AddToCartPayload) Validate() error   { return validate.Struct(p) }
func (p *SetQuantityPayload) Validate() error { return validate.Struct(p) }
func (p *AddressPayload) Validate() error     { return validate.Struct(p) }
func (p *ProfilePayload) Validate() error     { return validate.Struct(p) }
func (p *SignupPayload) Validate() error      { return validate.Struct(p) }
func (p *LoginPayload) Validate() error       { return validate.Struct(p) }

func (p *PaymentCallbackPayload) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Reason != "" {
		return nil
	}
	if p.PaymentID == "" {
		return NewValidationError("razorpay_payment_id", "required")
	}
	if p.Signature == "" {
		return NewValidationError("razorpay_signature", "required")
	}
	return nil
}

func (p *CheckoutPayload) Validate() error {
	if p.Address != nil {
		return p.Address.Validate()
	}
	if strings.TrimSpace(p.SavedAddress) == "" {
		return NewValidationError("address", "required")
	}
	return nil
}

// FieldError names one field that failed one rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// ValidationError reports input that blocks an action before anything is
// sent to the backend.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, tag string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Tag: tag}}}
}

func (e *ValidationError) Error() string {
	var msg strings.Builder
	for i, f := range e.Fields {
		if i > 0 {
			msg.WriteString("; ")
		}
		fmt.Fprintf(&msg, "Field '%s' is invalid: %s", f.Field, f.Tag)
	}
	return msg.String()
}

// ValidationErrorResponse converts the error returned by a payload's
// Validate into a *ValidationError.
func ValidationErrorResponse(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.New("invalid validation error")
	}
	out := &ValidationError{}
	for _, fe := range validationErrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out
}

// IsValidationError reports whether err, or anything it wraps, is a
// *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
