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

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/cart"
	"github.com/Company-KERL/Kerl/catalog"
	"github.com/Company-KERL/Kerl/checkout"
	"github.com/Company-KERL/Kerl/money"
	"github.com/Company-KERL/Kerl/orders"
	"github.com/Company-KERL/Kerl/session"
	"github.com/Company-KERL/Kerl/validator"
)

var (
	errLoginRequired     = errors.New("login required")
	errAttemptInProgress = errors.New("a checkout is already in progress")
)

func (fe *frontendServer) productsHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	q := r.URL.Query()
	f := catalog.Filter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Range:    catalog.RangePreset(q.Get("range")),
	}
	log.WithField("search", f.Search).WithField("category", f.Category).Debug("browsing products")

	vs, err := fe.catalog.Browse(r.Context(), f)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve products"), backendStatus(err))
		return
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"products":     vs,
		"result_count": len(vs),
	})
}

func (fe *frontendServer) productHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	id := mux.Vars(r)["id"]
	if id == "" {
		renderHTTPError(log, r, w, errors.New("product id not specified"), http.StatusBadRequest)
		return
	}
	log.WithField("id", id).Debug("serving product")

	p, err := fe.catalog.Product(r.Context(), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), backendStatus(err))
		return
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"product":  p,
		"variants": catalog.Variants([]backend.Product{*p}),
	})
}

type cartLineView struct {
	Index     int             `json:"index"`
	Product   backend.Product `json:"product"`
	Size      string          `json:"size,omitempty"`
	SizeIndex int             `json:"selectedSizeIndex"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartView struct {
	Items        []cartLineView  `json:"items"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"totalDisplay"`
	Count        int             `json:"cartCount"`
}

func (fe *frontendServer) cartView(sh *shopper) cartView {
	items := sh.cart.Items()
	v := cartView{
		Items: make([]cartLineView, len(items)),
		Total: sh.cart.Total(),
		Count: sh.badge.Count(),
	}
	for i, it := range items {
		v.Items[i] = cartLineView{
			Index:     i,
			Product:   it.Product,
			Size:      it.Size(),
			SizeIndex: it.SizeIndex,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice(),
			Subtotal:  it.Subtotal(),
		}
	}
	v.TotalDisplay = money.Render(v.Total, fe.cfg.Payment.Currency)
	return v
}

// ensureCart loads the cart the first time it is needed for u.
func ensureCart(ctx context.Context, sh *shopper, u backend.User) error {
	if sh.cart.UserID() == u.ID {
		return nil
	}
	return loadCart(ctx, sh, u)
}

func loadCart(ctx context.Context, sh *shopper, u backend.User) error {
	if err := sh.cart.Load(ctx, u.ID); err != nil && !errors.Is(err, cart.ErrSuperseded) {
		return err
	}
	return nil
}

func (fe *frontendServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	if err := loadCart(r.Context(), sh, u); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), backendStatus(err))
		return
	}
	_ = sh.badge.Sync(r.Context(), u.ID)
	writeJSON(log, w, http.StatusOK, fe.cartView(sh))
}

func (fe *frontendServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	var payload validator.AddToCartPayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("product", payload.ProductID).WithField("quantity", payload.Quantity).Debug("adding to cart")

	p, err := fe.catalog.Product(r.Context(), payload.ProductID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve product"), backendStatus(err))
		return
	}
	if err := sh.cart.Add(r.Context(), u.ID, *p, payload.SizeIndex, payload.Quantity); err != nil {
		code := backendStatus(err)
		if errors.Is(err, cart.ErrNoSuchSize) || errors.Is(err, cart.ErrInvalidQuantity) {
			code = http.StatusUnprocessableEntity
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to add to cart"), code)
		return
	}
	writeJSON(log, w, http.StatusOK, fe.cartView(sh))
}

func cartIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		return 0, errors.New("invalid cart item index")
	}
	return i, nil
}

func (fe *frontendServer) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	index, err := cartIndex(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload := validator.SetQuantityPayload{Index: index}
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	payload.Index = index
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	if err := ensureCart(r.Context(), sh, u); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), backendStatus(err))
		return
	}

	if err := sh.cart.SetQuantity(r.Context(), payload.Index, payload.Quantity); err != nil {
		code := backendStatus(err)
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			code = http.StatusUnprocessableEntity
		case errors.Is(err, cart.ErrNoSuchItem):
			code = http.StatusNotFound
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to update cart item"), code)
		return
	}
	writeJSON(log, w, http.StatusOK, fe.cartView(sh))
}

// removeCartItemHandler deletes a line once the shopper has confirmed it
// with ?confirm=true. An optional productId must name the line's product.
func (fe *frontendServer) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	index, err := cartIndex(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := ensureCart(r.Context(), sh, u); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), backendStatus(err))
		return
	}
	q := r.URL.Query()
	confirmed, productID := q.Get("confirm") == "true", q.Get("productId")
	confirm := func(it cart.LineItem) bool {
		return confirmed && (productID == "" || productID == it.Product.ID)
	}

	if err := sh.cart.RemoveItem(r.Context(), index, confirm); err != nil {
		code := backendStatus(err)
		switch {
		case errors.Is(err, cart.ErrNotConfirmed):
			code = http.StatusPreconditionRequired
		case errors.Is(err, cart.ErrNoSuchItem):
			code = http.StatusNotFound
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to remove cart item"), code)
		return
	}
	writeJSON(log, w, http.StatusOK, fe.cartView(sh))
}

func (fe *frontendServer) cartCountHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh := fe.currentShopper(r, log)
	if id := sh.session.UserID(); id != "" {
		_ = sh.badge.Sync(r.Context(), id)
	}
	writeJSON(log, w, http.StatusOK, map[string]int{"cartLength": sh.badge.Count()})
}

type addressView struct {
	address.Address
	Formatted string `json:"formatted"`
}

func (fe *frontendServer) addressesHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	_, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	saved, err := fe.backend.Addresses(r.Context(), u.ID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve addresses"), backendStatus(err))
		return
	}
	out := make([]addressView, len(saved))
	for i, a := range saved {
		out[i] = addressView{Address: a, Formatted: address.Format(a)}
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{"addresses": out})
}

type attemptView struct {
	State   checkout.State           `json:"state"`
	OrderID string                   `json:"orderId,omitempty"`
	Session *checkout.PaymentSession `json:"session,omitempty"`
	Widget  *checkout.WidgetOptions  `json:"widget,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

func viewAttempt(a *checkout.Attempt) attemptView {
	v := attemptView{State: a.State()}
	if o := a.Order(); o != nil {
		v.OrderID = o.ID
	}
	if s := a.Session(); s.ProviderOrderID != "" {
		v.Session = &s
		if v.State == checkout.PaymentWidgetOpen {
			opts := a.WidgetOptions()
			v.Widget = &opts
		}
	}
	if err := a.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

// attemptStatus is the response code for an attempt in its current state.
func attemptStatus(a *checkout.Attempt) int {
	if a.State() != checkout.Failed {
		return http.StatusOK
	}
	var (
		perr *checkout.PaymentProviderError
		rerr *checkout.ReconciliationError
	)
	switch err := a.Err(); {
	case errors.As(err, &perr):
		return http.StatusPaymentRequired
	case errors.As(err, &rerr):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrAbandoned):
		return http.StatusRequestTimeout
	default:
		return backendStatus(err)
	}
}

// placeOrderHandler starts a checkout attempt and answers once the payment
// widget is ready to be shown.
func (fe *frontendServer) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	var payload validator.CheckoutPayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	var addr address.Address
	if p := payload.Address; p != nil {
		addr = address.Address{Street: p.Street, City: p.City, State: p.State, Zip: p.Zip}
	} else {
		saved, err := fe.backend.Addresses(r.Context(), u.ID)
		if err != nil {
			renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve addresses"), backendStatus(err))
			return
		}
		var found bool
		if addr, found = address.Resolve(saved, payload.SavedAddress); !found {
			renderHTTPError(log, r, w, validator.NewValidationError("savedAddress", "unknown"), http.StatusUnprocessableEntity)
			return
		}
	}

	if err := loadCart(r.Context(), sh, u); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), backendStatus(err))
		return
	}
	log.WithField("address", addr.String()).Info("placing order")

	// The attempt outlives this request but keeps its cookies and trace.
	attemptCtx := context.WithoutCancel(r.Context())
	a, err := sh.beginAttempt(func() (*checkout.Attempt, error) {
		return fe.checkout.Start(attemptCtx, checkout.Request{
			UserID:  u.ID,
			Items:   sh.cart.Items(),
			Address: addr,
			Cart:    sh.cart,
			Badge:   sh.badge,
		})
	})
	if err != nil {
		code := http.StatusUnprocessableEntity
		if errors.Is(err, errAttemptInProgress) {
			code = http.StatusConflict
		}
		renderHTTPError(log, r, w, errors.Wrap(err, "could not start checkout"), code)
		return
	}

	select {
	case <-a.WidgetOpened():
	case <-r.Context().Done():
		return
	}
	writeJSON(log, w, attemptStatus(a), viewAttempt(a))
}

// paymentCallbackHandler relays the payment widget's outcome from the
// browser and answers once the attempt is over.
func (fe *frontendServer) paymentCallbackHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, _, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	var payload validator.PaymentCallbackPayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	a := sh.currentAttempt()
	if a == nil || a.Session().ProviderOrderID != payload.ProviderOrderID {
		renderHTTPError(log, r, w, checkout.ErrUnknownPayment, http.StatusNotFound)
		return
	}

	var err error
	if payload.Reason != "" {
		err = fe.bridge.Fail(payload.ProviderOrderID, payload.Reason)
	} else {
		err = fe.bridge.Succeed(payload.ProviderOrderID, checkout.SuccessResponse{
			PaymentID: payload.PaymentID,
			OrderID:   payload.ProviderOrderID,
			Signature: payload.Signature,
		})
	}
	if err != nil {
		if a.State().Terminal() {
			writeJSON(log, w, http.StatusConflict, viewAttempt(a))
			return
		}
		renderHTTPError(log, r, w, err, http.StatusNotFound)
		return
	}

	select {
	case <-a.Done():
	case <-r.Context().Done():
		return
	}
	writeJSON(log, w, attemptStatus(a), viewAttempt(a))
}

func (fe *frontendServer) checkoutStatusHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, _, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	a := sh.currentAttempt()
	if a == nil {
		renderHTTPError(log, r, w, errors.New("no checkout attempt"), http.StatusNotFound)
		return
	}
	writeJSON(log, w, http.StatusOK, viewAttempt(a))
}

func (fe *frontendServer) orderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	log.Debug("view order history")
	_, u, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	history, err := fe.backend.Orders(r.Context(), u.ID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve order history"), backendStatus(err))
		return
	}
	writeJSON(log, w, http.StatusOK, map[string]interface{}{"orders": orders.Summarize(history)})
}

// currentShopper returns the session's shopper, asking the backend who it
// belongs to on first use.
func (fe *frontendServer) currentShopper(r *http.Request, log logrus.FieldLogger) *shopper {
	sh := fe.shoppers.get(sessionID(r))
	if sh.session.Loading() {
		session.Check(r.Context(), fe.backend, sh.session, log)
	}
	return sh
}

func (fe *frontendServer) requireUser(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger) (*shopper, backend.User, bool) {
	sh := fe.currentShopper(r, log)
	u, ok := sh.session.User()
	if !ok {
		renderHTTPError(log, r, w, errLoginRequired, http.StatusUnauthorized)
		return nil, backend.User{}, false
	}
	return sh, u, true
}

// backendStatus passes client errors reported by the backend through and
// maps everything else to 500.
func backendStatus(err error) int {
	if code := backend.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	return http.StatusInternalServerError
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	entry := log.WithField("error", err).WithField("status_code", code)
	if code >= http.StatusInternalServerError {
		entry.Error("request error")
	} else {
		entry.Warn("request rejected")
	}
	body := map[string]interface{}{
		"error":       err.Error(),
		"status_code": code,
		"status":      http.StatusText(code),
		"request_id":  r.Context().Value(ctxKeyRequestID{}),
	}
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	writeJSON(log, w, code, body)
}

func writeJSON(log logrus.FieldLogger, w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "malformed request body")
	}
	return nil
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}
