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

package main

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/address"
	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/validator"
)

// sessionHandler reports who is logged in (GET /api/session).
func (fe *frontendServer) sessionHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh := fe.currentShopper(r, log)
	u, ok := sh.session.User()
	body := map[string]interface{}{
		"isLoggedIn": ok,
		"loading":    sh.session.Loading(),
		"cartCount":  sh.badge.Count(),
	}
	if ok {
		body["user"] = u
	}
	writeJSON(log, w, http.StatusOK, body)
}

// loginHandler logs in against the backend (POST /api/login) and relays the
// backend's session cookies to the browser.
func (fe *frontendServer) loginHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	var payload validator.LoginPayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	lr, cookies, err := fe.backend.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "login failed"), backendStatus(err))
		return
	}
	if !lr.Success {
		msg := lr.Message
		if msg == "" {
			msg = "invalid email or password"
		}
		renderHTTPError(log, r, w, errors.New(msg), http.StatusUnauthorized)
		return
	}
	for _, c := range cookies {
		c.Path, c.Domain = "/", ""
		http.SetCookie(w, c)
	}

	// Later calls in this request must already carry the new session.
	ctx := backend.WithCookies(r.Context(), cookies)
	user := lr.User
	if user == nil {
		st, err := fe.backend.CheckAuth(ctx)
		if err != nil || !st.IsLoggedIn || st.User == nil {
			renderHTTPError(log, r, w, errors.New("backend did not confirm the new session"), http.StatusBadGateway)
			return
		}
		user = st.User
	}

	sh := fe.shoppers.get(sessionID(r))
	sh.session.LogIn(*user)
	log.WithField("user", user.ID).Info("user logged in successfully")
	if err := loadCart(ctx, sh, *user); err != nil {
		log.WithField("error", err).Warn("could not load cart after login")
	}

	writeJSON(log, w, http.StatusOK, map[string]interface{}{
		"user":      user,
		"cartCount": sh.badge.Count(),
	})
}

// signupHandler registers a new account (POST /api/signup).
func (fe *frontendServer) signupHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	var payload validator.SignupPayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	msg, err := fe.backend.Signup(r.Context(), backend.SignupRequest{
		Name:        payload.Name,
		Email:       payload.Email,
		Password:    payload.Password,
		Address:     payload.Address,
		PhoneNumber: payload.PhoneNumber,
	})
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "registration failed"), backendStatus(err))
		return
	}
	log.WithField("email", payload.Email).Info("user registered successfully")
	writeJSON(log, w, http.StatusCreated, map[string]string{"message": msg})
}

// logoutHandler ends both the backend session and the storefront's memory
// of this browser (POST /api/logout).
func (fe *frontendServer) logoutHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	if err := fe.backend.Logout(r.Context()); err != nil {
		log.WithField("error", err).Warn("backend logout failed")
	}
	clearBackendCookies(w, r)
	fe.shoppers.drop(sessionID(r))
	writeJSON(log, w, http.StatusOK, map[string]bool{"isLoggedIn": false})
}

// profileHandler saves the shopper's address and phone (PUT /api/profile).
func (fe *frontendServer) profileHandler(w http.ResponseWriter, r *http.Request) {
	log := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger)
	sh, _, ok := fe.requireUser(w, r, log)
	if !ok {
		return
	}
	var payload validator.ProfilePayload
	if err := decodeJSON(r, &payload); err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	a := payload.Address
	u, err := fe.backend.UpdateProfile(r.Context(), backend.ProfileUpdate{
		Address: address.Address{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip},
		Phone:   payload.Phone,
	})
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to update profile"), backendStatus(err))
		return
	}
	if u != nil {
		sh.session.SetUser(*u)
	}
	current, _ := sh.session.User()
	writeJSON(log, w, http.StatusOK, map[string]interface{}{"user": current})
}

// clearBackendCookies expires every cookie the storefront relayed from the
// backend.
func clearBackendCookies(w http.ResponseWriter, r *http.Request) {
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, cookiePrefix) {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:   c.Name,
			Value:  "",
			MaxAge: -1,
			Path:   "/",
		})
	}
}
