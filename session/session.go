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

// Package session tracks which user, if any, a browser session belongs to.
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/backend"
)

// State starts out loading and anonymous. LogIn and LogOut both end the
// loading phase.
type State struct {
	mu      sync.RWMutex
	user    *backend.User
	loading bool
	onLogin []func(backend.User)
}

func NewState() *State {
	return &State{loading: true}
}

// OnLogin registers fn to run, outside the lock, on each LogIn.
func (s *State) OnLogin(fn func(backend.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogin = append(s.onLogin, fn)
}

func (s *State) LogIn(u backend.User) {
	s.mu.Lock()
	s.user = &u
	s.loading = false
	hooks := append([]func(backend.User){}, s.onLogin...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(u)
	}
}

func (s *State) LogOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.loading = false
}

// User returns a copy of the logged-in user.
func (s *State) User() (backend.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return backend.User{}, false
	}
	return *s.user, true
}

// UserID is empty for an anonymous session.
func (s *State) UserID() string {
	u, _ := s.User()
	return u.ID
}

func (s *State) LoggedIn() bool {
	_, ok := s.User()
	return ok
}

func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetUser replaces the stored user record, e.g. after a profile update,
// without running the login hooks.
func (s *State) SetUser(u backend.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user = &u
	}
}

type Authenticator interface {
	CheckAuth(ctx context.Context) (*backend.AuthStatus, error)
}

// Check asks the backend who the session belongs to. Any failure leaves the
// session logged out; either way loading is over when Check returns.
func Check(ctx context.Context, auth Authenticator, s *State, log logrus.FieldLogger) {
	st, err := auth.CheckAuth(ctx)
	switch {
	case err != nil:
		log.WithError(err).Debug("check-auth failed, treating session as anonymous")
		s.LogOut()
	case st.IsLoggedIn && st.User != nil:
		s.LogIn(*st.User)
	default:
		s.LogOut()
	}
}
