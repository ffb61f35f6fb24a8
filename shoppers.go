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
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/backend"
	"github.com/Company-KERL/Kerl/cart"
	"github.com/Company-KERL/Kerl/checkout"
	"github.com/Company-KERL/Kerl/session"
)

const badgeSyncTimeout = 10 * time.Second

// shopper is everything the storefront remembers about one browser session.
type shopper struct {
	session *session.State
	cart    *cart.Store
	badge   *cart.Badge

	mu      sync.Mutex
	attempt *checkout.Attempt
}

func (s *shopper) currentAttempt() *checkout.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// beginAttempt runs start and keeps the attempt it returns, unless an
// earlier attempt is still running.
func (s *shopper) beginAttempt(start func() (*checkout.Attempt, error)) (*checkout.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != nil && !s.attempt.State().Terminal() {
		return nil, errAttemptInProgress
	}
	a, err := start()
	if err != nil {
		return nil, err
	}
	s.attempt = a
	return a, nil
}

func (s *shopper) close() {
	s.cart.Close()
	s.badge.Close()
}

// shopperRegistry holds a bounded number of shoppers and forgets those idle
// for longer than the configured TTL.
type shopperRegistry struct {
	be  *backend.Client
	log logrus.FieldLogger

	mu    sync.Mutex
	cache *expirable.LRU[string, *shopper]
}

func newShopperRegistry(size int, idle time.Duration, be *backend.Client, log logrus.FieldLogger) *shopperRegistry {
	reg := &shopperRegistry{be: be, log: log}
	reg.cache = expirable.NewLRU[string, *shopper](size, func(id string, s *shopper) {
		s.close()
	}, idle)
	return reg
}

// get returns the shopper for sessionID, creating it on first use. Each
// access restarts its idle timer.
func (reg *shopperRegistry) get(sessionID string) *shopper {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if s, ok := reg.cache.Get(sessionID); ok {
		reg.cache.Add(sessionID, s)
		return s
	}
	log := reg.log.WithField("session", sessionID)
	badge := cart.NewBadge(reg.be, log)
	s := &shopper{
		session: session.NewState(),
		cart:    cart.NewStore(reg.be, badge, log),
		badge:   badge,
	}
	s.session.OnLogin(func(u backend.User) {
		ctx, cancel := context.WithTimeout(context.Background(), badgeSyncTimeout)
		defer cancel()
		_ = badge.Sync(ctx, u.ID)
	})
	reg.cache.Add(sessionID, s)
	return s
}

// drop forgets sessionID; the next request starts over.
func (reg *shopperRegistry) drop(sessionID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.cache.Remove(sessionID)
}

func (reg *shopperRegistry) len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.cache.Len()
}
