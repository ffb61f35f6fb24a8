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

package cart

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// LengthSource reports the number of line items in a user's remote cart.
type LengthSource interface {
	CartLength(ctx context.Context, userID string) (int, error)
}

// Badge is the count shown next to the cart icon. The only way to change
// it is to read the count back from the backend.
type Badge struct {
	src LengthSource
	log logrus.FieldLogger

	mu     sync.Mutex
	count  int
	synced string
	seq    uint64
	closed bool
}

func NewBadge(src LengthSource, log logrus.FieldLogger) *Badge {
	return &Badge{src: src, log: log}
}

// Sync fetches the count the first time a user is identified. It does
// nothing for an anonymous user or one already synced.
func (b *Badge) Sync(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	b.mu.Lock()
	done := b.synced == userID
	b.mu.Unlock()
	if done {
		return nil
	}
	return b.Refresh(ctx, userID)
}

// Refresh re-reads the count from the backend. A failed read leaves the
// previous count in place, and a read overtaken by a newer one is dropped.
func (b *Badge) Refresh(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	n, err := b.src.CartLength(ctx, userID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.log.WithField("user", userID).WithError(err).Warn("failed to refresh cart count")
		return err
	}
	if b.closed || seq != b.seq {
		return nil
	}
	b.count = n
	b.synced = userID
	return nil
}

func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Close stops the badge from applying results of reads still in flight.
func (b *Badge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
