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

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Company-KERL/Kerl/backend"
)

type countingSource struct {
	lists, gets int
	err         error
}

func (c *countingSource) Products(ctx context.Context) ([]backend.Product, error) {
	c.lists++
	if c.err != nil {
		return nil, c.err
	}
	return testProducts, nil
}

func (c *countingSource) Product(ctx context.Context, id string) (*backend.Product, error) {
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	for _, p := range testProducts {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, errors.New("not found")
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, ttl), mr
}

func TestServiceReadsThroughRedis(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	src := &countingSource{}
	log, _ := test.NewNullLogger()
	svc := NewService(src, cache, log)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ps, err := svc.Products(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(ps) != 2 || !ps[1].Prices[0].Equal(decimal.NewFromInt(6000)) {
			t.Fatalf("products = %+v", ps)
		}
	}
	if src.lists != 1 {
		t.Errorf("source listed %d times, want 1", src.lists)
	}
	if !mr.Exists("catalog:products") {
		t.Error("products not stored under catalog:products")
	}

	mr.FastForward(2 * time.Minute)
	if _, err := svc.Products(ctx); err != nil {
		t.Fatal(err)
	}
	if src.lists != 2 {
		t.Errorf("expired entry not refetched, lists = %d", src.lists)
	}
}

func TestServiceProductIsCached(t *testing.T) {
	cache, _ := newRedisCache(t, time.Minute)
	src := &countingSource{}
	log, _ := test.NewNullLogger()
	svc := NewService(src, cache, log)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		p, err := svc.Product(ctx, "fc")
		if err != nil || p.Name != "Floor Cleaner" {
			t.Fatalf("Product = %+v, %v", p, err)
		}
	}
	if src.gets != 1 {
		t.Errorf("source fetched %d times, want 1", src.gets)
	}
}

func TestServiceSurvivesCacheOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()
	cache := NewRedisCache(rdb, time.Minute)
	src := &countingSource{}
	log, hook := test.NewNullLogger()
	svc := NewService(src, cache, log)
	ps, err := svc.Products(context.Background())
	if err != nil || len(ps) != 2 {
		t.Fatalf("Products = %v, %v", ps, err)
	}
	if len(hook.AllEntries()) == 0 {
		t.Error("cache failure was not logged")
	}
}

func TestServiceWithoutCache(t *testing.T) {
	src := &countingSource{}
	log, _ := test.NewNullLogger()
	svc := NewService(src, nil, log)
	vs, err := svc.Browse(context.Background(), Filter{Search: "floor", Range: DefaultRange})
	if err != nil || len(vs) != 2 {
		t.Fatalf("Browse = %v, %v", vs, err)
	}
	src.err = errors.New("backend down")
	if _, err := svc.Browse(context.Background(), Filter{Range: DefaultRange}); err == nil {
		t.Error("expected source error without a cache")
	}
}
