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

	"github.com/sirupsen/logrus"

	"github.com/Company-KERL/Kerl/backend"
)

type Source interface {
	Products(ctx context.Context) ([]backend.Product, error)
	Product(ctx context.Context, id string) (*backend.Product, error)
}

// Service reads the catalog through an optional cache. The cache never
// fails a read: its errors are logged and the source is used instead.
type Service struct {
	src   Source
	cache Cache
	log   logrus.FieldLogger
}

// NewService returns a Service. cache may be nil.
func NewService(src Source, cache Cache, log logrus.FieldLogger) *Service {
	return &Service{src: src, cache: cache, log: log}
}

func (s *Service) Products(ctx context.Context) ([]backend.Product, error) {
	var ps []backend.Product
	if s.lookup(ctx, "products", &ps) {
		return ps, nil
	}
	ps, err := s.src.Products(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, "products", ps)
	return ps, nil
}

func (s *Service) Product(ctx context.Context, id string) (*backend.Product, error) {
	key := "product:" + id
	var p backend.Product
	if s.lookup(ctx, key, &p) {
		return &p, nil
	}
	got, err := s.src.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, got)
	return got, nil
}

// Browse lists the variants that pass f.
func (s *Service) Browse(ctx context.Context, f Filter) ([]Variant, error) {
	ps, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(Variants(ps)), nil
}

func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Warn("catalog cache read failed")
		return false
	}
	return ok
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.WithField("key", key).WithError(err).Warn("catalog cache write failed")
	}
}
