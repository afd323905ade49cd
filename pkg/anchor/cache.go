// Copyright 2022 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/eudiw/lote-trust/pkg/model"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Source is the read-only query surface IsChainTrustedForContext and
// callers consume; *Lookup implements it. Cached wraps any Source, so it
// composes on top of the core protocol rather than being baked into it
// (spec.md §9 "Caching decorator").
type Source interface {
	SupportedContexts() []model.Purpose
	GetTrustAnchors(ctx context.Context, purpose model.Purpose) QueryResult
}

// Cached is a pure decorator around a Source: it collapses concurrent
// identical GetTrustAnchors calls into one computation (single-flight) and
// refreshes entries after ttl. Lifetime is explicit via Close, not
// finalizer-driven (spec.md §5, §9).
type Cached struct {
	inner Source
	store *lru.LRU[model.Purpose, QueryResult]
	group singleflight.Group
}

// NewCached wraps inner with a TTL cache sized for expectedQueries distinct
// purposes.
func NewCached(inner Source, ttl time.Duration, expectedQueries int) *Cached {
	return &Cached{
		inner: inner,
		store: lru.NewLRU[model.Purpose, QueryResult](expectedQueries, nil, ttl),
	}
}

func (c *Cached) SupportedContexts() []model.Purpose { return c.inner.SupportedContexts() }

// GetTrustAnchors serves from cache when fresh, otherwise computes once per
// purpose even under concurrent callers.
func (c *Cached) GetTrustAnchors(ctx context.Context, purpose model.Purpose) QueryResult {
	if v, ok := c.store.Get(purpose); ok {
		return v
	}

	key := fmt.Sprintf("%v", purpose)
	v, _, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(purpose); ok {
			return v, nil
		}
		result := c.inner.GetTrustAnchors(ctx, purpose)
		c.store.Add(purpose, result)
		return result, nil
	})
	return v.(QueryResult)
}

// Close purges every cached entry. A GetTrustAnchors computation already in
// flight is not interrupted, and its result is still stored once it returns.
func (c *Cached) Close() {
	c.store.Purge()
}
