// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
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

package common

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

// Cache is a two-tier cache: a local LRU always, redis when a URL is
// configured. Entries expire after the TTL passed to NewCache. The cache is
// an explicit object handed to components that need it; there is no
// package-level cache state.
type Cache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// NewCache creates a cache with the given local size and entry TTL. redisURL
// may be empty, in which case only the local tier is used.
func NewCache(size int, ttl time.Duration, redisURL string) (*Cache, error) {
	local, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		local: local,
		ttl:   ttl,
	}

	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, err
		}
		c.rdb = redis.NewClient(opt)
	}

	return c, nil
}

// Set stores a value under key in all configured tiers
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	c.local.Add(key, cacheEntry{
		value:   value,
		expires: time.Now().Add(c.ttl),
	})

	if c.rdb != nil {
		return c.rdb.Set(ctx, key, value, c.ttl).Err()
	}
	return nil
}

// Get retrieves a value; the second return is false on miss or expiry
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.local.Get(key); ok {
		entry := v.(cacheEntry)
		if time.Now().Before(entry.expires) {
			return entry.value, true
		}
		c.local.Remove(key)
	}

	if c.rdb != nil {
		val, err := c.rdb.GetEx(ctx, key, c.ttl).Bytes()
		if err != nil {
			return nil, false
		}
		return val, true
	}

	return nil, false
}
