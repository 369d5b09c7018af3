// Package cache memoizes adapter results by input fingerprint.
//
// Writes are last-writer-wins: concurrent calls for the same fingerprint may
// overwrite each other, which is acceptable because reprocessing always
// invalidates before it repopulates.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"verity/internal/verification/adapters"
	"verity/pkg/platform/sentinel"
)

// Store is a TTL key/value store. Get returns sentinel.ErrNotFound on a miss
// or an expired entry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Fingerprint is a stable key for an adapter input. Parts are length-prefixed
// so ("ab","c") and ("a","bc") never collide.
func Fingerprint(kind adapters.Kind, parts ...string) string {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%d:%s;", len(p), p)
	}
	return string(kind) + ":" + hex.EncodeToString(h.Sum(nil))
}

// GetJSON decodes a cached value. ok is false on a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the caller.
		return nil, false, nil
	}
	return &v, true, nil
}

// SetJSON encodes and stores v. A non-positive ttl skips caching.
func SetJSON[T any](ctx context.Context, s Store, key string, v *T, ttl time.Duration) error {
	if ttl <= 0 || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.Set(ctx, key, raw, ttl)
}
