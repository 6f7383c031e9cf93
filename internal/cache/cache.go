package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the outcome of a cache lookup.
type Status int

const (
	// Miss means the cache answered and the key is absent or unreadable.
	Miss Status = iota
	// Hit means Value holds the stored payload.
	Hit
	// Unavailable means the cache could not be reached. Callers go to the source.
	Unavailable
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "unavailable"
	}
}

// Result carries a lookup outcome. Value is only set on Hit.
type Result struct {
	Status Status
	Value  json.RawMessage
}

// Cache is a JSON key/value store with TTL. No method returns an error:
// failures degrade to Unavailable / false and the caller carries on.
type Cache interface {
	// IsAvailable reports whether the backend is reachable, re-probing if the
	// last operation marked it down.
	IsAvailable(ctx context.Context) bool
	// Check pings the backend now, bypassing the cached flag.
	Check(ctx context.Context) bool
	Get(ctx context.Context, key string) Result
	// Set serializes value as JSON. ttl <= 0 uses the default TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	// SetRaw stores already-encoded JSON byte for byte.
	SetRaw(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
	// Clear removes every key owned by this cache.
	Clear(ctx context.Context) bool
	Close() error
}

// Disabled is a Cache that is never available. Used when caching is switched off.
type Disabled struct{}

func (Disabled) IsAvailable(context.Context) bool { return false }

func (Disabled) Check(context.Context) bool { return false }

func (Disabled) Get(context.Context, string) Result { return Result{Status: Unavailable} }

func (Disabled) Set(context.Context, string, any, time.Duration) bool { return false }

func (Disabled) SetRaw(context.Context, string, json.RawMessage, time.Duration) bool { return false }

func (Disabled) Delete(context.Context, ...string) bool { return false }

func (Disabled) Clear(context.Context) bool { return false }

func (Disabled) Close() error { return nil }
