// Package kv defines the opaque key/value store the preheater registry
// writes into, and the well-known key builders downstream consumers read
// from. Redis is the implementation: it is the recurring KV choice across
// this module's reference corpus and its native TTL support (SET ... EX)
// matches the spec's "string or hash values, TTL" contract directly.
package kv

import (
	"context"
	"time"
)

// Store is the opaque key/value interface the preheater tasks write
// through. Values are always UTF-8 strings (or JSON-encoded lists of
// them); TTL is mandatory on every write per the preheat layout contract.
type Store interface {
	// Set writes a single string value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetList writes an ordered list of string values under key (JSON
	// array on the wire) with the given TTL.
	SetList(ctx context.Context, key string, values []string, ttl time.Duration) error
	// Get reads a single string value. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// GetList reads an ordered list of string values written by SetList.
	GetList(ctx context.Context, key string) (values []string, ok bool, err error)
}

// PreheatTTL is the TTL applied to every key the preheater registry
// writes, per the K/V layout contract.
const PreheatTTL = 36 * time.Hour

// keyPrefixes are named constants so the rest of the code refers to
// builder functions below, never to raw string concatenation.
const (
	prefixPreclose = "index:preclose:"
	prefixNineTurn = "strategy:nineturn:"
	prefixMA       = "strategy:ma:"
)

// PrecloseKey builds the key for an index's previous-close cache entry.
func PrecloseKey(windCode string) string { return prefixPreclose + windCode }

// NineTurnKey builds the key for a symbol's nine-turn sequence cache entry.
func NineTurnKey(windCode string) string { return prefixNineTurn + windCode }

// MovingAverageKey builds the key for a symbol's moving-average cache entry.
func MovingAverageKey(windCode string) string { return prefixMA + windCode }
