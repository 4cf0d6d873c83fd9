// Package cache stores previously computed translations and dictionary
// entries keyed by a fingerprint of the request. The backing store is
// volatile and best-effort: a miss only costs a network round trip, so no
// caller treats this as durable state.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quicktrans/quicktransd/internal/hashkey"
	"github.com/quicktrans/quicktransd/internal/models"
)

const (
	translationPrefix = "cache_"
	dictionaryPrefix  = "dict_"
)

// ResultCache wraps the shared Redis client. All methods tolerate a nil
// receiver or client so a cache-less deployment degrades to pass-through.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a ResultCache. A non-positive ttl means entries live until the
// store evicts them.
func New(client *redis.Client, ttl time.Duration) *ResultCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ResultCache{client: client, ttl: ttl}
}

// TranslationKey fingerprints a translation request. Identical
// (text, target) pairs always map to the identical key.
func TranslationKey(text, targetLanguage string) string {
	return translationPrefix + hashkey.String(text) + "_" + targetLanguage
}

// DictionaryKey fingerprints a context-free word lookup. Word case is
// normalized so "Word" and "word" share an entry.
func DictionaryKey(word string) string {
	return dictionaryPrefix + strings.ToLower(word)
}

// DictionaryContextKey fingerprints a lookup scoped to a sentence; distinct
// contexts yield distinct entries for the same word.
func DictionaryContextKey(word, context string) string {
	return dictionaryPrefix + "ctx_" + strings.ToLower(word) + "_" + hashkey.String(context)
}

// GetTranslation returns the cached translation for key, if present.
func (c *ResultCache) GetTranslation(ctx context.Context, key string) (string, bool) {
	data, ok := c.get(ctx, key)
	return string(data), ok
}

// PutTranslation stores a successful translation. Failures never reach
// here: callers only write after a fully successful result.
func (c *ResultCache) PutTranslation(ctx context.Context, key, translation string) {
	c.put(ctx, key, []byte(translation))
}

// GetDictionaryEntry returns the cached entry for key, if present.
func (c *ResultCache) GetDictionaryEntry(ctx context.Context, key string) (models.DictionaryEntry, bool) {
	data, ok := c.get(ctx, key)
	if !ok {
		return models.DictionaryEntry{}, false
	}
	var entry models.DictionaryEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Definition == "" {
		// Entries written before the structured format are plain strings.
		return models.DictionaryEntry{Definition: string(data)}, true
	}
	return entry, true
}

// PutDictionaryEntry stores a successful lookup.
func (c *ResultCache) PutDictionaryEntry(ctx context.Context, key string, entry models.DictionaryEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	c.put(ctx, key, data)
}

func (c *ResultCache) get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil || key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *ResultCache) put(ctx context.Context, key string, value []byte) {
	if c == nil || c.client == nil || key == "" || len(value) == 0 {
		return
	}
	c.client.Set(ctx, key, value, c.ttl)
}

// Stats summarizes the cached corpus for the diagnostics endpoint.
type Stats struct {
	TotalCount int   `json:"totalCount"`
	TotalBytes int64 `json:"totalBytes"`
}

// Stats scans the cache key space. The scan is cursor-based so a large
// cache never blocks the store.
func (c *ResultCache) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if c == nil || c.client == nil {
		return stats, nil
	}
	for _, prefix := range []string{translationPrefix, dictionaryPrefix} {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			stats.TotalCount++
			if size, err := c.client.StrLen(ctx, iter.Val()).Result(); err == nil {
				stats.TotalBytes += size
			}
		}
		if err := iter.Err(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Clear removes every cached translation and dictionary entry and returns
// the number of deleted keys.
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	deleted := 0
	for _, prefix := range []string{translationPrefix, dictionaryPrefix} {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			deleted += int(n)
			if err != nil {
				return deleted, err
			}
		}
	}
	return deleted, nil
}
