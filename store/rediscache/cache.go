// Package rediscache caches computed loan quotes in Redis.
//
// Quoting is pure computation over the request terms, so identical terms
// always produce identical schedules and APRs - a natural cache. The
// cache is strictly an optimization: every method fails open, and a
// Redis outage degrades to recomputing the quote.
package rediscache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/warp/apr-engine/apr"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr string, ttl time.Duration) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func (c *Cache) Close() error { return c.client.Close() }

// Get returns the cached payload for a key, and whether it was present.
// Misses and Redis errors look the same to the caller: recompute.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *Cache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// QuoteKey derives a deterministic cache key from quote inputs. Decimals
// are normalized so 0.240 and 0.24 share a key.
func QuoteKey(principal, annualRate decimal.Decimal, f apr.Frequency, disbursed, firstPayment apr.Date) string {
	return fmt.Sprintf("quote:%s:%s:%s:%s:%s",
		normalize(principal), normalize(annualRate), f, disbursed, firstPayment)
}

// normalize strips trailing fractional zeros from a decimal's string
// form; String preserves the original scale, which would split keys.
func normalize(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimRight(strings.TrimRight(s, "0"), ".")
}
