package cache

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Tiered reads from a hot cache first and falls back to a cold one. Cold
// hits are copied into the hot tier. Writes and deletes go to both tiers.
type Tiered struct {
	hot, cold Cache
	// BackfillTTL is the hot-tier TTL for values copied from the cold tier,
	// whose remaining lifetime is unknown.
	BackfillTTL time.Duration
	// Logger receives failed backfills at debug level. Nil discards them.
	Logger *log.Logger
}

// DefaultBackfillTTL is used when Tiered.BackfillTTL is zero.
const DefaultBackfillTTL = 10 * time.Minute

// NewTiered combines a hot and a cold cache.
func NewTiered(hot, cold Cache) *Tiered {
	return &Tiered{hot: hot, cold: cold, BackfillTTL: DefaultBackfillTTL}
}

// Get tries the hot tier, then the cold tier. Hot-tier errors are treated as
// misses so a flaky fast cache never hides the durable one.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := t.hot.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := t.cold.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	ttl := t.BackfillTTL
	if ttl <= 0 {
		ttl = DefaultBackfillTTL
	}
	// Backfill is best-effort; the cold value is returned either way.
	if err := t.hot.Set(ctx, key, data, ttl); err != nil && t.Logger != nil {
		t.Logger.Debug("hot cache backfill failed", "key", key, "err", err)
	}
	return data, true, nil
}

// Set writes both tiers.
func (t *Tiered) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return errors.Join(t.hot.Set(ctx, key, data, ttl), t.cold.Set(ctx, key, data, ttl))
}

// Delete removes key from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) error {
	return errors.Join(t.hot.Delete(ctx, key), t.cold.Delete(ctx, key))
}

// Close closes both tiers.
func (t *Tiered) Close() error {
	return errors.Join(t.hot.Close(), t.cold.Close())
}

var _ Cache = (*Tiered)(nil)
