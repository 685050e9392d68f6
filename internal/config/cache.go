package config

import (
	"context"

	"github.com/matzehuels/cursograph/pkg/cache"
	cgerrors "github.com/matzehuels/cursograph/pkg/errors"
)

// OpenCache builds the cache selected by the [cache] section. The file
// backend defaults to [DefaultCacheDir]; tiered puts a memory cache in
// front of mongo (or redis when no mongo URI is set).
func (c CacheConfig) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheMemory:
		return cache.NewMemoryCache(c.MemoryEntries), nil
	case CacheFile, "":
		dir := c.Dir
		if dir == "" {
			d, err := DefaultCacheDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	case CacheRedis:
		return c.openRedis(ctx)
	case CacheMongo:
		return c.openMongo(ctx)
	case CacheTiered:
		var (
			cold cache.Cache
			err  error
		)
		if c.Mongo.URI != "" {
			cold, err = c.openMongo(ctx)
		} else {
			cold, err = c.openRedis(ctx)
		}
		if err != nil {
			return nil, err
		}
		return cache.NewTiered(cache.NewMemoryCache(c.MemoryEntries), cold), nil
	}
	return nil, cgerrors.New(cgerrors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Backend)
}

// Keyer returns the cache keyer, scoped when [cache] scope is set.
func (c CacheConfig) Keyer() cache.Keyer {
	if c.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Scope)
}

func (c CacheConfig) openRedis(ctx context.Context) (cache.Cache, error) {
	if c.Redis.Addr == "" {
		return nil, cgerrors.New(cgerrors.ErrCodeInvalidConfig, "cache backend %q needs [cache.redis] addr or %s", c.Backend, EnvRedisAddr)
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Prefix:   c.Redis.Prefix,
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (c CacheConfig) openMongo(ctx context.Context) (cache.Cache, error) {
	if c.Mongo.URI == "" {
		return nil, cgerrors.New(cgerrors.ErrCodeInvalidConfig, "cache backend %q needs [cache.mongo] uri or %s", c.Backend, EnvMongoURI)
	}
	mc, err := cache.NewMongoCache(ctx, cache.MongoOptions{
		URI:        c.Mongo.URI,
		Database:   c.Mongo.Database,
		Collection: c.Mongo.Collection,
	})
	if err != nil {
		return nil, err
	}
	return mc, nil
}
