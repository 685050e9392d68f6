// Package cache stores derived layouts and rendered artifacts.
//
// Only data that can be recomputed is cached: laid-out graphs keyed by the
// hash of the raw records plus layout options, and rendered artifacts keyed
// by the hash of the layout plus render options. Nothing authoritative is
// persisted here.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry, the CLI default
//   - [MemoryCache]: in-process map, the server default and for tests
//   - [RedisCache]: shared cache for several server replicas
//   - [MongoCache]: durable cold tier with a TTL index
//   - [NullCache]: caching disabled
//   - [Tiered]: a hot cache in front of a cold one
//
// # Keys
//
// A [Keyer] builds every key so that all backends agree on the layout:
//
//	k := cache.NewDefaultKeyer()
//	key := k.LayoutKey(cache.Hash(records), cache.LayoutKeyOpts{Shape: "course"})
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// TTLs for each kind of cached data.
const (
	TTLHTTP     = 5 * time.Minute
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Key types reported to observability hooks.
const (
	KeyTypeHTTP     = "http"
	KeyTypeLayout   = "layout"
	KeyTypeArtifact = "artifact"
)

// =============================================================================
// Keyer
// =============================================================================

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey is the key for a raw backend response.
	HTTPKey(namespace, key string) string

	// LayoutKey is the key for a laid-out graph of the records with the given hash.
	LayoutKey(sourceHash string, opts LayoutKeyOpts) string

	// ArtifactKey is the key for a rendered artifact of the layout with the given hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the options that change a layout.
type LayoutKeyOpts struct {
	Shape           string  `json:"shape"`
	MinSpacingX     float64 `json:"min_spacing_x"`
	VerticalSpacing float64 `json:"vertical_spacing"`
	CanvasCenterX   float64 `json:"canvas_center_x"`
	MaxDepth        int     `json:"max_depth"`
	Centering       string  `json:"centering"`
	Relations       string  `json:"relations"` // relation table fingerprint
}

// ArtifactKeyOpts are the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format         string  `json:"format"`
	Detailed       bool    `json:"detailed"`
	HideEdgeLabels bool    `json:"hide_edge_labels"`
	Scale          float64 `json:"scale"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// LayoutKey hashes the source hash with every layout option.
func (DefaultKeyer) LayoutKey(sourceHash string, opts LayoutKeyOpts) string {
	return hashKey(KeyTypeLayout, sourceHash, opts)
}

// ArtifactKey hashes the layout hash with every render option.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, layoutHash, opts)
}
