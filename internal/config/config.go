// Package config loads cursograph settings from a TOML file, an optional
// .env file and CURSOGRAPH_* environment variables, in increasing order of
// precedence. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	cgerrors "github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/refresh"
	"github.com/matzehuels/cursograph/pkg/source"
)

const appName = "cursograph"

// Environment variables that override the file.
const (
	EnvBackendURL = "CURSOGRAPH_BACKEND_URL"
	EnvToken      = "CURSOGRAPH_TOKEN"
	EnvSelector   = "CURSOGRAPH_SELECTOR"
	EnvCache      = "CURSOGRAPH_CACHE"
	EnvRedisAddr  = "CURSOGRAPH_REDIS_ADDR"
	EnvMongoURI   = "CURSOGRAPH_MONGO_URI"
	EnvAddr       = "CURSOGRAPH_ADDR"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheMongo  = "mongo"
	CacheTiered = "tiered"
	CacheNone   = "none"
)

// CacheBackends lists the accepted [cache] backend values.
var CacheBackends = []string{CacheFile, CacheMemory, CacheRedis, CacheMongo, CacheTiered, CacheNone}

// Config is the full configuration.
type Config struct {
	Layout    LayoutConfig       `toml:"layout"`
	Relations []RelationOverride `toml:"relations"`
	Backend   BackendConfig      `toml:"backend"`
	Cache     CacheConfig        `toml:"cache"`
	Server    ServerConfig       `toml:"server"`
}

// LayoutConfig mirrors [layout.Config]. Zero values keep the layout defaults.
type LayoutConfig struct {
	MinSpacingX     float64 `toml:"min_spacing_x"`
	VerticalSpacing float64 `toml:"vertical_spacing"`
	CanvasCenterX   float64 `toml:"canvas_center_x"`
	MaxDepth        int     `toml:"max_depth"`
	Centering       string  `toml:"centering"`
}

// RelationOverride replaces one entry of the edge relation table.
type RelationOverride struct {
	Parent string `toml:"parent"`
	Child  string `toml:"child"`
	Label  string `toml:"label"`
	Style  string `toml:"style"`
}

// BackendConfig locates the REST backend.
type BackendConfig struct {
	URL       string                     `toml:"url"`
	Token     string                     `toml:"token"`
	Selector  string                     `toml:"selector"`
	Interval  Duration                   `toml:"interval"`
	Selectors map[string]source.Selector `toml:"selectors"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend       string      `toml:"backend"`
	Scope         string      `toml:"scope"` // key prefix shared by every backend
	Dir           string      `toml:"dir"`
	MemoryEntries int         `toml:"memory_entries"`
	Redis         RedisConfig `toml:"redis"`
	Mongo         MongoConfig `toml:"mongo"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig configures `cursograph serve`.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	Poll         bool     `toml:"poll"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Selector: source.SelectorCourses,
			Interval: Duration{refresh.DefaultInterval},
		},
		Cache: CacheConfig{Backend: CacheFile},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{60 * time.Second},
			Poll:         true,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/cursograph/config.toml, falling back
// to the OS user config directory.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/cursograph, falling back to the OS
// user cache directory.
func DefaultCacheDir() (string, error) {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserCacheDir(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, appName), nil
}

// Load reads configuration.
//
// envFiles are loaded first with godotenv; missing files are skipped and
// variables already set in the process win. The TOML file at path is then
// decoded over the defaults. An empty path means [DefaultPath], which may
// be absent; an explicit path must exist. Environment overrides are applied
// last and the result is validated.
func Load(path string, envFiles ...string) (Config, error) {
	if err := loadEnv(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := cfg.decodeFile(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, err
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates it. No
// environment is consulted.
func Parse(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, cgerrors.Wrap(cgerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cgerrors.Wrap(cgerrors.ErrCodeInvalidConfig, err, "load %s", f)
		}
	}
	return nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return cgerrors.Wrap(cgerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cgerrors.New(cgerrors.ErrCodeInvalidConfig, "%s: unknown keys %v", path, undecoded)
	}
	return nil
}

// ApplyEnv overrides fields from CURSOGRAPH_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Backend.URL, EnvBackendURL)
	set(&c.Backend.Token, EnvToken)
	set(&c.Backend.Selector, EnvSelector)
	set(&c.Cache.Backend, EnvCache)
	set(&c.Cache.Redis.Addr, EnvRedisAddr)
	set(&c.Cache.Mongo.URI, EnvMongoURI)
	set(&c.Server.Addr, EnvAddr)
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if _, err := c.RelationTable(); err != nil {
		return err
	}
	opts := c.PipelineOptions()
	if err := opts.Validate(); err != nil {
		return err
	}
	if !slices.Contains(CacheBackends, c.Cache.Backend) {
		return cgerrors.New(cgerrors.ErrCodeInvalidConfig,
			"unknown cache backend %q (must be one of %v)", c.Cache.Backend, CacheBackends)
	}
	if c.Backend.Interval.Duration < 0 {
		return cgerrors.New(cgerrors.ErrCodeInvalidConfig, "backend interval must not be negative")
	}
	if _, err := c.Selectors().Lookup(c.Backend.Selector); err != nil {
		return err
	}
	for name, s := range c.Backend.Selectors {
		if s.Path == "" {
			return cgerrors.New(cgerrors.ErrCodeInvalidConfig, "selector %q has no path", name)
		}
		if _, err := hierarchy.ParseShape(string(s.Shape)); err != nil {
			return fmt.Errorf("selector %q: %w", name, err)
		}
	}
	return nil
}

// RelationTable returns the default relations with the configured
// overrides applied in order.
func (c Config) RelationTable() (layout.RelationTable, error) {
	t := layout.DefaultRelations()
	for i, r := range c.Relations {
		parent, err := hierarchy.ParseKind(r.Parent)
		if err != nil {
			return nil, fmt.Errorf("relations[%d]: %w", i, err)
		}
		child, err := hierarchy.ParseKind(r.Child)
		if err != nil {
			return nil, fmt.Errorf("relations[%d]: %w", i, err)
		}
		t = t.With(layout.KindPair{Parent: parent, Child: child}, layout.Relation{Label: r.Label, Style: r.Style})
	}
	return t, nil
}

// PipelineOptions converts the layout section into pipeline options. Invalid
// relation overrides are ignored here; Validate reports them.
func (c Config) PipelineOptions() pipeline.Options {
	rel, _ := c.RelationTable()
	return pipeline.Options{
		MinSpacingX:     c.Layout.MinSpacingX,
		VerticalSpacing: c.Layout.VerticalSpacing,
		CanvasCenterX:   c.Layout.CanvasCenterX,
		MaxDepth:        c.Layout.MaxDepth,
		Centering:       layout.Centering(c.Layout.Centering),
		Relations:       rel,
	}
}

// Selectors returns the built-in selectors merged with configured ones.
// Configured selectors replace built-ins of the same name.
func (c Config) Selectors() source.Selectors {
	sels := source.DefaultSelectors()
	for name, s := range c.Backend.Selectors {
		s.Name = name
		if s.Shape == "" {
			s.Shape = hierarchy.ShapeAuto
		}
		sels[name] = s
	}
	return sels
}
