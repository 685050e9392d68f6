package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
)

const sampleTOML = `
[layout]
min_spacing_x = 200
centering = "mean"

[[relations]]
parent = "course"
child = "student"
label = "inscrito"

[backend]
url = "https://api.example.edu"
selector = "alumni"
interval = "45s"

[backend.selectors.alumni]
path = "/egresados/estructura"
shape = "professor"

[cache]
backend = "memory"
memory_entries = 64

[server]
addr = ":9090"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(sampleTOML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Layout.MinSpacingX != 200 || cfg.Layout.Centering != "mean" {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Backend.Interval.Duration != 45*time.Second {
		t.Errorf("interval = %v", cfg.Backend.Interval)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}

	sel, err := cfg.Selectors().Lookup("alumni")
	if err != nil {
		t.Fatal(err)
	}
	if sel.Path != "/egresados/estructura" || sel.Shape != hierarchy.ShapeProfessor || sel.Name != "alumni" {
		t.Errorf("selector = %+v", sel)
	}
	if _, err := cfg.Selectors().Lookup("courses"); err != nil {
		t.Error("built-in selectors should remain available")
	}

	opts := cfg.PipelineOptions()
	if opts.MinSpacingX != 200 || opts.Centering != layout.CenterMean {
		t.Errorf("pipeline options = %+v", opts)
	}
	rel, _ := opts.Relations.Lookup(hierarchy.KindCourse, hierarchy.KindStudent)
	if rel.Label != "inscrito" || rel.Style != "course" {
		t.Errorf("relation override = %+v", rel)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", "[layout"},
		{"cache backend", "[cache]\nbackend = \"memcached\""},
		{"centering", "[layout]\ncentering = \"left\""},
		{"spacing", "[layout]\nmin_spacing_x = -5"},
		{"relation kind", "[[relations]]\nparent = \"school\"\nchild = \"course\""},
		{"selector", "[backend]\nselector = \"alumni\""},
		{"selector path", "[backend.selectors.alumni]\nshape = \"course\""},
		{"interval", "[backend]\ninterval = \"soon\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.toml); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte("[backend]\nurl = \"https://file.example.edu\"\ntoken = \"from-file\"\n"), 0o644)
	envFile := filepath.Join(dir, ".env")
	os.WriteFile(envFile, []byte("CURSOGRAPH_TOKEN=from-dotenv\nCURSOGRAPH_ADDR=:7070\n"), 0o644)

	t.Setenv(EnvBackendURL, "https://env.example.edu")
	// Registered so t.Setenv restores them after godotenv sets them.
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAddr, "")
	os.Unsetenv(EnvToken)
	os.Unsetenv(EnvAddr)

	cfg, err := Load(path, envFile, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://env.example.edu" {
		t.Errorf("env should override file, url = %q", cfg.Backend.URL)
	}
	if cfg.Backend.Token != "from-dotenv" {
		t.Errorf(".env should override file, token = %q", cfg.Backend.Token)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("an explicit missing config file should fail")
	}
}

func TestLoadDefaultPathOptional(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Selector != "courses" || cfg.Cache.Backend != CacheFile {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[layout]\nmin_spacing = 10\n"), 0o644)
	_, err := Load(path)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("unknown key error = %v, want INVALID_CONFIG", err)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/tmp/xdg", "cursograph", "config.toml") {
		t.Errorf("DefaultPath = %q", p)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvRedisAddr: "localhost:6379",
		EnvMongoURI:  "mongodb://localhost",
		EnvCache:     CacheTiered,
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Mongo.URI != "mongodb://localhost" || cfg.Cache.Backend != CacheTiered {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Backend.Selector != "courses" {
		t.Error("unset variables must not clear values")
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	c, err := CacheConfig{Backend: CacheNone}.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("none backend = %T", c)
	}

	c, err = CacheConfig{Backend: CacheMemory}.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.MemoryCache); !ok {
		t.Errorf("memory backend = %T", c)
	}

	dir := t.TempDir()
	c, err = CacheConfig{Backend: CacheFile, Dir: dir}.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fc, ok := c.(*cache.FileCache); !ok || fc.Dir() != dir {
		t.Errorf("file backend = %T", c)
	}

	for _, backend := range []string{CacheRedis, CacheMongo, "memcached"} {
		_, err := CacheConfig{Backend: backend}.OpenCache(ctx)
		if !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("OpenCache(%q) error = %v, want INVALID_CONFIG", backend, err)
		}
	}
}

func TestCacheKeyer(t *testing.T) {
	opts := cache.LayoutKeyOpts{Shape: "course"}
	plain := CacheConfig{}.Keyer().LayoutKey("abc", opts)
	scoped := CacheConfig{Scope: "staging:"}.Keyer().LayoutKey("abc", opts)
	if scoped != "staging:"+plain {
		t.Errorf("scoped key = %q, want prefix on %q", scoped, plain)
	}
}
