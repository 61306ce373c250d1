// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest precedence
last):

  1. Optional `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `RECIPEBOX_`, where `__` maps to “.”
     (e.g., `RECIPEBOX_BACKEND__BASE_URL → backend.base_url`).

After merging, `vault:` references are resolved, the tree is unmarshalled,
defaults are filled, the result is validated and cached in an
`atomic.Pointer` for lock-free reads.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml` so
    `go run ./cmd/web` works from any sub-directory.
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/vault"
)

const envPrefix = "RECIPEBOX_"

var current atomic.Pointer[Config]

// SecretResolver resolves a `vault:` reference to its plain value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves RECIPEBOX_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the executable layout.
func rootDir() string {
	if r := os.Getenv(envPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves Vault references through a
// lazily created client, validates, and caches Config.
func Load(ctx context.Context) (*Config, error) {
	var lazy SecretResolver
	resolver := resolverFunc(func(ctx context.Context, ref string, ttl time.Duration) (string, error) {
		if lazy == nil {
			c, err := vault.New(ctx, zap.S())
			if err != nil {
				return "", err
			}
			lazy = c
		}
		return lazy.Resolve(ctx, ref, ttl)
	})
	return LoadWith(ctx, rootDir(), resolver)
}

// LoadWith is Load with an explicit root and secret resolver.
func LoadWith(ctx context.Context, root string, secrets SecretResolver) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	applyDefaults(&cfg)
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"env", cfg.Env,
		"listen_addr", cfg.HTTP.ListenAddr,
		"backend", cfg.Backend.BaseURL,
		"stripe_enabled", cfg.Stripe.PublishableKey != "",
		"redis_enabled", cfg.Redis.Addr != "",
	)
	return &cfg, nil
}

// resolveSecrets swaps every `vault:` string for its secret value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, secrets SecretResolver) error {
	for _, key := range k.Keys() {
		s, ok := k.Get(key).(string)
		if !ok || !vault.IsRef(s) {
			continue
		}
		if secrets == nil {
			return fmt.Errorf("config %s: vault reference but no resolver", key)
		}
		val, err := secrets.Resolve(ctx, s, 0)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func applyDefaults(c *Config) {
	setDur := func(d *time.Duration, def time.Duration) {
		if *d == 0 {
			*d = def
		}
	}
	setDur(&c.HTTP.ReadTimeout, 10*time.Second)
	setDur(&c.HTTP.WriteTimeout, 15*time.Second)
	setDur(&c.HTTP.IdleTimeout, 60*time.Second)
	setDur(&c.HTTP.ShutdownTimeout, 10*time.Second)
	setDur(&c.Backend.Timeout, 10*time.Second)
	setDur(&c.Cache.TTL, 5*time.Minute)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Auth.LoginPath == "" {
		c.Auth.LoginPath = "/login"
	}
	if c.Auth.LandingPath == "" {
		c.Auth.LandingPath = "/home"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "payments:*"
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = 4096
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
}

type resolverFunc func(ctx context.Context, ref string, ttl time.Duration) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	return f(ctx, ref, ttl)
}

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
