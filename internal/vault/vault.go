// internal/vault/vault.go
//
// Vault client used by the config loader to resolve `vault:` references.
//
// Context
// -------
//   - Wraps the HashiCorp Vault SDK with a KV-v2 read helper, a per-key
//     cache, and background token renewal.
//   - References look like `vault:<mount>/<path>#<key>`, for example
//     `vault:secret/recipebox/session#hash_key`.
//
// Environment expectations
// ------------------------
//   - VAULT_ADDR   scheme and host of the Vault server.
//   - VAULT_TOKEN  initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Prefix marks a configuration value that must be fetched from Vault.
const Prefix = "vault:"

var ErrBadRef = errors.New("vault: malformed reference")

// Ref is a parsed `vault:` reference.
type Ref struct {
	Mount string
	Path  string
	Key   string
}

func (r Ref) String() string { return Prefix + r.Mount + "/" + r.Path + "#" + r.Key }

// IsRef reports whether s should be resolved through Vault.
func IsRef(s string) bool { return strings.HasPrefix(s, Prefix) }

// ParseRef splits `vault:<mount>/<path>#<key>`.
func ParseRef(s string) (Ref, error) {
	if !IsRef(s) {
		return Ref{}, fmt.Errorf("%w: missing %q prefix", ErrBadRef, Prefix)
	}
	body := strings.TrimPrefix(s, Prefix)
	secretPath, key, ok := strings.Cut(body, "#")
	if !ok || key == "" {
		return Ref{}, fmt.Errorf("%w: %q has no #key", ErrBadRef, s)
	}
	mount, rel := splitMount(secretPath)
	if mount == "" || rel == "" {
		return Ref{}, fmt.Errorf("%w: %q needs <mount>/<path>", ErrBadRef, s)
	}
	return Ref{Mount: mount, Path: rel, Key: key}, nil
}

//
// SECTION 1.  Client
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts token renewal bound to ctx.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{api: apiCli, log: log, cache: make(map[string]cached)}
	go c.renewLoop(ctx)
	return c, nil
}

// Resolve reads the secret a `vault:` reference points at.  Results are
// cached for ttl when ttl > 0.
func (c *Client) Resolve(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return "", err
	}

	canonical := r.String()
	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	sec, err := c.api.KVv2(r.Mount).Get(ctx, r.Path)
	if err != nil {
		return "", fmt.Errorf("vault get %s/%s: %w", r.Mount, r.Path, err)
	}
	raw, ok := sec.Data[r.Key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %s/%s", r.Key, r.Mount, r.Path)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token not renewable, sleeping")
			backoff(ctx, time.Hour)
			continue
		}

		if err := c.watch(ctx, sec); err != nil {
			c.log.Warnw("vault token watcher stopped", "err", err)
		}
		backoff(ctx, 15*time.Second)
	}
}

// watch blocks until the lifetime watcher finishes or ctx is done.
func (c *Client) watch(ctx context.Context, sec *vault.Secret) error {
	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		return err
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.DoneCh():
			return err
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(strings.Trim(p, "/"), "/")
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
