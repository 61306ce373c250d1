package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
env: development
http:
  listen_addr: "127.0.0.1:8080"
backend:
  base_url: "http://localhost:3000"
session:
  hash_key: "vault:secret/recipebox/session#hash_key"
  block_key: "MDEyMzQ1Njc4OWFiY2RlZg=="
auth:
  protected_prefixes: ["/home", "/recipes"]
`

type fakeSecrets map[string]string

func (f fakeSecrets) Resolve(_ context.Context, ref string, _ time.Duration) (string, error) {
	return f[ref], nil
}

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadMergesEnvAndResolvesVault(t *testing.T) {
	root := writeConf(t, baseYAML)
	t.Setenv("RECIPEBOX_BACKEND__BASE_URL", "http://api.internal:9000")

	cfg, err := LoadWith(context.Background(), root, fakeSecrets{
		"vault:secret/recipebox/session#hash_key": "c2VjcmV0LWhhc2gta2V5",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://api.internal:9000", cfg.Backend.BaseURL)
	assert.Equal(t, "c2VjcmV0LWhhc2gta2V5", cfg.Session.HashKey)
	assert.Equal(t, []string{"/home", "/recipes"}, cfg.Auth.ProtectedPrefixes)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoadFillsDefaults(t *testing.T) {
	root := writeConf(t, baseYAML)
	cfg, err := LoadWith(context.Background(), root, fakeSecrets{
		"vault:secret/recipebox/session#hash_key": "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "/login", cfg.Auth.LoginPath)
	assert.Equal(t, "/home", cfg.Auth.LandingPath)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "payments:*", cfg.Redis.Channel)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	root := writeConf(t, `
env: staging
http:
  listen_addr: "127.0.0.1:8080"
backend:
  base_url: "http://localhost:3000"
session:
  hash_key: a
  block_key: b
`)
	_, err := LoadWith(context.Background(), root, nil)
	require.Error(t, err)
}

func TestLoadVaultRefWithoutResolver(t *testing.T) {
	root := writeConf(t, baseYAML)
	_, err := LoadWith(context.Background(), root, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.hash_key")
}
