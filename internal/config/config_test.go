package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// inEmptyDir runs the test from a directory without config.json or .env.
func inEmptyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inEmptyDir(t)

	cfg, err := Load("")

	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 10*time.Minute, cfg.FreshFor())
	require.Equal(t, 90*time.Second, cfg.RequestTimeout())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := inEmptyDir(t)
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"currency": "USD",
		"silver_ratio": 80,
		"metalsdev": {"api_key": "from-file", "timeout_sec": 4},
		"relay": {"templates": ["https://relay.example/?{url}"]},
		"cache": {"backend": "redis", "redis_url": "redis://cache:6379/0"}
	}`), 0o600))
	t.Setenv("METALSDEV_API_KEY", "from-env")
	t.Setenv("RELAY_ENABLED", "no")
	t.Setenv("CACHE_FRESH_FOR_SEC", "120")
	t.Setenv("SILVER_RATIO", "not-a-number")

	cfg, err := Load(path)

	require.NoError(t, err)
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, 80.0, cfg.SilverRatio)
	require.Equal(t, "from-env", cfg.MetalsDev.APIKey)
	require.Equal(t, 4, cfg.MetalsDev.TimeoutSec)
	require.Equal(t, "https://api.metals.dev", cfg.MetalsDev.BaseURL, "unset fields keep defaults")
	require.False(t, cfg.Relay.Enabled)
	require.Equal(t, []string{"https://relay.example/?{url}"}, cfg.Relay.Templates)
	require.Equal(t, "redis", cfg.Cache.Backend)
	require.Equal(t, 2*time.Minute, cfg.FreshFor())
}

func TestLoad_ConfigFileEnv(t *testing.T) {
	dir := inEmptyDir(t)
	path := filepath.Join(dir, "elsewhere.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":{"port":"9090"}}`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := inEmptyDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METALSDEV_API_KEY=dotenv-key\nLOG_LEVEL=debug\n"), 0o600))
	// godotenv never overrides, so clear what Load would otherwise inherit.
	t.Setenv("METALSDEV_API_KEY", "")
	os.Unsetenv("METALSDEV_API_KEY")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")

	require.NoError(t, err)
	require.Equal(t, "dotenv-key", cfg.MetalsDev.APIKey)
	require.Equal(t, "warn", cfg.Log.Level, "the real environment wins over .env")
}

func TestLoad_Errors(t *testing.T) {
	dir := inEmptyDir(t)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"currency":`), 0o600))
	_, err := Load(bad)
	require.ErrorContains(t, err, "parse config")

	backend := filepath.Join(dir, "backend.json")
	require.NoError(t, os.WriteFile(backend, []byte(`{"cache":{"backend":"etcd"}}`), 0o600))
	_, err = Load(backend)
	require.ErrorContains(t, err, "unknown cache backend")

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.NoError(t, err, "a missing file means defaults")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.SilverRatio = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Currency = " "
	require.Error(t, cfg.Validate())
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "-3")
	n := 7
	intv("X_INT", &n)
	require.Equal(t, 7, n, "negative values are ignored")

	t.Setenv("X_BOOL", "maybe")
	b := true
	boolean("X_BOOL", &b)
	require.True(t, b)

	require.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b ,"))
}
