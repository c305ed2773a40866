package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("TEST_CERTIWEB_KEY", "from-env")
	t.Setenv(SigningKeyEnv, "")

	path := writeFile(t, "config.yaml", `
server:
  addr: ":9090"
  shutdown_timeout: 3s
database:
  dsn: "file:test.db"
auth:
  signing_key: "${TEST_CERTIWEB_KEY}"
  previous_signing_keys: ["old-1", "old-2"]
  token_ttl: 2h
  issuer: certiweb
  audience: [api]
  allow_unresolved_principal: true
  bcrypt_cost: 10
revocation:
  backend: database
seed:
  admin:
    email: root@example.com
    password: rootpass
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "from-env", cfg.GetSigningKey())
	assert.Equal(t, []string{"old-1", "old-2"}, cfg.Auth.PreviousSigningKeys)
	assert.Equal(t, 2*time.Hour, cfg.GetTokenTTL())
	assert.Equal(t, "certiweb", cfg.GetIssuer())
	assert.Equal(t, []string{"api"}, cfg.GetAudience())
	assert.True(t, cfg.GetAllowUnresolvedPrincipal())
	assert.Equal(t, 10, cfg.GetBcryptCost())
	assert.Equal(t, RevocationDatabase, cfg.Revocation.Backend)
	assert.Equal(t, "root@example.com", cfg.Seed.Admin.Email)

	assert.Equal(t, "Bearer", cfg.GetAuthScheme(), "defaults survive partial files")
	assert.Equal(t, "principal", cfg.GetContextKey())
}

func TestLoadTOML(t *testing.T) {
	t.Setenv(SigningKeyEnv, "")

	path := writeFile(t, "config.toml", `
[database]
dsn = "postgres://certiweb@localhost/certiweb"

[auth]
signing_key = "toml-secret"
token_ttl = "30m"

[revocation]
backend = "redis"
redis_addr = "localhost:6379"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "toml-secret", cfg.GetSigningKey())
	assert.Equal(t, 30*time.Minute, cfg.GetTokenTTL())
	assert.Equal(t, "postgres://certiweb@localhost/certiweb", cfg.Database.DSN)
	assert.Equal(t, RevocationRedis, cfg.Revocation.Backend)
}

func TestLoadSigningKeyFromEnv(t *testing.T) {
	t.Setenv(SigningKeyEnv, "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.GetSigningKey())
	assert.Equal(t, 7*24*time.Hour, cfg.GetTokenTTL())
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(SigningKeyEnv, "")

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad duration", content: "auth:\n  signing_key: k\n  token_ttl: soon\n"},
		{name: "unknown backend", content: "auth:\n  signing_key: k\nrevocation:\n  backend: memcached\n"},
		{name: "redis without address", content: "auth:\n  signing_key: k\nrevocation:\n  backend: redis\n"},
		{name: "invalid yaml", content: "auth: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", tt.content))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadWithoutSigningKey(t *testing.T) {
	t.Setenv(SigningKeyEnv, "")

	cfg, err := Load(writeFile(t, "config.yaml", "auth:\n  token_ttl: 1h\n"))
	require.NoError(t, err, "offline commands load config without a key")
	assert.Equal(t, time.Hour, cfg.GetTokenTTL())

	err = cfg.RequireSigningKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.signing_key is required")

	cfg.Auth.SigningKey = "   "
	require.Error(t, cfg.RequireSigningKey())

	cfg.Auth.SigningKey = "k"
	assert.NoError(t, cfg.RequireSigningKey())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CERTIWEB_TEST_A", "alpha")

	assert.Equal(t, "x-alpha-", expandEnvVars("x-${CERTIWEB_TEST_A}-${CERTIWEB_TEST_UNSET}"))
	assert.Equal(t, "no vars", expandEnvVars("no vars"))
}
