package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(`secret_key: s3cret`))
	require.NoError(t, err)

	// check defaults applied
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 26, cfg.TokenLength)
	assert.Equal(t, 25, cfg.CheckLength)
	assert.Equal(t, 5, cfg.MaxChecks)
	assert.Equal(t, time.Hour, cfg.TokenTTL.Duration())
	assert.Equal(t, 15*time.Second, cfg.PollInterval.Duration())
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, NotifierLog, cfg.Notifier.Driver)
	assert.Equal(t, "+88", cfg.Notifier.Twilio.CountryPrefix)
	assert.Equal(t, "pulsecheck.alerts", cfg.Notifier.NATS.Subject)
	assert.Zero(t, cfg.RateLimit.LoginPerMinute)
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
env: production
port: 8080
secret_key: s3cret
token_length: 30
check_length: 20
max_checks: 10
token_ttl: 2h
poll_interval: 30s
store:
  driver: sqlite
  path: /var/lib/pulsecheck/db.sqlite
notifier:
  driver: twilio
  twilio:
    account_sid: AC123
    auth_token: tok
    from_phone: "+15005550006"
    country_prefix: "+1"
    base_url: http://localhost:9999
    timeout: 3s
rate_limit:
  login_per_minute: 30
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30, cfg.TokenLength)
	assert.Equal(t, 20, cfg.CheckLength)
	assert.Equal(t, 10, cfg.MaxChecks)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL.Duration())
	assert.Equal(t, 30*time.Second, cfg.PollInterval.Duration())
	assert.Equal(t, StoreConfig{Driver: StoreSQLite, Path: "/var/lib/pulsecheck/db.sqlite"}, cfg.Store)
	assert.Equal(t, TwilioConfig{
		AccountSID:    "AC123",
		AuthToken:     "tok",
		FromPhone:     "+15005550006",
		CountryPrefix: "+1",
		BaseURL:       "http://localhost:9999",
		Timeout:       Duration(3 * time.Second),
	}, cfg.Notifier.Twilio)
	assert.Equal(t, 30, cfg.RateLimit.LoginPerMinute)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("PC_TEST_SECRET", "from-env")
	t.Setenv("PC_TEST_NATS", "nats://10.0.0.1:4222")

	yaml := `
secret_key: ${PC_TEST_SECRET}
store:
  driver: bolt
  path: ${PC_TEST_UNSET_DIR:-/tmp/pc}/data.db
notifier:
  driver: nats
  nats:
    url: ${PC_TEST_NATS}
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.Equal(t, "/tmp/pc/data.db", cfg.Store.Path)
	assert.Equal(t, "nats://10.0.0.1:4222", cfg.Notifier.NATS.URL)
}

func TestParse_EnvVarMissing(t *testing.T) {
	_, err := Parse([]byte(`secret_key: ${PC_TEST_DEFINITELY_UNSET}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
	assert.Contains(t, err.Error(), "PC_TEST_DEFINITELY_UNSET")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PC_TEST_A", "alpha")

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"${PC_TEST_A}", "alpha"},
		{"x-${PC_TEST_A}-y", "x-alpha-y"},
		{"${PC_TEST_NOPE:-fallback}", "fallback"},
		{"${PC_TEST_NOPE:-}", ""},
		{"${PC_TEST_A:-ignored}", "alpha"},
	}
	for _, tt := range tests {
		got, err := expandEnvVars(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing secret", `port: 3000`, "secret_key is required"},
		{"port too high", "secret_key: s\nport: 70000", "port must be between"},
		{"negative port", "secret_key: s\nport: -1", "port must be between"},
		{"short id", "secret_key: s\ntoken_length: 4", "at least 8"},
		{"equal ids", "secret_key: s\ntoken_length: 20\ncheck_length: 20", "must differ"},
		{"negative max checks", "secret_key: s\nmax_checks: -1", "max_checks"},
		{"fast poll", "secret_key: s\npoll_interval: 500ms", "poll_interval must be at least"},
		{"bad duration", "secret_key: s\npoll_interval: soon", "invalid duration"},
		{"negative ttl", "secret_key: s\ntoken_ttl: -1m", "token_ttl"},
		{"negative rate", "secret_key: s\nrate_limit:\n  login_per_minute: -2", "login_per_minute"},
		{"bolt without path", "secret_key: s\nstore:\n  driver: bolt", "store.path is required"},
		{"unknown store", "secret_key: s\nstore:\n  driver: redis", "store.driver"},
		{"twilio without creds", "secret_key: s\nnotifier:\n  driver: twilio", "notifier.twilio requires"},
		{"nats without url", "secret_key: s\nnotifier:\n  driver: nats", "notifier.nats.url"},
		{"unknown notifier", "secret_key: s\nnotifier:\n  driver: email", "notifier.driver"},
		{"invalid yaml", "secret_key: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsecheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secret_key: s\nport: 4000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
