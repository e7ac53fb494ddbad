package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"BOT_TOKEN", "DATABASE_URL", "PORT",
		"LEDGER_BOT_TOKEN", "LEDGER_STORE_DSN", "LEDGER_HTTP_PORT", "LEDGER_HTTP_ADDR",
		"LEDGER_STORE_DRIVER", "LEDGER_LEDGER_PROPOSAL_TTL", "LEDGER_LOG_LEVEL", "LEDGER_BOT_WORKERS",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr())
	assert.Error(t, cfg.RequireToken())
}

func TestLegacyEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("PORT", "3000")
	t.Setenv("LEDGER_STORE_DRIVER", "postgres")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.NoError(t, cfg.RequireToken())
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/ledger", cfg.Store.DSN)
	assert.Equal(t, ":3000", cfg.HTTP.ListenAddr())
}

func TestPrefixedEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "legacy")
	t.Setenv("LEDGER_BOT_TOKEN", "prefixed")
	t.Setenv("LEDGER_LEDGER_PROPOSAL_TTL", "90m")
	t.Setenv("LEDGER_BOT_WORKERS", "2")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Bot.Token)
	assert.Equal(t, 90*time.Minute, cfg.Ledger.ProposalTTL)
	assert.Equal(t, 2, cfg.Bot.Workers)
}

func TestConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledgerbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: 127.0.0.1:9000
store:
  dsn: /var/lib/ledger/ledger.db
ledger:
  proposal_ttl: 1h
log:
  level: debug
  format: text
`), 0o644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr())
	assert.Equal(t, "/var/lib/ledger/ledger.db", cfg.Store.DSN)
	assert.Equal(t, time.Hour, cfg.Ledger.ProposalTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Bot.Workers = 0
	cfg.Store.Driver = "redis"
	cfg.Ledger.ProposalTTL = 0
	cfg.Log.Level = "trace"

	errs := cfg.Validate()
	require.Len(t, errs, 4)
	assert.Equal(t, "bot.workers", errs[0].Field)
	assert.Equal(t, "store.driver", errs[1].Field)
	assert.Equal(t, "ledger.proposal_ttl", errs[2].Field)
	assert.Equal(t, "log.level", errs[3].Field)
	assert.Contains(t, errs.Error(), "4 validation errors")
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationErrors{{Field: "store.driver", Value: "redis", Message: "must be postgres or sqlite"}}
	assert.Equal(t, "store.driver: must be postgres or sqlite (got: redis)", err.Error())
}
