package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/boarder-portal/telegram-bot/internal/db"
	"github.com/boarder-portal/telegram-bot/internal/domain"
	"github.com/boarder-portal/telegram-bot/internal/repo"
	"github.com/boarder-portal/telegram-bot/internal/store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ledgerbot", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "poll", "migrate", "purge", "balance", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

// seedStore points the commands at a fresh SQLite file holding one entry:
// user 101 took 500 from user 99.
func seedStore(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	t.Setenv("LEDGER_STORE_DRIVER", "sqlite")
	t.Setenv("LEDGER_STORE_DSN", path)
	t.Setenv("LEDGER_LOG_LEVEL", "ERROR")

	sdb, err := db.OpenSQLite(path)
	require.NoError(t, err)
	defer sdb.Close()

	l := repo.NewLedger(store.NewSQLite(sdb))
	require.NoError(t, l.Append(context.Background(), domain.PairKey(101, 99), domain.Entry{
		ID:               "e1",
		CounterpartyID:   101,
		CounterpartyName: "@alice",
		Method:           domain.MethodTake,
		CommittedAt:      time.Date(2025, 12, 12, 18, 30, 0, 0, time.UTC),
		Amount:           500,
		Description:      "ужин",
	}))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBalanceCommand(t *testing.T) {
	seedStore(t)

	out, err := execute(t, "balance", "101", "99")
	require.NoError(t, err)
	assert.Equal(t, "101/99: -500 (owes)\n", out)

	out, err = execute(t, "balance", "99", "101", "--format", "json")
	require.NoError(t, err)
	var res balanceResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, balanceResult{UserID: 99, CounterpartyID: 101, Balance: 500, Standing: "owed"}, res)
}

func TestHistoryCommand(t *testing.T) {
	seedStore(t)

	out, err := execute(t, "history", "99", "101")
	require.NoError(t, err)
	assert.Equal(t, "12 декабря 2025 в 18:30 UTC — @alice взял 500 ₽ (ужин)\n", out)

	out, err = execute(t, "history", "101", "99", "--format", "yaml")
	require.NoError(t, err)
	var entries []historyEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
	assert.Equal(t, "take", entries[0].Method)
	assert.Equal(t, int64(500), entries[0].Amount)
}

func TestHistoryCommandEmptyPair(t *testing.T) {
	seedStore(t)
	out, err := execute(t, "history", "1", "2")
	require.NoError(t, err)
	assert.Equal(t, "no entries\n", out)
}

func TestPurgeCommand(t *testing.T) {
	seedStore(t)
	out, err := execute(t, "purge", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"purged":0}`, out)
}

func TestArgumentErrors(t *testing.T) {
	seedStore(t)

	_, err := execute(t, "balance", "101")
	assert.Error(t, err)

	_, err = execute(t, "balance", "101", "bob")
	assert.ErrorContains(t, err, `invalid user id "bob"`)

	_, err = execute(t, "history", "7", "7")
	assert.ErrorContains(t, err, "must differ")

	_, err = execute(t, "balance", "101", "99", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestServeRequiresToken(t *testing.T) {
	seedStore(t)
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("LEDGER_BOT_TOKEN", "")

	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "bot.token")
}
