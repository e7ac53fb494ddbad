package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/boarder-portal/telegram-bot/internal/logging"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// EnvPrefix namespaces environment overrides: store.dsn is LEDGER_STORE_DSN.
const EnvPrefix = "LEDGER"

type Config struct {
	Bot    BotConfig    `mapstructure:"bot"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Store  StoreConfig  `mapstructure:"store"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	Log    LogConfig    `mapstructure:"log"`
}

type BotConfig struct {
	Token string `mapstructure:"token"`
	// Workers bounds how many updates are handled at once in poll mode.
	Workers       int    `mapstructure:"workers"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// WebhookURL is the public base URL; when set, serve registers the webhook on start.
	WebhookURL string `mapstructure:"webhook_url"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	Port string `mapstructure:"port"`
}

// ListenAddr prefers an explicit addr, otherwise listens on every interface at Port.
func (c HTTPConfig) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return ":" + c.Port
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LedgerConfig struct {
	ProposalTTL time.Duration `mapstructure:"proposal_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Default() *Config {
	return &Config{
		Bot:    BotConfig{Workers: 8},
		HTTP:   HTTPConfig{Port: "8080"},
		Store:  StoreConfig{Driver: DriverSQLite, DSN: "ledger.db"},
		Ledger: LedgerConfig{ProposalTTL: 24 * time.Hour},
		Log:    LogConfig{Level: logging.LevelInfo, Format: logging.FormatJSON},
	}
}

// SetDefaults registers every key so env overrides are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("bot.token", d.Bot.Token)
	v.SetDefault("bot.workers", d.Bot.Workers)
	v.SetDefault("bot.webhook_secret", d.Bot.WebhookSecret)
	v.SetDefault("bot.webhook_url", d.Bot.WebhookURL)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.port", d.HTTP.Port)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("ledger.proposal_ttl", d.Ledger.ProposalTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// New prepares a viper instance: defaults, then the optional config file,
// then environment. An explicit cfgFile must exist; otherwise ./ledgerbot.yaml
// is read when present.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names the bot was deployed with before the prefix existed
	_ = v.BindEnv("bot.token", EnvPrefix+"_BOT_TOKEN", "BOT_TOKEN")
	_ = v.BindEnv("store.dsn", EnvPrefix+"_STORE_DSN", "DATABASE_URL")
	_ = v.BindEnv("http.port", EnvPrefix+"_HTTP_PORT", "PORT")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName("ledgerbot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// RequireToken is checked only by commands that talk to Telegram.
func (c *Config) RequireToken() error {
	if c.Bot.Token == "" {
		return ValidationErrors{{Field: "bot.token", Message: "is required (set BOT_TOKEN)"}}
	}
	return nil
}
