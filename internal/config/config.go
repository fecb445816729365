package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	defaultAPIURL       = "https://api.steampowered.com"
	defaultCommunityURL = "https://steamcommunity.com"
)

type Config struct {
	// Хранилище записей аккаунтов
	AccountsDir string `env:"ACCOUNTS_DIR"`
	DatabaseDSN string `env:"DATABASE_URI"`
	Passkey     string `env:"MAFILE_PASSKEY"`

	// Удалённый сервис
	APIBaseURL   string        `env:"STEAM_API_URL"`
	CommunityURL string        `env:"STEAM_COMMUNITY_URL"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT"`

	// Повторы
	MaxAttempts  int           `env:"MAX_ATTEMPTS"`
	RetryBackoff time.Duration `env:"RETRY_BACKOFF"`

	LogLevel string `env:"LOG_LEVEL"`
	Version  bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags переопределяют значения из env
	flag.StringVar(&cfg.AccountsDir, "accounts-dir", cfg.AccountsDir, "каталог с .maFile")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (вместо файлов .maFile)")
	flag.StringVar(&cfg.Passkey, "passkey", cfg.Passkey, "ключ шифрования .maFile")
	flag.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "base URL of the Web API")
	flag.StringVar(&cfg.CommunityURL, "community-url", cfg.CommunityURL, "base URL of the community site (confirmations)")
	flag.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP request timeout")
	flag.IntVar(&cfg.MaxAttempts, "attempts", cfg.MaxAttempts, "max attempts for retried operations")
	flag.DurationVar(&cfg.RetryBackoff, "backoff", cfg.RetryBackoff, "initial pause between retries")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	backoffSet := os.Getenv("RETRY_BACKOFF") != ""
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "backoff" {
			backoffSet = true
		}
	})
	cfg.applyDefaults(backoffSet)
	return cfg
}

// applyDefaults заполняет незаданные поля. backoffSet — пауза задана явно (env или флаг), в том числе нулём.
func (c *Config) applyDefaults(backoffSet bool) {
	if c.AccountsDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base, _ = os.UserHomeDir()
		}
		c.AccountsDir = filepath.Join(base, "SteamGuard", "maFiles")
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIURL
	}
	if c.CommunityURL == "" {
		c.CommunityURL = defaultCommunityURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	c.CommunityURL = strings.TrimRight(c.CommunityURL, "/")
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.RetryBackoff == 0 && !backoffSet {
		c.RetryBackoff = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
