package config

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Credentials. Both are optional: without the CoinMarketCap key the
	// price source starts at the free provider, without the bot token the
	// notifier runs in demo mode.
	CoinMarketCapAPIKey string `env:"COINMARKETCAP_API_KEY"`
	TelegramBotToken    string `env:"TELEGRAM_BOT_TOKEN"`

	DBDriver          string        `env:"DB_DRIVER,default=sqlite"`
	DBPath            string        `env:"DB_PATH,default=crypto_alerts.db"`
	DBHost            string        `env:"DB_HOST,default=localhost"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,default=cryptoalerts"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME,default=cryptoalerts"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	CoinMarketCapBaseURL string        `env:"COINMARKETCAP_BASE_URL,default=https://pro-api.coinmarketcap.com/v1"`
	CoinGeckoBaseURL     string        `env:"COINGECKO_BASE_URL,default=https://api.coingecko.com/api/v3"`
	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT,default=10s"`

	CheckInterval time.Duration `env:"CHECK_INTERVAL,default=10s"`

	HTTPAddr     string `env:"HTTP_ADDR,default=:5000"`
	RateLimitRPM int    `env:"RATE_LIMIT_RPM,default=100"`

	// Optional Redis in front of the public prices endpoint. Empty
	// disables caching entirely.
	RedisAddr     string        `env:"REDIS_ADDR"`
	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL,default=10s"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(ctx context.Context) (Config, error) {
	// Same convenience the reference deployment relied on: a .env file in
	// the working directory, if present, seeds the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
