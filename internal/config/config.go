/**
 * @description
 * This package handles the configuration management for the ledger service. It uses the
 * Viper library to read configuration from environment variables and an optional `.env`
 * file, providing a single `Config` value that is handed to every component at startup.
 *
 * The `OIKONOMOS_*` names used by the desktop build are accepted as aliases.
 *
 * @dependencies
 * - github.com/spf13/viper: Environment and file based configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	defaultJWTSecret          = "oikonomos-dev-secret-change-this"
	defaultRateLimitPrefix    = "ledger:rate_limit"
	defaultAccessTokenMinutes = 15
	defaultRefreshTokenDays   = 30
	defaultLoginRateLimit     = 10
)

// Config holds all the configuration variables for the ledger service.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	APIPrefix                string `mapstructure:"API_PREFIX"`
	StoreDriver              string `mapstructure:"STORE_DRIVER"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	AccessTokenTTLMinutes    int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshTokenTTLDays      int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	DefaultAdminEmail        string `mapstructure:"DEFAULT_ADMIN_EMAIL"`
	DefaultAdminPassword     string `mapstructure:"DEFAULT_ADMIN_PASSWORD"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EventExchange            string `mapstructure:"EVENT_EXCHANGE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	LoginRateLimitPerMinute  int    `mapstructure:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	DepreciationSchedule     string `mapstructure:"DEPRECIATION_SCHEDULE"`
	DisplayCurrency          string `mapstructure:"DISPLAY_CURRENCY"`
	LogLevel                 string `mapstructure:"LOG_LEVEL"`
	LogPretty                bool   `mapstructure:"LOG_PRETTY"`
	CORSAllowedOriginsString string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	CORSAllowedOrigins []string `mapstructure:"-"`
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTokenTTL is the lifetime of issued refresh tokens.
func (c Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("API_PREFIX", "/api")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ACCESS_TOKEN_TTL_MINUTES", defaultAccessTokenMinutes)
	viper.SetDefault("REFRESH_TOKEN_TTL_DAYS", defaultRefreshTokenDays)
	viper.SetDefault("DEFAULT_ADMIN_EMAIL", "admin@oikonomos.local")
	viper.SetDefault("EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", defaultRateLimitPrefix)
	viper.SetDefault("LOGIN_RATE_LIMIT_PER_MINUTE", defaultLoginRateLimit)
	viper.SetDefault("DISPLAY_CURRENCY", "USD")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("API_PREFIX")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "OIKONOMOS_JWT_SECRET")
	_ = viper.BindEnv("ACCESS_TOKEN_TTL_MINUTES", "ACCESS_TOKEN_TTL_MINUTES", "OIKONOMOS_ACCESS_TOKEN_TTL_MINUTES")
	_ = viper.BindEnv("REFRESH_TOKEN_TTL_DAYS", "REFRESH_TOKEN_TTL_DAYS", "OIKONOMOS_REFRESH_TOKEN_TTL_DAYS")
	_ = viper.BindEnv("DEFAULT_ADMIN_EMAIL", "DEFAULT_ADMIN_EMAIL", "OIKONOMOS_DEFAULT_ADMIN_EMAIL")
	_ = viper.BindEnv("DEFAULT_ADMIN_PASSWORD", "DEFAULT_ADMIN_PASSWORD", "OIKONOMOS_DEFAULT_ADMIN_PASSWORD")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("LOGIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("DEPRECIATION_SCHEDULE")
	_ = viper.BindEnv("DISPLAY_CURRENCY")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_PRETTY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.APIPrefix = "/" + strings.Trim(strings.TrimSpace(config.APIPrefix), "/")
	if config.APIPrefix == "/" {
		config.APIPrefix = ""
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	if config.StoreDriver == "" {
		config.StoreDriver = StoreDriverPostgres
	}
	switch config.StoreDriver {
	case StoreDriverPostgres:
		config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
		if config.DatabaseURL == "" {
			return config, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return config, fmt.Errorf("unsupported STORE_DRIVER %q", config.StoreDriver)
	}

	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	if config.JWTSecret == "" {
		config.JWTSecret = defaultJWTSecret
	}
	if config.JWTSecret == defaultJWTSecret {
		log.Printf("level=warn component=config msg=\"using the development JWT secret; set JWT_SECRET\"")
	}
	if config.AccessTokenTTLMinutes <= 0 {
		config.AccessTokenTTLMinutes = defaultAccessTokenMinutes
	}
	if config.RefreshTokenTTLDays <= 0 {
		config.RefreshTokenTTLDays = defaultRefreshTokenDays
	}
	config.DefaultAdminEmail = strings.ToLower(strings.TrimSpace(config.DefaultAdminEmail))

	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.EventExchange = strings.TrimSpace(config.EventExchange)
	if config.EventExchange == "" {
		config.EventExchange = "ledger.events"
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = defaultRateLimitPrefix
	}
	if config.LoginRateLimitPerMinute <= 0 {
		config.LoginRateLimitPerMinute = defaultLoginRateLimit
	}

	config.DepreciationSchedule = strings.TrimSpace(config.DepreciationSchedule)
	config.DisplayCurrency = strings.ToUpper(strings.TrimSpace(config.DisplayCurrency))
	if config.DisplayCurrency == "" {
		config.DisplayCurrency = "USD"
	}

	config.CORSAllowedOrigins = nil
	for _, origin := range strings.Split(config.CORSAllowedOriginsString, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			config.CORSAllowedOrigins = append(config.CORSAllowedOrigins, origin)
		}
	}

	return
}
