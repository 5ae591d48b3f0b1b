package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	App        AppConfig
	Sui        SuiConfig
	SportsFeed SportsFeedConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret          string
	PlatformFeePercent float64
	SettleInterval     time.Duration
}

// SuiConfig holds Sui chain settings
type SuiConfig struct {
	Network         string
	TreasuryAddress string
	SbetCoinType    string
}

// SportsFeedConfig holds sports data API settings
type SportsFeedConfig struct {
	BaseURL          string
	APIKey           string
	Sport            string
	LiveMaxAge       time.Duration
	UpcomingMaxAge   time.Duration
	LiveInterval     time.Duration
	UpcomingInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "sportsbook"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			PlatformFeePercent: getEnvFloat("PLATFORM_FEE_PERCENT", 1.0),
			SettleInterval:     getEnvDuration("SETTLE_INTERVAL", 30*time.Second),
		},
		Sui: SuiConfig{
			Network:         getEnv("SUI_NETWORK", "testnet"),
			TreasuryAddress: getEnv("SUI_TREASURY_ADDRESS", ""),
			SbetCoinType:    getEnv("SUI_SBET_COIN_TYPE", ""),
		},
		SportsFeed: SportsFeedConfig{
			BaseURL:          getEnv("SPORTS_FEED_URL", "https://api.sportsfeed.example.com/v1"),
			APIKey:           getEnv("SPORTS_FEED_API_KEY", ""),
			Sport:            getEnv("SPORTS_FEED_SPORT", "soccer"),
			LiveMaxAge:       getEnvDuration("LIVE_CACHE_MAX_AGE", 60*time.Second),
			UpcomingMaxAge:   getEnvDuration("UPCOMING_CACHE_MAX_AGE", 10*time.Minute),
			LiveInterval:     getEnvDuration("LIVE_REFRESH_INTERVAL", 20*time.Second),
			UpcomingInterval: getEnvDuration("UPCOMING_REFRESH_INTERVAL", 2*time.Minute),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvFloat gets a float environment variable with a fallback default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration gets a duration environment variable with a fallback default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
