package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type EngineConfig struct {
	UsageWindowDays  int
	LeadTimeDays     int
	ForecastHorizon  int
	AnalyzerWorkers  int
	OrderingCostIDR  float64
	HoldingRatePerYr float64
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	InsightsTTLSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockwise")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("ENGINE_USAGE_WINDOW_DAYS", 30)
		viper.SetDefault("ENGINE_LEAD_TIME_DAYS", 7)
		viper.SetDefault("ENGINE_FORECAST_HORIZON_DAYS", 30)
		viper.SetDefault("ENGINE_ANALYZER_WORKERS", 8)
		viper.SetDefault("ENGINE_ORDERING_COST_IDR", 25000.0)
		viper.SetDefault("ENGINE_HOLDING_RATE_PER_YEAR", 0.2)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_INSIGHTS_TTL_SECONDS", 60)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Engine: EngineConfig{
				UsageWindowDays:  viper.GetInt("ENGINE_USAGE_WINDOW_DAYS"),
				LeadTimeDays:     viper.GetInt("ENGINE_LEAD_TIME_DAYS"),
				ForecastHorizon:  viper.GetInt("ENGINE_FORECAST_HORIZON_DAYS"),
				AnalyzerWorkers:  viper.GetInt("ENGINE_ANALYZER_WORKERS"),
				OrderingCostIDR:  viper.GetFloat64("ENGINE_ORDERING_COST_IDR"),
				HoldingRatePerYr: viper.GetFloat64("ENGINE_HOLDING_RATE_PER_YEAR"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				InsightsTTLSeconds: viper.GetInt("CACHE_INSIGHTS_TTL_SECONDS"),
			},
		}
	})

	return instance
}
