package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Station   StationConfig
	Scheduler SchedulerConfig
	Payments  PaymentsConfig
	MQTT      MQTTConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StationConfig describes the broadcasting station itself.
type StationConfig struct {
	Timezone string
}

// Location resolves the configured timezone, falling back to UTC.
func (c StationConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SchedulerConfig governs gap filling, rescheduling and schedule caching.
type SchedulerConfig struct {
	MusicTitle       string
	MusicGenre       string
	AutoFill         bool
	StrictReschedule bool
	CacheEnabled     bool
	CacheTTL         time.Duration
}

// PaymentsConfig holds contributor rates and payroll worker tuning.
type PaymentsConfig struct {
	HourlyRate     string
	EventFee       string
	VATRate        string
	Currency       string
	PayrollWorkers int
	PayrollRetries int
}

// MQTTConfig toggles schedule change notifications.
type MQTTConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

// RateLimitConfig throttles mutating schedule endpoints.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Station = StationConfig{Timezone: v.GetString("STATION_TIMEZONE")}

	cfg.Scheduler = SchedulerConfig{
		MusicTitle:       v.GetString("SCHEDULER_MUSIC_TITLE"),
		MusicGenre:       v.GetString("SCHEDULER_MUSIC_GENRE"),
		AutoFill:         v.GetBool("SCHEDULER_AUTO_FILL"),
		StrictReschedule: v.GetBool("SCHEDULER_STRICT_RESCHEDULE"),
		CacheEnabled:     v.GetBool("ENABLE_SCHEDULE_CACHE"),
		CacheTTL:         parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Payments = PaymentsConfig{
		HourlyRate:     v.GetString("PAYMENT_HOURLY_RATE"),
		EventFee:       v.GetString("PAYMENT_EVENT_FEE"),
		VATRate:        v.GetString("PAYMENT_VAT_RATE"),
		Currency:       v.GetString("PAYMENT_CURRENCY"),
		PayrollWorkers: v.GetInt("PAYROLL_WORKERS"),
		PayrollRetries: v.GetInt("PAYROLL_RETRIES"),
	}

	cfg.MQTT = MQTTConfig{
		Enabled:     v.GetBool("ENABLE_MQTT"),
		BrokerURL:   v.GetString("MQTT_BROKER_URL"),
		ClientID:    v.GetString("MQTT_CLIENT_ID"),
		TopicPrefix: v.GetString("MQTT_TOPIC_PREFIX"),
	}

	cfg.RateLimit = RateLimitConfig{
		RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
		Burst: v.GetInt("RATE_LIMIT_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const devJWTSecret = "dev_secret"

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if _, err := time.LoadLocation(c.Station.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("STATION_TIMEZONE %q: %v", c.Station.Timezone, err))
	}
	if c.Env == EnvProduction && (c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret) {
		problems = append(problems, "JWT_SECRET must be set in production")
	}
	if c.Payments.PayrollWorkers < 1 {
		problems = append(problems, "PAYROLL_WORKERS must be at least 1")
	}
	if c.MQTT.Enabled && c.MQTT.BrokerURL == "" {
		problems = append(problems, "MQTT_BROKER_URL is required when ENABLE_MQTT is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "radio")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "radio-schedule-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATION_TIMEZONE", "UTC")

	v.SetDefault("SCHEDULER_MUSIC_TITLE", "Music Playlist")
	v.SetDefault("SCHEDULER_MUSIC_GENRE", "Mixed")
	v.SetDefault("SCHEDULER_AUTO_FILL", false)
	v.SetDefault("SCHEDULER_STRICT_RESCHEDULE", false)
	v.SetDefault("ENABLE_SCHEDULE_CACHE", false)
	v.SetDefault("SCHEDULE_CACHE_TTL", "5m")

	v.SetDefault("PAYMENT_HOURLY_RATE", "750")
	v.SetDefault("PAYMENT_EVENT_FEE", "300")
	v.SetDefault("PAYMENT_VAT_RATE", "0.25")
	v.SetDefault("PAYMENT_CURRENCY", "SEK")
	v.SetDefault("PAYROLL_WORKERS", 1)
	v.SetDefault("PAYROLL_RETRIES", 3)

	v.SetDefault("ENABLE_MQTT", false)
	v.SetDefault("MQTT_BROKER_URL", "tcp://localhost:1883")
	v.SetDefault("MQTT_CLIENT_ID", "radio-schedule-api")
	v.SetDefault("MQTT_TOPIC_PREFIX", "radio")

	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
