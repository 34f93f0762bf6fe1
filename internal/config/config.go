package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	SettingsCacheTTLSeconds int
	SessionTTLHours         int
	AuthSecret              string
	AccessTokenTTLMinutes   int
	DefaultTaxRatePercent   float64
	KafkaBrokers            string
	OrderEventsTopic        string
	PublicBaseURL           string
}

// Load reads the environment. A .env file in the working directory is
// applied first; variables already set in the process win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] WARN: failed to read .env: %v", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		AllowedOrigin:           getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 redisDB,
		SettingsCacheTTLSeconds: positiveInt("SETTINGS_CACHE_TTL_SECONDS", 300),
		SessionTTLHours:         positiveInt("SESSION_TTL_HOURS", 12),
		AuthSecret:              strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:   positiveInt("ACCESS_TOKEN_TTL_MINUTES", 480),
		DefaultTaxRatePercent:   taxRate("DEFAULT_TAX_RATE_PERCENT", 16),
		KafkaBrokers:            strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:        getEnv("ORDER_EVENTS_TOPIC", "restopos.orders"),
		PublicBaseURL:           getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:3000"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func positiveInt(key string, fallback int) int {
	val, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || val < 1 {
		return fallback
	}
	return val
}

func taxRate(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 || val > 100 {
		log.Printf("[config] WARN: ignoring %s=%q, using %.2f", key, raw, fallback)
		return fallback
	}
	return val
}
