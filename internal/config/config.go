package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"chat-relay/internal/repository"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	RedisURL          string
	Port              string
	Env               string
	HistoryLimit      int
	MissingRoomPolicy repository.MissingRoomPolicy
	ServerID          string
}

func Load() *Config {
	log.Println("[CONFIG] Attempting to load .env file...")

	err := godotenv.Load()
	if err != nil {
		log.Println("[CONFIG] ℹ️ No .env file found, relying on system environment variables")
	} else {
		log.Println("[CONFIG] ✅ Successfully loaded .env file")
	}

	cfg := &Config{
		RedisURL:          getEnv("REDIS_URL", ""),
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("APP_ENV", "development"),
		HistoryLimit:      getEnvInt("HISTORY_LIMIT", repository.DefaultHistoryLimit),
		MissingRoomPolicy: parsePolicy(getEnv("MISSING_ROOM_POLICY", string(repository.PolicyLenient))),
		ServerID:          getEnv("SERVER_ID", uuid.NewString()),
	}

	log.Printf("[CONFIG] Environment: %s", cfg.Env)
	log.Printf("[CONFIG] Target Port: %s", cfg.Port)
	log.Printf("[CONFIG] History limit: %d messages per room", cfg.HistoryLimit)
	log.Printf("[CONFIG] Missing-room policy: %s", cfg.MissingRoomPolicy)
	log.Printf("[CONFIG] Server instance id: %s", cfg.ServerID)

	if cfg.RedisURL == "" {
		log.Fatal("[CONFIG] ❌ CRITICAL: REDIS_URL is missing. Server cannot start.")
	} else {
		log.Printf("[CONFIG] Redis URL detected: %s", maskRedisURL(cfg.RedisURL))
	}

	log.Println("[CONFIG] All configuration variables successfully initialized")
	return cfg
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		log.Printf("[CONFIG] ⚠️  Variable %s not found, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		log.Printf("[CONFIG] ⚠️  Variable %s has invalid value %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func parsePolicy(value string) repository.MissingRoomPolicy {
	switch repository.MissingRoomPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case repository.PolicyStrict:
		return repository.PolicyStrict
	case repository.PolicyLenient:
		return repository.PolicyLenient
	default:
		log.Printf("[CONFIG] ⚠️  Unknown MISSING_ROOM_POLICY %q, using %s", value, repository.PolicyLenient)
		return repository.PolicyLenient
	}
}

func maskRedisURL(url string) string {
	parts := strings.Split(url, "@")
	if len(parts) < 2 {
		return url
	}
	return "redis://****:****@" + parts[len(parts)-1]
}
