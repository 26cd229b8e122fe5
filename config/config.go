package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the service.
type Config struct {
	Port             string
	Environment      string
	Domain           string
	MongoURI         string
	MongoDatabase    string
	RedisAddress     string
	RedisPassword    string
	IssueLimitPrefix string
	IssueDailyLimit  int
	JWTSecret        string
	TokenTTL         time.Duration
	CORSOrigins      []string
	NATSURL          string
	LogLevel         string
	LogFormat        string
	RegionsFile      string
	LeaderCacheTTL   time.Duration
	AdminEmail       string
	AdminPassword    string
}

// Production reports whether GO_ENV is production.
func (c Config) Production() bool {
	return c.Environment == "production"
}

// Load reads .env (when present) and the process environment. It reports
// whether a .env file was found.
func Load() (Config, bool) {
	found := godotenv.Load() == nil
	return FromEnv(os.Getenv), found
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		if n, err := strconv.Atoi(getenv(key)); err == nil {
			return n
		}
		return def
	}

	var origins []string
	for _, o := range strings.Split(get("CORS_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		Port:             get("PORT", "8080"),
		Environment:      get("GO_ENV", "development"),
		Domain:           get("DOMAIN", ""),
		MongoURI:         get("MONGODB_URI", ""),
		MongoDatabase:    get("MONGODB_DATABASE", "citizenconnect"),
		RedisAddress:     get("REDIS_ADDRESS", ""),
		RedisPassword:    get("REDIS_PASSWORD", ""),
		IssueLimitPrefix: get("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		IssueDailyLimit:  getInt("ISSUE_DAILY_LIMIT", 10),
		JWTSecret:        get("JWT_SECRET", ""),
		TokenTTL:         time.Duration(getInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:      origins,
		NATSURL:          get("NATS_URL", ""),
		LogLevel:         get("LOG_LEVEL", "info"),
		LogFormat:        get("LOG_FORMAT", "console"),
		RegionsFile:      get("REGIONS_FILE", ""),
		LeaderCacheTTL:   time.Duration(getInt("LEADER_CACHE_MINUTES", 5)) * time.Minute,
		AdminEmail:       strings.ToLower(get("ADMIN_EMAIL", "")),
		AdminPassword:    get("ADMIN_PASSWORD", ""),
	}
}
