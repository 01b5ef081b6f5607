package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration for the governance core.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	Postgres      PostgresConfig
	Redis         RedisConfig
}

// PostgresConfig holds the durable store connection settings.
type PostgresConfig struct {
	DSN string
}

// RedisConfig holds settings for the best-effort consent status cache.
// An empty URL disables the cache entirely; the core then always consults
// the durable store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CUSTOS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "custos"
	}
	audience := os.Getenv("JWT_AUDIENCE")
	if audience == "" {
		audience = "custos-core"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     issuer,
		JWTAudience:   audience,
		Postgres: PostgresConfig{
			DSN: os.Getenv("CUSTOS_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("CUSTOS_REDIS_URL"),
			PoolSize:     envInt("CUSTOS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CUSTOS_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("CUSTOS_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CUSTOS_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CUSTOS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
