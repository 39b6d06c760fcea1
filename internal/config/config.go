// Package config loads application configuration from environment
// variables and constructs shared infrastructure clients.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable; strings for identifiers and
// secrets, ints for durations and costs.
type Config struct {
	Env               string        // application environment (e.g. "dev", "prod")
	Port              string        // HTTP port to listen on
	DBUser            string        // database username
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	DBMaxOpenConns    int           // connection pool upper bound
	DBMaxIdleConns    int           // idle connections kept in the pool
	DBConnMaxLifetime time.Duration // recycle connections after this age
	JWTSecret         string        // secret used to sign JWTs
	AccessTTLMin      int           // access token time-to-live in minutes
	RefreshTTLDays    int           // refresh token time-to-live in days
	BcryptCost        int           // bcrypt cost for password hashing
}

// Load reads configuration from the environment. Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"), // empty allowed
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		DBMaxOpenConns:    atoi(getenv("DB_MAX_OPEN_CONNS", "25")),
		DBMaxIdleConns:    atoi(getenv("DB_MAX_IDLE_CONNS", "25")),
		DBConnMaxLifetime: parseDur(getenv("DB_CONN_MAX_LIFETIME", "30m")),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:    mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:        mustInt("BCRYPT_COST"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
