package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays configuration values from environment variables.
//
// Supported variables:
//
//	ADDRESS               HTTP bind address (e.g. ":8080")
//	DATABASE_DSN          PostgreSQL DSN
//	JWT_SECRET            session token signing secret
//	TOKEN_VALIDITY        token lifetime, Go duration syntax (e.g. "24h")
//	MAX_ACTIVITY_ENTRIES  activity history retention bound
//	ALLOWED_ORIGINS       comma-separated CORS origins
//
// Invalid duration or integer values are ignored; the previous value stays.
func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.TokenValidityDuration = d
		}
	}
	if v := os.Getenv("MAX_ACTIVITY_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxActivityEntries = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			config.AllowedOrigins = origins
		}
	}
}
