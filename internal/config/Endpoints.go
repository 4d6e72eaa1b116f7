package config

import (
	"github.com/rs/zerolog/log"
)

// Server and database configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// WebPort is the port the JSON API listens on.
	WebPort int

	// AuditDBEnabled turns on the Postgres receipt journal and parameter store.
	AuditDBEnabled bool

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// loadEndpointConfig loads server and database configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	WebPort, err = getEnvAsInt("WEB_PORT", 8080)
	if err != nil {
		return err
	}

	AuditDBEnabled, err = getEnvAsBool("AUDIT_DB_ENABLED", false)
	if err != nil {
		return err
	}

	DBHost = getEnvOrDefault("DB_HOST", "localhost")
	DBPort, err = getEnvAsInt("DB_PORT", 5432)
	if err != nil {
		return err
	}
	DBUser = getEnvOrDefault("DB_USER", "postgres")
	DBPassword = getEnvOrDefault("DB_PASSWORD", "")
	DBName = getEnvOrDefault("DB_NAME", "ammcore")
	DBSSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	log.Debug().
		Int("WebPort", WebPort).
		Bool("AuditDBEnabled", AuditDBEnabled).
		Str("DBHost", DBHost).
		Int("DBPort", DBPort).
		Str("DBName", DBName).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
