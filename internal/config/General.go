package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Deployer is the account that deploys every ledger, the pool and the vault at boot.
	// It holds all ledger roles and owns the pool.
	Deployer string

	// LogLevel is the zerolog level name ("debug", "info", ...).
	LogLevel string
	// LogFile optionally mirrors log output to a file.
	LogFile string

	// ManualClock makes the chain clock advance only through the API instead of following
	// wall time. Used for demos and scripted runs.
	ManualClock bool
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// AMMCORE_DEPLOYER is required; everything else has a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Deployer, err = getEnv("AMMCORE_DEPLOYER")
	if err != nil {
		return err
	}
	Deployer = strings.TrimSpace(Deployer)
	if Deployer == "" {
		return errors.New("environment variable AMMCORE_DEPLOYER must not be empty")
	}

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")

	ManualClock, err = getEnvAsBool("AMMCORE_MANUAL_CLOCK", false)
	if err != nil {
		return err
	}

	// Load server and database configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("Deployer", Deployer).
		Str("LogLevel", LogLevel).
		Bool("ManualClock", ManualClock).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def when unset or blank.
func getEnvOrDefault(key, def string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return def
}

// getEnvAsInt retrieves an environment variable as an int, falling back to def when unset.
func getEnvAsInt(key string, def int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return def, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsBool retrieves an environment variable as a bool, falling back to def when unset.
func getEnvAsBool(key string, def bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return def, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}
