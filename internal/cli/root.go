package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/logger"
)

var (
	// Global flags
	envFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ammcore",
	Short: "ammcore - token ledger, constant-product pool and staking vault",
	Long: `ammcore runs a token ledger with role-based access control, a constant-product
liquidity pool and a staking vault on a single in-process chain that applies
transactions one at a time and rolls back every failed one.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "force debug logging regardless of LOG_LEVEL")
}

// loadEnvironment loads the dotenv file and the environment configuration, then sets up logging.
func loadEnvironment() error {
	envErr := godotenv.Load(envFile)
	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := initLogging(config.LogLevel, config.LogFile); err != nil {
		return err
	}
	if envErr != nil {
		log.Warn().Str("file", envFile).Msg("Warning: .env file not found. Relying on OS environment variables.")
	}
	return nil
}

func initLogging(level, file string) error {
	if debug {
		level = "debug"
	}
	var extra []io.Writer
	if file != "" {
		w, err := logger.FileWriter(file)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", file, err)
		}
		extra = append(extra, w)
	}
	logger.Initialize(level, extra...)
	return nil
}
