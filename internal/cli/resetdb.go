package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/state"
)

var seedDefaults bool

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Drop and recreate the audit database schema",
	Long: `Drops every ammcore table (receipts, the committed transaction counter and the
stored protocol parameters) and recreates the schema. All history is lost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvironment(); err != nil {
			return err
		}
		log.Info().Msg("Starting database reset...")

		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		log.Info().
			Str("host", dbCfg.Host).
			Int("port", dbCfg.Port).
			Str("user", dbCfg.User).
			Str("dbname", dbCfg.DBName).
			Msg("Connecting to database")

		if err := state.InitDB(dbCfg); err != nil {
			return fmt.Errorf("failed to initialize database connection: %w", err)
		}
		defer state.CloseDB()

		log.Info().Msg("Connected to database. Attempting to drop all tables...")
		if err := state.DropSchema(); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		log.Info().Msg("Successfully dropped all tables")

		log.Info().Msg("Recreating database schema...")
		if err := state.EnsureSchema(); err != nil {
			return fmt.Errorf("failed to recreate database schema: %w", err)
		}

		if seedDefaults {
			id, err := state.SaveProtocolParameters(config.DefaultProtocolParameters, DefaultParametersName, DefaultParametersVersion, true)
			if err != nil {
				return fmt.Errorf("failed to seed default protocol parameters: %w", err)
			}
			log.Info().Int64("params_id", id).Msg("Seeded default protocol parameters")
		}

		log.Info().Msg("Database reset complete!")
		return nil
	},
}

func init() {
	resetDBCmd.Flags().BoolVar(&seedDefaults, "seed-defaults", false, "store the default protocol parameters as the active set")
	rootCmd.AddCommand(resetDBCmd)
}
