package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/ammcore/internal/chain"
	"github.com/elys-network/ammcore/internal/config"
	"github.com/elys-network/ammcore/internal/protocol"
	"github.com/elys-network/ammcore/internal/state"
	"github.com/elys-network/ammcore/internal/types"
	"github.com/elys-network/ammcore/internal/web"
)

const (
	// DefaultParametersName is the parameter set loaded from the database at boot.
	DefaultParametersName    = "default"
	DefaultParametersVersion = 1

	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deploy the protocol and serve the JSON API",
	Long: `Deploys the four ledgers, the pool and the vault for AMMCORE_DEPLOYER and serves
the JSON API on WEB_PORT. With AUDIT_DB_ENABLED=true every receipt is also written
to PostgreSQL and the protocol parameters are loaded from there.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadEnvironment(); err != nil {
		return err
	}
	log.Info().Str("version", rootCmd.Version).Msg("ammcore starting...")

	params := config.DefaultProtocolParameters
	var sinks []chain.Sink
	if config.AuditDBEnabled {
		dbCfg := state.DBConfig{
			Host: config.DBHost, Port: config.DBPort,
			User: config.DBUser, Password: config.DBPassword,
			DBName: config.DBName, SSLMode: config.DBSSLMode,
		}
		if err := state.InitDB(dbCfg); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}

		loaded, err := loadParameters()
		if err != nil {
			return err
		}
		params = *loaded
		sinks = append(sinks, state.NewReceiptStore())
	}
	log.Info().
		Str("initial_supply", params.InitialSupply).
		Uint32("pool_fee_rate_bps", params.PoolFeeRateBps).
		Str("reward_rate", params.RewardRate).
		Dur("reward_rate_period", params.RewardRatePeriod).
		Msg("Protocol parameters loaded successfully.")

	var clock chain.Clock = chain.SystemClock{}
	if config.ManualClock {
		log.Warn().Msg("Manual clock enabled. Chain time only moves through POST /api/clock/advance.")
		clock = chain.NewManualClock()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := protocol.NewProtocol(ctx, protocol.Config{
		Deployer: types.Address(config.Deployer),
		Params:   &params,
		Assets:   config.DefaultAssets,
		Clock:    clock,
		Sinks:    sinks,
	})
	if err != nil {
		return fmt.Errorf("failed to deploy protocol: %w", err)
	}

	port := strconv.Itoa(config.WebPort)
	web.ServiceVersion = rootCmd.Version
	server := web.NewWebServer(p, web.Options{Port: port, AuditDB: config.AuditDBEnabled}).Server()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", port).Str("url", "http://localhost:"+port).Msg("Starting ammcore API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Uint64("height", p.Chain().Height()).Msg("ammcore stopped")
	return nil
}

// loadParameters reads the active parameter set, seeding the defaults on first boot.
func loadParameters() (*types.ProtocolParameters, error) {
	params, err := state.LoadActiveProtocolParameters(DefaultParametersName)
	if err == nil {
		return params, nil
	}
	if !errors.Is(err, state.ErrNoActiveParameters) {
		return nil, fmt.Errorf("failed to load protocol parameters: %w", err)
	}

	log.Warn().Msg("No active protocol parameters found, saving defaults.")
	defaults := config.DefaultProtocolParameters
	if _, err := state.SaveProtocolParameters(defaults, DefaultParametersName, DefaultParametersVersion, true); err != nil {
		return nil, fmt.Errorf("failed to save default protocol parameters: %w", err)
	}
	return &defaults, nil
}
