// Command eventbudgetctl runs maintenance and reporting tasks against the
// configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eventbudget/internal/backend"
	"eventbudget/internal/cli"
	"eventbudget/internal/config"
	"eventbudget/internal/log"
	"eventbudget/internal/services"
)

var (
	flagDBPath  string
	flagBackend string
)

var rootCmd = &cobra.Command{
	Use:           "eventbudgetctl",
	Short:         "Event budget maintenance CLI",
	Long:          "Manage the event budget database: migrations, seeding and budget reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (defaults to SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Data backend (defaults to DATA_BACKEND)")
}

func main() {
	cli.LoadEnvFile()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	if flagBackend != "" {
		cfg.DataBackend = flagBackend
	}
	// Reports never publish; keep the broker out of the way.
	cfg.AMQPURL = ""
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// withBackend opens the configured store for the duration of fn.
func withBackend(ctx context.Context, fn func(cfg *config.Config, be *backend.BackendResult) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer be.Cleanup()

	return fn(cfg, be)
}

func newEventService(cfg *config.Config, be *backend.BackendResult) *services.EventService {
	return services.NewEventService(be.Store, nil, services.EventServiceConfig{ShareBaseURL: cfg.ShareBaseURL})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
