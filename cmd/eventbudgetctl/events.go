package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"eventbudget/internal/backend"
	"eventbudget/internal/config"
	"eventbudget/internal/seed"
	"eventbudget/internal/services"
)

var (
	flagSeedDir  string
	flagInterval string
	flagStrategy string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample templates, events and expenses into empty tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withBackend(cmd.Context(), func(cfg *config.Config, be *backend.BackendResult) error {
			dir := cfg.SeedDir
			if flagSeedDir != "" {
				dir = flagSeedDir
			}
			res, err := seed.NewLoader(be.Store, os.DirFS(dir)).Load(cmd.Context())
			if err != nil {
				return err
			}
			if res.Empty() {
				fmt.Fprintln(cmd.OutOrStdout(), "  Nothing to seed, tables already populated")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Templates: %d\n  Events:    %d\n  Expenses:  %d\n",
				res.Templates, res.Events, res.Expenses)
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <event-id>",
	Short: "Print the spending summary of an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEventID(args[0])
		if err != nil {
			return err
		}
		return withBackend(cmd.Context(), func(cfg *config.Config, be *backend.BackendResult) error {
			summary, err := newEventService(cfg, be).Summary(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		})
	},
}

var cashflowCmd = &cobra.Command{
	Use:   "cashflow <event-id>",
	Short: "Print the weekly or monthly spending of an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEventID(args[0])
		if err != nil {
			return err
		}
		return withBackend(cmd.Context(), func(cfg *config.Config, be *backend.BackendResult) error {
			points, err := newEventService(cfg, be).Cashflow(cmd.Context(), id, flagInterval)
			if err != nil {
				return err
			}
			return printJSON(cmd, points)
		})
	},
}

var allocateCmd = &cobra.Command{
	Use:   "allocate <event-id> <total-budget>",
	Short: "Distribute a budget over the categories of an event",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEventID(args[0])
		if err != nil {
			return err
		}
		total, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid total budget %q", args[1])
		}
		return withBackend(cmd.Context(), func(cfg *config.Config, be *backend.BackendResult) error {
			res, err := newEventService(cfg, be).Allocate(cmd.Context(), id, services.AllocationRequest{
				TotalBudget: total,
				Strategy:    flagStrategy,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		})
	},
}

var shareCmd = &cobra.Command{
	Use:   "share <event-id>",
	Short: "Print the public share link of an event, issuing one if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEventID(args[0])
		if err != nil {
			return err
		}
		return withBackend(cmd.Context(), func(cfg *config.Config, be *backend.BackendResult) error {
			link, err := newEventService(cfg, be).EnsureShareLink(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.ShareURL)
			return nil
		})
	},
}

func init() {
	decimal.MarshalJSONWithoutQuotes = true

	seedCmd.Flags().StringVar(&flagSeedDir, "dir", "", "Seed directory (defaults to SEED_DIR)")
	cashflowCmd.Flags().StringVar(&flagInterval, "interval", "month", "Bucket size: week or month")
	allocateCmd.Flags().StringVar(&flagStrategy, "strategy", "", "equal or templateWeighted (default equal)")

	rootCmd.AddCommand(seedCmd, summaryCmd, cashflowCmd, allocateCmd, shareCmd)
}

func parseEventID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return id, nil
}
