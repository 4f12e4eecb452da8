package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"fleetbudget/internal/backend"
	"fleetbudget/internal/cli"
	"fleetbudget/internal/config"
	"fleetbudget/internal/core"
	"fleetbudget/internal/log"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

// app carries the state shared by every subcommand.
type app struct {
	backendType string
	dataDir     string
	verbose     bool

	logger  *log.Logger
	backend *backend.Backend
	now     func() time.Time
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Fleet invoices and monthly budget alerts from the command line",
		Long: `fleetctl works directly against the configured store (DATA_BACKEND,
SQLITE_DB_PATH, MYSQL_DSN, ...), the same one the fleet server and the
budget worker use. A .env file in the working directory is loaded first.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = log.New(log.Config{
				Level:     level,
				Component: log.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
		},
	}

	root.PersistentFlags().StringVar(&a.backendType, "backend", "",
		"storage backend, one of "+strings.Join(backend.GetBackendTypeStrings(), "|")+" (default $DATA_BACKEND)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "data", "seed directory of the memory backend")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log at debug level")

	root.AddCommand(
		newInvoiceCmd(a),
		newBudgetCmd(a),
		newAlertsCmd(a),
		newVehiclesCmd(a),
		newExportCmd(a),
	)
	return root
}

func Execute() {
	a := &app{now: time.Now}
	err := newRootCmd(a).Execute()
	if cerr := a.close(); cerr != nil && a.logger != nil {
		a.logger.Warn("Backend cleanup failed", log.FieldError, cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// open creates the backend on first use; commands that only compute never touch the store.
func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	cfg := config.Load()
	if a.backendType != "" {
		cfg.DataBackend = a.backendType
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.DataDirectory = a.dataDir

	b, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	a.backend = b
	return b, nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Cleanup()
	a.backend = nil
	return err
}

// period parses a --period value, defaulting to the current month.
func (a *app) period(v string) (core.Period, error) {
	if v == "" {
		return core.PeriodOf(a.now()), nil
	}
	return core.ParsePeriod(v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
