// Command incargo manages the cargo intake register from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jacentio/incargo/internal/config"
	"github.com/jacentio/incargo/register"
	"github.com/jacentio/incargo/store"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	// Global flags
	configPath string
	backend    string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	store  store.RecordStore
	closer io.Closer
	svc    *register.Service

	// now overrides the register clock; tests pin it.
	now func() time.Time
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	// Post-run hooks are skipped when a command fails.
	if cerr := a.teardown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "incargo",
		Short: "Cargo intake register",
		Long: `incargo records incoming container cargo in a date-keyed register.

Records live at <root>/<yyyy>/<mm>/<dd>/<consignee>/<key>. The register can be
kept in a local SQLite file, in DynamoDB, or in memory for a throwaway session.

Configuration is read from incargo.toml, a .env file and INCARGO_* variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default incargo.toml)")
	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "store backend: memory, sqlite or dynamodb")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newIntakeCmd(a),
		newListCmd(a),
		newSummaryCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newFindCmd(a),
		newMoveCmd(a),
		newSetDateCmd(a),
		newDeleteCmd(a),
		newAnalyzeCmd(a),
		newMigrateCmd(a),
	)
	return rootCmd
}

// setup loads the configuration, builds the logger and opens the store.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	if a.store == nil {
		rs, closer, err := openStore(cmd.Context(), cfg, a.logger)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
		}
		a.store, a.closer = rs, closer
	}

	regCfg := cfg.Register()
	if a.now != nil {
		regCfg.Now = a.now
	}
	regCfg.OnChange = func(c register.Change) {
		a.logger.Debug("register changed", "op", c.Op, "paths", len(c.Paths))
	}
	a.svc = register.New(a.store, regCfg, a.logger)
	return nil
}

func (a *app) teardown() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
