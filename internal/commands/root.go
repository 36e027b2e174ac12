package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/billsight/internal/buildinfo"
	"github.com/cleared-dev/billsight/internal/config"
	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/store"
	"github.com/cleared-dev/billsight/internal/store/postgres"
)

// deps are the process-level collaborators commands reach for.
type deps struct {
	getenv    func(string) string
	openStore func(ctx context.Context, cfg *config.Config) (store.Store, error)
}

func defaultDeps() deps {
	return deps{
		getenv: os.Getenv,
		openStore: func(ctx context.Context, cfg *config.Config) (store.Store, error) {
			return postgres.Open(ctx, cfg.Store.URL, cfg.Store.MaxConns)
		},
	}
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
}

// loadConfig reads .env, the config file and the environment, in that order.
func (o *globalOptions) loadConfig(d deps) (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(o.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(d.getenv)
	return cfg, nil
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultDeps())
}

func newRootCommand(d deps) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "billsight",
		Short:   "Bank transaction ingestion and recurring bill detection",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log := logger.NewConsole(cmd.ErrOrStderr(), level)
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", fmt.Sprintf("config file (default %s if present)", config.DefaultFile))
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with store credentials")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newUploadCommand(opts, d))
	rootCmd.AddCommand(newRecurringCommand(opts, d))
	rootCmd.AddCommand(newProcessCommand())

	return rootCmd
}

// openStore runs the pre-flight credential check and connects. It must be
// called before any other I/O of a store-backed command.
func openStore(ctx context.Context, d deps, cfg *config.Config) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := d.openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

// formatUsage describes a --format flag with the registered parser names.
func formatUsage(what string) string {
	return fmt.Sprintf("%s (%s)", what, strings.Join(importer.DefaultRegistry().Formats(), ", "))
}
