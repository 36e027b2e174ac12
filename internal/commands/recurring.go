package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/billsight/internal/config"
	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/ingest"
	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/model"
	"github.com/cleared-dev/billsight/internal/recurring"
	"github.com/cleared-dev/billsight/internal/store"
	"github.com/cleared-dev/billsight/internal/store/memory"
)

type recurringOptions struct {
	since       string
	description string
	fromCSV     string
	format      string
}

func newRecurringCommand(global *globalOptions, d deps) *cobra.Command {
	var opts recurringOptions

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect recurring bills in stored transactions and print them as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(d)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("format") {
				opts.format = cfg.Ingest.Format
			}
			return runRecurring(cmd, d, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.since, "since", "", "only consider transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.description, "description", "", "only consider transactions with exactly this description")
	cmd.Flags().StringVar(&opts.fromCSV, "from-csv", "", "analyze a CSV file instead of the store")
	cmd.Flags().StringVar(&opts.format, "format", "", formatUsage("date format of --from-csv"))

	return cmd
}

func runRecurring(cmd *cobra.Command, d deps, cfg *config.Config, opts recurringOptions) error {
	ctx := cmd.Context()

	filter := store.ReadOptions{Description: opts.description}
	if opts.since != "" {
		since, err := model.ParseDate(opts.since)
		if err != nil {
			return fmt.Errorf("parsing --since %q: %w", opts.since, err)
		}
		filter.Since = &since
	}

	var s store.Store
	var err error
	if opts.fromCSV != "" {
		s, err = loadCSVStore(ctx, cfg, opts.fromCSV, opts.format)
	} else {
		s, err = openStore(ctx, d, cfg)
	}
	if err != nil {
		return err
	}
	defer s.Close()

	bills, err := recurring.NewAnalyzer(s, cfg.Store.Table, cfg.DetectOptions()).Analyze(ctx, filter)
	if err != nil {
		return err
	}
	return writeBills(cmd.OutOrStdout(), bills)
}

// loadCSVStore ingests path into a fresh memory store.
func loadCSVStore(ctx context.Context, cfg *config.Config, path, format string) (store.Store, error) {
	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return nil, fmt.Errorf("unknown format %q", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	s := memory.New()
	log := logger.FromContext(ctx).With().Str("file", path).Logger()
	if _, err := ingest.NewRunner(s, cfg.Store.Table, store.DefaultConflictKey, 1).Run(logger.WithContext(ctx, log), res); err != nil {
		return nil, err
	}
	return s, nil
}
