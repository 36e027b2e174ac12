package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/recurring"
)

func newProcessCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "process <input.csv> <output.csv>",
		Short: "Flag recurring transactions in a CSV and fill predicted_next_payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, format, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&format, "format", importer.FormatDMY, formatUsage("input date format"))

	return cmd
}

func runProcess(cmd *cobra.Command, format, inPath, outPath string) error {
	log := logger.FromContext(cmd.Context())

	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return fmt.Errorf("unknown format %q", format)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inPath, err)
	}
	defer in.Close()

	res, err := parser.Parse(in)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", inPath, err)
	}
	for _, rowErr := range res.Errors {
		log.Warn().Int("row", rowErr.Row).Strs("raw", rowErr.Raw).Err(rowErr.Err).Msg("skipping unparseable row")
	}

	flagged := recurring.Flag(res.Transactions())

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := importer.WriteTransactions(out, flagged); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	recurringCount := 0
	for _, t := range flagged {
		if t.Recurring != nil && *t.Recurring {
			recurringCount++
		}
	}
	log.Info().Int("rows", len(flagged)).Int("recurring", recurringCount).Str("output", outPath).Msg("processed transactions")
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transactions (%d recurring) to %s\n", len(flagged), recurringCount, outPath)
	return nil
}
