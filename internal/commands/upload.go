package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/billsight/internal/config"
	"github.com/cleared-dev/billsight/internal/failurelog"
	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/ingest"
	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/store"
	"github.com/cleared-dev/billsight/internal/store/memory"
)

type uploadOptions struct {
	dir         string
	format      string
	concurrency int
	failureLog  string
	dryRun      bool
	strict      bool
}

// uploadFile is one input with where it came from.
type uploadFile struct {
	path    string
	fromDir bool
}

func newUploadCommand(global *globalOptions, d deps) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload [file.csv...]",
		Short: "Upsert transactions from CSV files into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.dir == "" {
				return errors.New("no input: pass CSV files or --dir")
			}
			cfg, err := global.loadConfig(d)
			if err != nil {
				return err
			}
			applyUploadFlags(cmd, &opts, cfg)
			return runUpload(cmd, d, cfg, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "upload every CSV in this directory and move each into <dir>/processed")
	cmd.Flags().StringVar(&opts.format, "format", "", formatUsage("input date format, default from config"))
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "upserts in flight (default from config)")
	cmd.Flags().StringVar(&opts.failureLog, "failure-log", "", "append failed rows to this CSV (default from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and upsert into memory only")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit non-zero if any row fails")

	return cmd
}

// applyUploadFlags lets explicitly set flags override the config file.
func applyUploadFlags(cmd *cobra.Command, opts *uploadOptions, cfg *config.Config) {
	if !cmd.Flags().Changed("format") {
		opts.format = cfg.Ingest.Format
	}
	if !cmd.Flags().Changed("concurrency") {
		opts.concurrency = cfg.Ingest.Concurrency
	}
	if !cmd.Flags().Changed("failure-log") {
		opts.failureLog = cfg.Ingest.FailureLog
	}
}

func runUpload(cmd *cobra.Command, d deps, cfg *config.Config, opts uploadOptions, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	parser := importer.DefaultRegistry().Get(opts.format)
	if parser == nil {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	var s store.Store
	if opts.dryRun {
		s = memory.New()
	} else {
		var err error
		s, err = openStore(ctx, d, cfg)
		if err != nil {
			return err
		}
	}
	defer s.Close()

	files, err := collectUploadFiles(opts.dir, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info().Str("dir", opts.dir).Msg("no CSV files to upload")
		return nil
	}

	runner := ingest.NewRunner(s, cfg.Store.Table, cfg.Store.ConflictKey, opts.concurrency)
	total := &ingest.Report{}
	for _, f := range files {
		report, err := uploadOne(ctx, runner, parser, f.path)
		if report != nil {
			total.Add(report)
			if logErr := appendFailures(opts.failureLog, f.path, report); logErr != nil {
				log.Warn().Err(logErr).Msg("failed to write failure log")
			}
		}
		if err != nil {
			return err
		}
		if f.fromDir && !opts.dryRun {
			if err := importer.MarkProcessed(opts.dir, filepath.Base(f.path)); err != nil {
				return err
			}
		}
	}

	writeSummary(cmd.OutOrStdout(), total)
	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run: nothing was written to the store")
	}
	if opts.strict && (total.Failed > 0 || total.Skipped > 0) {
		return fmt.Errorf("%w: %d failed, %d skipped", ingest.ErrRowsFailed, total.Failed, total.Skipped)
	}
	return nil
}

func collectUploadFiles(dir string, args []string) ([]uploadFile, error) {
	var files []uploadFile
	for _, a := range args {
		files = append(files, uploadFile{path: a})
	}
	if dir == "" {
		return files, nil
	}
	found, err := importer.Scan(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		files = append(files, uploadFile{path: f.Path, fromDir: true})
	}
	return files, nil
}

func uploadOne(ctx context.Context, runner *ingest.Runner, parser importer.Parser, path string) (*ingest.Report, error) {
	log := logger.FromContext(ctx).With().Str("file", path).Logger()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	log.Info().Int("rows", len(res.Records)+len(res.Errors)).Str("format", parser.Format()).Msg("uploading")

	report, err := runner.Run(logger.WithContext(ctx, log), res)
	if err != nil {
		return report, fmt.Errorf("uploading %s: %w", path, err)
	}
	log.Info().
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("upload finished")
	return report, nil
}

func appendFailures(path, source string, report *ingest.Report) error {
	if path == "" {
		return nil
	}
	return failurelog.Append(path, failurelog.FromReport(source, report, time.Now().UTC()))
}
