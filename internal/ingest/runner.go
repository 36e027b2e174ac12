// Package ingest upserts normalized transactions into the store and
// accounts for every row.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/billsight/internal/importer"
	"github.com/cleared-dev/billsight/internal/logger"
	"github.com/cleared-dev/billsight/internal/store"
)

// DefaultConcurrency is the number of upserts in flight at once.
const DefaultConcurrency = 4

// Stage says where a row failed.
type Stage string

const (
	StageParse Stage = "parse"
	StageWrite Stage = "write"
)

// Outcome is the result of one row.
type Outcome struct {
	Row   int // line number in the source file
	ID    string
	Stage Stage // set when Err is non-nil
	Raw   []string
	Err   error
}

// OK reports whether the row was written.
func (o Outcome) OK() bool { return o.Err == nil }

// Report summarizes one batch. Attempted counts rows submitted to the
// store; Skipped counts rows that never got that far.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

// Failures returns the outcomes of rows that were skipped or failed.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Add folds other into r.
func (r *Report) Add(other *Report) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// Runner upserts records concurrently.
type Runner struct {
	store       store.Store
	table       string
	conflictKey string
	concurrency int
}

// NewRunner creates a Runner writing to table, resolving conflicts on conflictKey.
func NewRunner(s store.Store, table, conflictKey string, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{store: s, table: table, conflictKey: conflictKey, concurrency: concurrency}
}

// Run writes every record of res and returns a Report covering both the
// rows the parser skipped and the rows the store rejected. A rejected row
// never stops the batch; only cancellation of ctx does, in which case the
// report so far is returned together with the context error.
func (r *Runner) Run(ctx context.Context, res *importer.Result) (*Report, error) {
	log := logger.FromContext(ctx)

	report := &Report{}
	for _, rowErr := range res.Errors {
		report.Skipped++
		report.Outcomes = append(report.Outcomes, Outcome{
			Row:   rowErr.Row,
			Stage: StageParse,
			Raw:   rowErr.Raw,
			Err:   rowErr.Err,
		})
		log.Warn().Int("row", rowErr.Row).Strs("raw", rowErr.Raw).Err(rowErr.Err).Msg("skipping unparseable row")
	}

	// Each goroutine owns one slot, so no locking is needed.
	written := make([]Outcome, len(res.Records))
	submitted := make([]bool, len(res.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, rec := range res.Records {
		if gctx.Err() != nil {
			break
		}
		submitted[i] = true
		g.Go(func() error {
			out := Outcome{Row: rec.Row, ID: rec.Transaction.ID}
			if err := r.store.Upsert(gctx, r.table, rec.Transaction, r.conflictKey); err != nil {
				out.Stage = StageWrite
				out.Raw = importer.MarshalTransaction(rec.Transaction)
				out.Err = err
				log.Error().Int("row", rec.Row).Str("id", rec.Transaction.ID).Err(err).Msg("upsert failed")
			} else {
				log.Debug().Int("row", rec.Row).Str("id", rec.Transaction.ID).Msg("upserted row")
			}
			written[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range written {
		if !submitted[i] {
			continue
		}
		report.Attempted++
		if out.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, out)
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("upload interrupted after %d of %d rows: %w", report.Attempted, len(res.Records), err)
	}
	if report.Failed > 0 || report.Skipped > 0 {
		log.Warn().
			Int("attempted", report.Attempted).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Msg("batch finished with errors")
	}
	return report, nil
}

// ErrRowsFailed is returned by callers that treat any failed row as fatal.
var ErrRowsFailed = errors.New("some rows failed")
