package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cleared-dev/billsight/internal/ingest"
	"github.com/cleared-dev/billsight/internal/model"
)

// writeBills prints bills as an indented JSON array; never null.
func writeBills(w io.Writer, bills []model.RecurringBill) error {
	if bills == nil {
		bills = []model.RecurringBill{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bills); err != nil {
		return fmt.Errorf("encoding recurring bills: %w", err)
	}
	return nil
}

func writeSummary(w io.Writer, report *ingest.Report) {
	fmt.Fprintf(w, "Rows attempted: %d, succeeded: %d, failed: %d, skipped: %d\n",
		report.Attempted, report.Succeeded, report.Failed, report.Skipped)
}
