// Package failurelog appends rows that could not be ingested to a CSV file
// so they can be fixed and re-uploaded.
package failurelog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cleared-dev/billsight/internal/ingest"
)

// Entry is one failed row.
type Entry struct {
	Timestamp time.Time
	Source    string // input file
	Stage     ingest.Stage
	Row       int
	Error     string
	Raw       string // the row's cells, CSV-encoded
}

// Header is the CSV header of the failure log.
const Header = "timestamp,source,stage,row,error,raw"

const (
	numFields    = 6
	colTimestamp = 0
	colSource    = 1
	colStage     = 2
	colRow       = 3
	colError     = 4
	colRaw       = 5
)

// FromReport builds entries for every failed or skipped outcome in report.
func FromReport(source string, report *ingest.Report, now time.Time) []Entry {
	var entries []Entry
	for _, o := range report.Failures() {
		entries = append(entries, Entry{
			Timestamp: now,
			Source:    source,
			Stage:     o.Stage,
			Row:       o.Row,
			Error:     o.Err.Error(),
			Raw:       encodeRaw(o.Raw),
		})
	}
	return entries
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colSource] = e.Source
	row[colStage] = string(e.Stage)
	row[colRow] = strconv.Itoa(e.Row)
	row[colError] = e.Error
	row[colRaw] = e.Raw
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	row, err := strconv.Atoi(record[colRow])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing row %q: %w", record[colRow], err)
	}

	return Entry{
		Timestamp: ts,
		Source:    record[colSource],
		Stage:     ingest.Stage(record[colStage]),
		Row:       row,
		Error:     record[colError],
		Raw:       record[colRaw],
	}, nil
}

// Append writes entries to path, creating the file, its directory and the
// header if needed.
func Append(path string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating failure log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries in path, or nil if it does not exist.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening failure log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading failure log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// encodeRaw renders cells as a single CSV line without the trailing newline.
func encodeRaw(cells []string) string {
	if len(cells) == 0 {
		return ""
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(cells)
	cw.Flush()
	return strings.TrimRight(buf.String(), "\n")
}
