package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cleared-dev/billsight/internal/model"
)

// Parser converts a transactions CSV into normalized records.
type Parser interface {
	Parse(r io.Reader) (*Result, error)
	Format() string
}

// Record is a successfully normalized row.
type Record struct {
	Row         int // line number in the source file, header = 1
	Transaction model.Transaction
}

// RowError records a row that could not be normalized and was skipped.
type RowError struct {
	Row int
	Raw []string
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result holds the rows of one file: normalized records plus skipped rows.
type Result struct {
	Records []Record
	Errors  []RowError
}

// Transactions returns the normalized transactions in file order.
func (r *Result) Transactions() []model.Transaction {
	txns := make([]model.Transaction, len(r.Records))
	for i, rec := range r.Records {
		txns[i] = rec.Transaction
	}
	return txns
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in an upload directory.
type FileInfo struct {
	Name string
	Path string
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewCSVParser(FormatISO, isoLayouts...))
	r.Register(NewCSVParser(FormatDMY, dmyLayouts...))
	r.Register(NewCSVParser(FormatAuto, append(append([]string{}, isoLayouts...), dmyLayouts...)...))
	return r
}

// processedDir is the subdirectory that finished files are moved into.
const processedDir = "processed"

// Scan returns CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading upload dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	return files, nil
}

// MarkProcessed moves dir/fileName into dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
