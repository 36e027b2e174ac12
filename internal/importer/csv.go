package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/billsight/internal/id"
	"github.com/cleared-dev/billsight/internal/model"
)

// Built-in parser formats.
const (
	FormatISO  = "iso"  // dates as YYYY-MM-DD, e.g. a table export
	FormatDMY  = "dmy"  // dates as DD/MM/YYYY, e.g. a bank export
	FormatAuto = "auto" // ISO first, then DD/MM/YYYY, per row
)

var (
	isoLayouts = []string{model.DateFormat, time.RFC3339, "2006-01-02 15:04:05"}
	dmyLayouts = []string{"2/1/2006"}
)

// Column names after header normalization.
const (
	colID                   = "id"
	colDate                 = "date"
	colDescription          = "description"
	colAmount               = "amount"
	colRecurring            = "recurring"
	colPredictedNextPayment = "predicted_next_payment"
	colCreatedAt            = "created_at"
	colExternalID           = "external_id"
	colType                 = "type"
	colCategory             = "category"
	colCounterParty         = "counter_party"
	colTag                  = "tag"
	colAccountExternalID    = "account_external_id"
	colLocation             = "location"
)

// headerAliases maps lowercased camelCase export headers to column names.
var headerAliases = map[string]string{
	"createdat":            colCreatedAt,
	"externalid":           colExternalID,
	"counterparty":         colCounterParty,
	"accountexternalid":    colAccountExternalID,
	"predictednextpayment": colPredictedNextPayment,
}

const bom = "\ufeff"

var (
	errMissingDate  = errors.New("missing date")
	errBadRecurring = errors.New("recurring must be true or false")
)

// CSVParser reads header-addressed transaction CSVs.
type CSVParser struct {
	format  string
	layouts []string
}

// NewCSVParser returns a parser named format that accepts dates in any of layouts.
func NewCSVParser(format string, layouts ...string) *CSVParser {
	return &CSVParser{format: format, layouts: layouts}
}

// Format returns the parser name.
func (p *CSVParser) Format() string { return p.format }

// Parse reads every row. Rows that fail to normalize are collected in
// Result.Errors and skipped; only an unreadable header fails the file.
func (p *CSVParser) Parse(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	columns := NormalizeHeader(header)

	res := &Result{}
	occurrences := make(map[string]int)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Errors = append(res.Errors, RowError{Row: perr.StartLine, Raw: rec, Err: err})
				continue
			}
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != len(columns) {
			res.Errors = append(res.Errors, RowError{
				Row: line,
				Raw: rec,
				Err: fmt.Errorf("expected %d fields, got %d", len(columns), len(rec)),
			})
			continue
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			row[col] = strings.TrimSpace(rec[i])
		}
		txn, err := p.Normalize(row)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: line, Raw: rec, Err: err})
			continue
		}
		if txn.ID == "" {
			key := id.NaturalKey(txn)
			occurrences[key]++
			txn.ID = id.ForTransaction(txn, occurrences[key])
		}
		res.Records = append(res.Records, Record{Row: line, Transaction: txn})
	}
	return res, nil
}

// NormalizeHeader lowercases and trims column names, strips a leading
// byte-order mark and resolves camelCase aliases.
func NormalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		columns[i] = h
	}
	return columns
}

// Normalize converts one header-keyed row into a Transaction. The id is
// left empty when the row has none; Parse derives it.
func (p *CSVParser) Normalize(row map[string]string) (model.Transaction, error) {
	rawDate := row[colDate]
	if rawDate == "" {
		return model.Transaction{}, errMissingDate
	}
	date, err := p.parseDate(rawDate)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rawDate, err)
	}

	var amount decimal.NullDecimal
	if raw := row[colAmount]; raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", raw, err)
		}
		amount = decimal.NewNullDecimal(d)
	}

	recurring, err := parseBool(row[colRecurring])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing recurring %q: %w", row[colRecurring], err)
	}

	var predicted *model.Date
	if raw := row[colPredictedNextPayment]; raw != "" && !strings.EqualFold(raw, "null") {
		d, err := p.parseDate(raw)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing predicted_next_payment %q: %w", raw, err)
		}
		predicted = &d
	}

	txn := model.Transaction{
		ID:                   row[colID],
		Date:                 date,
		Description:          row[colDescription],
		Amount:               amount,
		Recurring:            recurring,
		PredictedNextPayment: predicted,
		CreatedAt:            row[colCreatedAt],
		ExternalID:           row[colExternalID],
		Type:                 row[colType],
		Category:             row[colCategory],
		CounterParty:         row[colCounterParty],
		Tag:                  row[colTag],
		AccountExternalID:    row[colAccountExternalID],
		Location:             row[colLocation],
	}
	return txn, nil
}

func (p *CSVParser) parseDate(s string) (model.Date, error) {
	var firstErr error
	for _, layout := range p.layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return model.DateOf(t), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("no date layouts for format %s", p.format)
	}
	return model.Date{}, firstErr
}

func parseBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	var b bool
	switch {
	case strings.EqualFold(s, "true"):
		b = true
	case strings.EqualFold(s, "false"):
		b = false
	default:
		return nil, errBadRecurring
	}
	return &b, nil
}
