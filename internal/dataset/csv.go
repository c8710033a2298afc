// Package dataset reads labeled training data and unlabeled transactions
// from CSV files and extracted statement text.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
)

// Column names recognized in CSV headers, case-insensitively.
const (
	ColumnMerchant = "merchant"
	ColumnCategory = "category"
	ColumnAmount   = "amount"
	ColumnDate     = "date"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// dateLayouts are tried in order when a date column is present.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

type csvTable struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func newCSVTable(r io.Reader, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	return &csvTable{reader: reader, columns: columns, line: 1}, nil
}

// next returns the following record, or io.EOF. The physical line of the
// record is kept for error messages.
func (t *csvTable) next() ([]string, error) {
	record, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	t.line, _ = t.reader.FieldPos(0)
	return record, nil
}

func (t *csvTable) field(record []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadLabeledCSV reads (merchant, category) pairs. Extra columns are ignored
// and blank lines skipped. A row missing either value is a configuration
// error naming its line.
func ReadLabeledCSV(r io.Reader, source string) ([]model.TrainingExample, error) {
	table, err := newCSVTable(r, ColumnMerchant, ColumnCategory)
	if err != nil {
		return nil, err
	}

	var examples []model.TrainingExample
	for {
		record, err := table.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		merchant := table.field(record, ColumnMerchant)
		category := table.field(record, ColumnCategory)
		if merchant == "" {
			return nil, common.ConfigurationErrorf("line %d has no merchant", table.line)
		}
		if category == "" {
			return nil, common.ConfigurationErrorf("line %d (%q) has no category", table.line, merchant)
		}

		examples = append(examples, model.TrainingExample{
			Merchant: merchant,
			Category: category,
			Source:   source,
		})
	}

	return examples, nil
}

// ReadTransactionsCSV reads transactions with a merchant column and optional
// amount and date columns. Unparseable amounts read as zero; dates that
// match no known layout are left unset.
func ReadTransactionsCSV(r io.Reader) ([]model.Transaction, error) {
	table, err := newCSVTable(r, ColumnMerchant)
	if err != nil {
		return nil, err
	}

	var transactions []model.Transaction
	for {
		record, err := table.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blank(record) {
			continue
		}

		tx := model.Transaction{
			Name:   table.field(record, ColumnMerchant),
			Amount: ParseAmount(table.field(record, ColumnAmount)),
			Date:   ParseDate(table.field(record, ColumnDate)),
		}
		tx.Hash = tx.GenerateHash()
		transactions = append(transactions, tx)
	}

	return transactions, nil
}

// ParseAmount parses a currency amount such as "$1,234.50". It returns zero
// for anything it cannot read.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		v = -v
	}
	return v
}

// ParseDate parses the date formats found in statements. It returns the zero
// time when no layout matches.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// WriteResultsCSV writes categorized transactions with their source and
// confidence.
func WriteResultsCSV(w io.Writer, transactions []model.Transaction, results []model.ClassificationResult) error {
	if len(transactions) != len(results) {
		return fmt.Errorf("have %d results for %d transactions", len(results), len(transactions))
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "merchant", "amount", "category", "confidence", "source", "matched_merchant"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, tx := range transactions {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		r := results[i]
		row := []string{
			date,
			tx.Merchant(),
			strconv.FormatFloat(tx.Amount, 'f', 2, 64),
			r.Category,
			strconv.FormatFloat(r.Confidence, 'f', 4, 64),
			string(r.Source),
			r.MatchedMerchant,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
