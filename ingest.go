package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// accepts both 01/05/23 and 1/5/23
	csvDateFormat = "1/2/06"

	colDate     = "Date"
	colCategory = "Category"
	colAmount   = "Amount"
	colType     = "Transaction Type"
)

var requiredColumns = []string{colDate, colCategory, colAmount, colType}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyType     = errors.New("empty transaction type")
)

// IsCSVFilename reports whether an uploaded file name carries the .csv extension
func IsCSVFilename(name string) bool {
	return name != "" && strings.HasSuffix(name, ".csv")
}

// ParseTransactions reads a bank CSV export and returns its rows, most recent first.
func ParseTransactions(r io.Reader) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading header: %w", ErrMissingColumn)
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		colIndex[col] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	var txns []Transaction
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		txn, err := parseRow(rec, colIndex)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		txns = append(txns, txn)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].PostedAt.After(txns[j].PostedAt)
	})
	return txns, nil
}

func parseRow(rec []string, colIndex map[string]int) (Transaction, error) {
	field := func(name string) string {
		if i := colIndex[name]; i < len(rec) {
			return rec[i]
		}
		return ""
	}

	date := field(colDate)
	posted, err := time.Parse(csvDateFormat, date)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing date %q: %w", date, err)
	}

	amount, err := roundAmount(field(colAmount))
	if err != nil {
		return Transaction{}, err
	}

	typ := field(colType)
	if typ == "" {
		return Transaction{}, ErrEmptyType
	}
	_, size := utf8.DecodeRuneInString(typ)

	return Transaction{
		Date:     date,
		Category: field(colCategory),
		Amount:   amount,
		Type:     typ[:size],
		PostedAt: posted,
	}, nil
}

// roundAmount rounds half to even, so 12.50 becomes 12 and 13.50 becomes 14.
func roundAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d.RoundBank(0).IntPart(), nil
}
