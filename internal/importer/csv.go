// Package importer reads trade ledgers from CSV.
//
// The first row is a header naming the columns; order is free and names are
// matched case-insensitively. symbol, type, quantity and price are required,
// date is optional. Cells are returned untyped so callers decide how strictly
// to coerce them.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"goldfolio/internal/format"
	"goldfolio/internal/holdings"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Header is the canonical column order written by Write.
var Header = []string{"date", "symbol", "type", "quantity", "price"}

var aliases = map[string]string{
	"date":       "date",
	"trade_date": "date",
	"symbol":     "symbol",
	"ticker":     "symbol",
	"type":       "type",
	"trade_type": "type",
	"side":       "type",
	"quantity":   "quantity",
	"qty":        "quantity",
	"shares":     "quantity",
	"units":      "quantity",
	"price":      "price",
}

// Read parses a CSV ledger. Seq is the 1-based data row number, so rows
// sharing a date keep file order in the engine. An empty date cell yields a
// nil Date.
func Read(r io.Reader) ([]holdings.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []holdings.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canon, ok := aliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	for _, required := range []string{"symbol", "type", "quantity", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := []holdings.RawRecord{}
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		rec := holdings.RawRecord{
			Seq:      int64(line),
			Symbol:   cell(row, "symbol"),
			Type:     cell(row, "type"),
			Quantity: cell(row, "quantity"),
			Price:    cell(row, "price"),
		}
		if d := cell(row, "date"); d != "" {
			rec.Date = d
		}
		records = append(records, rec)
	}
	return records, nil
}

// Write emits records in the canonical column order with ISO dates. A date
// with a time of day keeps it, so same-day trades replay in the same order.
func Write(w io.Writer, records []holdings.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			formatDate(r.Date),
			r.Symbol,
			string(r.Type),
			format.Quantity(r.Quantity),
			format.Quantity(r.Price),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}
