// Package holdings derives per-symbol positions from a ledger of BUY/SELL
// trades using weighted-average-cost accounting.
//
// Everything in this package is pure: no I/O, no shared state, no errors for
// business-rule violations. Callers hand in the full record set for one
// identity and get the full position set back.
package holdings

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the side of a trade.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// Record is one ledger entry as seen by the engine.
type Record struct {
	ID string
	// Seq is the insertion sequence of the record. It breaks ties between
	// records that share the same Date.
	Seq      int64
	Date     time.Time
	Symbol   string
	Type     TradeType
	Quantity float64
	Price    float64
}

// RawRecord is a loosely typed ledger entry, as read from CSV files or
// untyped JSON. Coerce turns it into a Record.
type RawRecord struct {
	ID       string
	Seq      int64
	Date     any
	Symbol   string
	Type     string
	Quantity any
	Price    any
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
}

// NormalizeSymbol trims surrounding whitespace and uppercases an instrument
// identifier.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeType uppercases a trade side. Unknown sides are returned as is and
// are ignored by Compute.
func NormalizeType(t string) TradeType {
	return TradeType(strings.ToUpper(strings.TrimSpace(t)))
}

// ParseDate parses an ISO-8601 date or timestamp. Plain dates are
// interpreted as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// Coerce converts a raw record into a typed Record.
//
// If either quantity or price is missing, non-numeric, NaN, infinite or
// negative, both are set to 0, which makes the record a no-op in Compute. A
// date that cannot be parsed becomes the zero time, so the record sorts
// first.
func Coerce(raw RawRecord) Record {
	r := Record{
		ID:     raw.ID,
		Seq:    raw.Seq,
		Date:   coerceDate(raw.Date),
		Symbol: NormalizeSymbol(raw.Symbol),
		Type:   NormalizeType(raw.Type),
	}
	q, qok := amount(raw.Quantity)
	p, pok := amount(raw.Price)
	if qok && pok {
		r.Quantity, r.Price = q, p
	}
	return r
}

// Amount coerces v to a non-negative finite float64, or 0 when that is not
// possible.
func Amount(v any) float64 {
	f, _ := amount(v)
	return f
}

func amount(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case decimal.Decimal:
		f = n.InexactFloat64()
	case json.Number:
		return parseAmount(string(n))
	case string:
		return parseAmount(n)
	default:
		return 0, false
	}
	if !usable(f) {
		return 0, false
	}
	return f, true
}

func parseAmount(s string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if !usable(f) {
		return 0, false
	}
	return f, true
}

func coerceDate(v any) time.Time {
	switch d := v.(type) {
	case time.Time:
		return d
	case *time.Time:
		if d != nil {
			return *d
		}
	case string:
		if t, err := ParseDate(d); err == nil {
			return t
		}
	}
	return time.Time{}
}

// usable reports whether f can take part in the fold.
func usable(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
