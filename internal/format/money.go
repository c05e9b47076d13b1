// Package format renders amounts for display. Computation never goes through
// this package; it only turns float64 results into strings.
package format

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = money.INR

// Money formats amount in the given ISO 4217 currency, rounded half away
// from zero to the currency's minor unit, e.g. "₹1,200.50".
// Unknown codes get two decimals with the code as a suffix, e.g. "1,200.50XYZ".
func Money(amount float64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	cur := *money.New(0, code).Currency()
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// Percent formats a percentage with two decimals and an explicit sign,
// e.g. "+33.33%".
func Percent(pct float64) string {
	d := decimal.NewFromFloat(pct).Round(2)
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// Signed is Money with an explicit "+" for positive amounts.
func Signed(amount float64, currency string) string {
	s := Money(amount, currency)
	if amount > 0 && !strings.HasPrefix(s, "+") {
		return "+" + s
	}
	return s
}

// Quantity renders the shortest decimal that round-trips, e.g. "0.1" not
// "0.10000000000000001", and "10" not "10.00".
func Quantity(q float64) string {
	return decimal.NewFromFloat(q).String()
}
