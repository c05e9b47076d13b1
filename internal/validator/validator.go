// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"strings"

	"goldfolio/internal/holdings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Exchange tickers: letters and digits plus a few separators, e.g. "M&M", "BRK.B".
var symbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.&_-]{0,31}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("trade_type", validateTradeType)
	_ = v.RegisterValidation("symbol", validateSymbol)
}

// validateTradeType accepts BUY or SELL in any case.
func validateTradeType(fl validator.FieldLevel) bool {
	switch holdings.NormalizeType(fl.Field().String()) {
	case holdings.Buy, holdings.Sell:
		return true
	}
	return false
}

// validateSymbol checks the symbol as it will be stored.
func validateSymbol(fl validator.FieldLevel) bool {
	return symbolRegex.MatchString(holdings.NormalizeSymbol(fl.Field().String()))
}

// ValidSymbol reports whether s is an acceptable symbol after normalization.
func ValidSymbol(s string) bool {
	return symbolRegex.MatchString(holdings.NormalizeSymbol(s))
}

// ValidTradeType reports whether s names a supported trade type.
func ValidTradeType(s string) bool {
	t := holdings.NormalizeType(strings.TrimSpace(s))
	return t == holdings.Buy || t == holdings.Sell
}
