package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type tradeInput struct {
	Symbol string `validate:"required,symbol"`
	Type   string `validate:"required,trade_type"`
}

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	RegisterOn(v)

	tests := []struct {
		name  string
		input tradeInput
		ok    bool
	}{
		{"buy", tradeInput{"GOLDBEES", "BUY"}, true},
		{"lowercase", tradeInput{" goldbees ", "sell"}, true},
		{"ampersand", tradeInput{"M&M", "BUY"}, true},
		{"dotted", tradeInput{"BRK.B", "BUY"}, true},
		{"bad_type", tradeInput{"GOLDBEES", "HOLD"}, false},
		{"blank_symbol", tradeInput{"   ", "BUY"}, false},
		{"symbol_with_space", tradeInput{"GOLD BEES", "BUY"}, false},
		{"symbol_too_long", tradeInput{"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", "BUY"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidHelpers(t *testing.T) {
	if !ValidSymbol("niftybees") {
		t.Error("expected niftybees to be valid")
	}
	if ValidSymbol("") {
		t.Error("empty symbol should be invalid")
	}
	if !ValidTradeType(" Buy ") {
		t.Error("expected ' Buy ' to be valid")
	}
	if ValidTradeType("DIVIDEND") {
		t.Error("DIVIDEND should be invalid")
	}
}
