package holdings

import (
	"cmp"
	"slices"
	"strings"
)

// Position is the current holding state of one instrument.
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	TotalInvested float64 `json:"total_invested"`
	AvgPrice      float64 `json:"avg_price"`
	RealizedPnL   float64 `json:"realized_pnl"`
}

// Compute folds the given records into positions, one per symbol.
//
// Records are replayed oldest first. Records sharing a date are replayed in
// Seq order, then ID order. A SELL for more units than currently held is
// ignored, as is any record with an unknown type, an empty symbol or an
// unusable quantity or price. Symbols that end with no open units and no
// realized profit or loss are left out. The result is sorted by symbol.
//
// The input slice is not modified.
func Compute(records []Record) []Position {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, chronological)

	acc := make(map[string]*Position)
	for _, r := range sorted {
		symbol := NormalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		h, ok := acc[symbol]
		if !ok {
			h = &Position{Symbol: symbol}
			acc[symbol] = h
		}
		apply(h, r)
	}

	out := make([]Position, 0, len(acc))
	for _, h := range acc {
		if h.Quantity == 0 && h.RealizedPnL == 0 {
			continue
		}
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b Position) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}

func chronological(a, b Record) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func apply(h *Position, r Record) {
	q, p := r.Quantity, r.Price
	if !usable(q) || !usable(p) || q == 0 {
		return
	}

	switch r.Type {
	case Buy:
		h.TotalInvested += q * p
		h.Quantity += q
		h.AvgPrice = h.TotalInvested / h.Quantity
	case Sell:
		if h.Quantity < q {
			return
		}
		costBasis := h.AvgPrice * q
		h.RealizedPnL += p*q - costBasis
		h.Quantity -= q
		h.TotalInvested -= costBasis
		// Clear float residue left by repeated subtraction.
		if h.Quantity == 0 {
			h.AvgPrice = 0
			h.TotalInvested = 0
		}
	}
}

// Find returns the position for symbol, matching case-insensitively.
func Find(positions []Position, symbol string) (Position, bool) {
	symbol = NormalizeSymbol(symbol)
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
