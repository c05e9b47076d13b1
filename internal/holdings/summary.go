package holdings

// NoTopAsset is reported as Summary.TopAsset when nothing is invested.
const NoTopAsset = "-"

// Allocation is one slice of the invested amount.
type Allocation struct {
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`
	WeightPct float64 `json:"weight_pct"`
}

// Summary aggregates a position set for the dashboard.
type Summary struct {
	TotalInvested float64      `json:"total_invested"`
	TotalUnits    float64      `json:"total_units"`
	RealizedPnL   float64      `json:"realized_pnl"`
	OpenPositions int          `json:"open_positions"`
	TopAsset      string       `json:"top_asset"`
	Allocation    []Allocation `json:"allocation"`
}

// Summarize aggregates positions. Allocation only lists positions with a
// positive cost basis; weights are shares of TotalInvested in percent.
func Summarize(positions []Position) Summary {
	s := Summary{TopAsset: NoTopAsset, Allocation: []Allocation{}}

	var top float64
	for _, p := range positions {
		s.TotalInvested += p.TotalInvested
		s.TotalUnits += p.Quantity
		s.RealizedPnL += p.RealizedPnL
		if p.Quantity > 0 {
			s.OpenPositions++
		}
		if p.TotalInvested > top {
			top = p.TotalInvested
			s.TopAsset = p.Symbol
		}
		if p.TotalInvested > 0 {
			s.Allocation = append(s.Allocation, Allocation{Symbol: p.Symbol, Value: p.TotalInvested})
		}
	}

	if s.TotalInvested > 0 {
		for i := range s.Allocation {
			s.Allocation[i].WeightPct = s.Allocation[i].Value / s.TotalInvested * 100
		}
	}
	return s
}
