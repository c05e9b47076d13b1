package holdings

import "errors"

var (
	ErrInvalidQuantity = errors.New("holdings: quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("holdings: price must not be negative")
	ErrExceedsHolding  = errors.New("holdings: quantity exceeds units held")
)

// Projection is the outcome of a hypothetical sale at a given price.
type Projection struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Revenue  float64 `json:"revenue"`
	Profit   float64 `json:"profit"`
	ROIPct   float64 `json:"roi_pct"`
}

// Project computes what selling quantity units of p at price would realize,
// using the position's average cost as the cost basis. ROIPct is 0 when the
// cost basis is 0.
func Project(p Position, quantity, price float64) (Projection, error) {
	if !usable(quantity) || quantity == 0 {
		return Projection{}, ErrInvalidQuantity
	}
	if !usable(price) {
		return Projection{}, ErrInvalidPrice
	}
	if quantity > p.Quantity {
		return Projection{}, ErrExceedsHolding
	}

	pr := Projection{
		Symbol:   p.Symbol,
		Quantity: quantity,
		Price:    price,
		Cost:     p.AvgPrice * quantity,
		Revenue:  price * quantity,
	}
	pr.Profit = pr.Revenue - pr.Cost
	if pr.Cost != 0 {
		pr.ROIPct = pr.Profit / pr.Cost * 100
	}
	return pr, nil
}
