package models

import (
	"time"

	"goldfolio/internal/holdings"
)

// Trade is one immutable BUY or SELL event in a user's ledger.
// There is no update path: an edit is a delete followed by a new trade.
type Trade struct {
	Base
	UserID   string             `gorm:"type:uuid;not null;index" json:"user_id"`
	Date     time.Time          `gorm:"not null;index" json:"date"`
	Symbol   string             `gorm:"size:32;not null;index" json:"symbol"`
	Type     holdings.TradeType `gorm:"size:8;not null" json:"type"`
	Quantity float64            `gorm:"not null" json:"quantity"`
	Price    float64            `gorm:"not null" json:"price"`
}

// ToRecord converts the row into the engine's view of a trade. The insertion
// instant becomes the sequence used to order trades sharing a date.
func (t *Trade) ToRecord() holdings.Record {
	return holdings.Record{
		ID:       t.ID,
		Seq:      t.CreatedAt.UnixNano(),
		Date:     t.Date,
		Symbol:   t.Symbol,
		Type:     t.Type,
		Quantity: t.Quantity,
		Price:    t.Price,
	}
}

// Records converts a slice of trades for the engine.
func Records(trades []Trade) []holdings.Record {
	out := make([]holdings.Record, len(trades))
	for i := range trades {
		out[i] = trades[i].ToRecord()
	}
	return out
}
