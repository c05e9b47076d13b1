package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"gorm.io/gorm"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/feed"
	"goldfolio/internal/holdings"
	"goldfolio/internal/logger"
	"goldfolio/internal/models"
	"goldfolio/internal/pagination"
	"goldfolio/internal/validator"
)

// QuickPicks are offered as symbol suggestions to every user.
var QuickPicks = []string{"GOLDBEES", "NIFTYBEES", "SILVERBEES"}

const importBatchSize = 200

// tradeService handles trade-related business logic.
type tradeService struct {
	db  *gorm.DB
	hub *feed.Hub
	now func() time.Time
}

// NewTradeService creates a new TradeServicer. Every successful mutation is
// published to hub for the owning user.
func NewTradeService(db *gorm.DB, hub *feed.Hub) TradeServicer {
	return &tradeService{db: db, hub: hub, now: time.Now}
}

// AddTrade validates and appends one trade to the user's ledger.
func (s *tradeService) AddTrade(ctx context.Context, userID string, in TradeInput) (*models.Trade, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	trade, err := s.normalize(userID, in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.hub.Publish(userID)
	return trade, nil
}

// normalize applies the write-boundary rules: symbol trimmed and uppercased,
// type BUY or SELL in any case, quantity > 0, price >= 0, missing date = now.
func (s *tradeService) normalize(userID string, in TradeInput, now time.Time) (*models.Trade, error) {
	symbol := holdings.NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol is required")
	}
	if !validator.ValidSymbol(symbol) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol contains invalid characters")
	}

	tradeType := holdings.NormalizeType(in.Type)
	if tradeType != holdings.Buy && tradeType != holdings.Sell {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "type must be BUY or SELL")
	}

	if !(in.Quantity > 0) || math.IsInf(in.Quantity, 0) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	}
	if !(in.Price >= 0) || math.IsInf(in.Price, 0) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must not be negative")
	}

	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	return &models.Trade{
		UserID:   userID,
		Date:     date.UTC(),
		Symbol:   symbol,
		Type:     tradeType,
		Quantity: in.Quantity,
		Price:    in.Price,
	}, nil
}

// ImportTrades appends every row that passes write-boundary validation and
// reports the rest as skipped. Valid rows are inserted atomically. Rows that
// share a date keep their file order.
func (s *tradeService) ImportTrades(ctx context.Context, userID string, rows []holdings.RawRecord) (*ImportResult, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	result := &ImportResult{}
	now := s.now()
	trades := make([]models.Trade, 0, len(rows))

	for _, row := range rows {
		rec := holdings.Coerce(row)

		in := TradeInput{Symbol: row.Symbol, Type: row.Type, Quantity: rec.Quantity, Price: rec.Price}
		if row.Date != nil {
			if rec.Date.IsZero() {
				result.skip(row.Seq, fmt.Sprintf("unrecognised date %v", row.Date))
				continue
			}
			in.Date = &rec.Date
		}

		trade, err := s.normalize(userID, in, now)
		if err != nil {
			result.skip(row.Seq, err.Error())
			continue
		}
		// postgres keeps microseconds, so step by one to preserve row order
		trade.CreatedAt = now.Add(time.Duration(len(trades)) * time.Microsecond)
		trades = append(trades, *trade)
	}

	if len(trades) > 0 {
		if err := s.db.WithContext(ctx).CreateInBatches(&trades, importBatchSize).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.hub.Publish(userID)
	}

	result.Imported = len(trades)
	logger.Get().Infow("trades imported", "user_id", userID, "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}

func (r *ImportResult) skip(row int64, msg string) {
	r.Skipped++
	r.Errors = append(r.Errors, ImportError{Row: row, Message: msg})
}

// ListTrades returns one page of the ledger, newest first.
// A missing identity yields an empty page.
func (s *tradeService) ListTrades(ctx context.Context, userID string, page pagination.PageRequest, filter TradeFilter) (*pagination.PageResponse[models.Trade], error) {
	page.Defaults()
	if userID == "" {
		result := pagination.NewPageResponse([]models.Trade{}, page.Page, page.PageSize, 0)
		return &result, nil
	}

	base := s.db.WithContext(ctx).Model(&models.Trade{}).Where("user_id = ?", userID)
	base = applyTradeFilters(base, filter).Session(&gorm.Session{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var trades []models.Trade
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC, id DESC").
		Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(trades, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTradeFilters(q *gorm.DB, f TradeFilter) *gorm.DB {
	if f.Symbol != nil {
		q = q.Where("symbol = ?", holdings.NormalizeSymbol(*f.Symbol))
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	return q
}

// AllTrades returns the user's full ledger, newest first.
func (s *tradeService) AllTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	trades := []models.Trade{}
	if userID == "" {
		return trades, nil
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, created_at DESC, id DESC").
		Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return trades, nil
}

// GetTrade retrieves a trade by ID for a specific user
func (s *tradeService) GetTrade(ctx context.Context, userID, tradeID string) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", tradeID, userID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTradeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &trade, nil
}

// DeleteTrade removes a trade from the user's ledger.
func (s *tradeService) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	if userID == "" {
		return apperrors.ErrUnauthorized
	}

	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", tradeID, userID).Delete(&models.Trade{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTradeNotFound
	}

	s.hub.Publish(userID)
	return nil
}

// Symbols returns the quick picks followed by any other symbols the user has
// traded, alphabetically.
func (s *tradeService) Symbols(ctx context.Context, userID string) ([]string, error) {
	symbols := slices.Clone(QuickPicks)
	if userID == "" {
		return symbols, nil
	}

	var traded []string
	if err := s.db.WithContext(ctx).Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Distinct("symbol").
		Order("symbol").
		Pluck("symbol", &traded).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, sym := range traded {
		if !slices.Contains(symbols, sym) {
			symbols = append(symbols, sym)
		}
	}
	return symbols, nil
}

// Subscribe registers for change notifications on userID's ledger.
func (s *tradeService) Subscribe(userID string) (<-chan struct{}, func()) {
	return s.hub.Subscribe(userID)
}
