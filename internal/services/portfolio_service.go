package services

import (
	"context"
	"errors"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/format"
	"goldfolio/internal/holdings"
	"goldfolio/internal/models"
)

// portfolioService derives positions from the trade store on every call.
type portfolioService struct {
	trades   TradeServicer
	currency string
}

// NewPortfolioService creates a new PortfolioServicer. currency is the ISO
// code used for display strings; amounts themselves are never converted.
func NewPortfolioService(trades TradeServicer, currency string) PortfolioServicer {
	if currency == "" {
		currency = format.DefaultCurrency
	}
	return &portfolioService{trades: trades, currency: currency}
}

func (s *portfolioService) positions(ctx context.Context, userID string) ([]models.Trade, []holdings.Position, error) {
	trades, err := s.trades.AllTrades(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return trades, holdings.Compute(models.Records(trades)), nil
}

// Holdings returns the user's current positions ordered by symbol.
func (s *portfolioService) Holdings(ctx context.Context, userID string) ([]holdings.Position, error) {
	_, positions, err := s.positions(ctx, userID)
	return positions, err
}

// Summary returns the dashboard aggregate.
func (s *portfolioService) Summary(ctx context.Context, userID string) (*PortfolioSummary, error) {
	_, positions, err := s.positions(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(positions)
	return &summary, nil
}

func (s *portfolioService) summarize(positions []holdings.Position) PortfolioSummary {
	sum := holdings.Summarize(positions)
	return PortfolioSummary{
		Summary:  sum,
		Currency: s.currency,
		Display: SummaryDisplay{
			TotalInvested: format.Money(sum.TotalInvested, s.currency),
			RealizedPnL:   format.Signed(sum.RealizedPnL, s.currency),
		},
	}
}

// Projection computes a hypothetical sale of quantity units of symbol at price.
func (s *portfolioService) Projection(ctx context.Context, userID, symbol string, quantity, price float64) (*ProjectionResult, error) {
	symbol = holdings.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "symbol is required")
	}

	_, positions, err := s.positions(ctx, userID)
	if err != nil {
		return nil, err
	}
	pos, ok := holdings.Find(positions, symbol)
	if !ok {
		return nil, apperrors.ErrPositionNotFound
	}

	pr, err := holdings.Project(pos, quantity, price)
	switch {
	case errors.Is(err, holdings.ErrInvalidQuantity):
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be greater than zero")
	case errors.Is(err, holdings.ErrInvalidPrice):
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must not be negative")
	case errors.Is(err, holdings.ErrExceedsHolding):
		return nil, apperrors.Wrap(apperrors.ErrExceedsHolding, err)
	case err != nil:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &ProjectionResult{
		Projection: pr,
		AvgPrice:   pos.AvgPrice,
		Held:       pos.Quantity,
		Currency:   s.currency,
		Display: ProjectionDisplay{
			Cost:    format.Money(pr.Cost, s.currency),
			Revenue: format.Money(pr.Revenue, s.currency),
			Profit:  format.Signed(pr.Profit, s.currency),
			ROI:     format.Percent(pr.ROIPct),
		},
	}, nil
}

// Snapshot returns the ledger together with everything derived from it,
// computed from a single read.
func (s *portfolioService) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	trades, positions, err := s.positions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Trades:   trades,
		Holdings: positions,
		Summary:  s.summarize(positions),
	}, nil
}

// Subscribe registers for change notifications on userID's ledger.
func (s *portfolioService) Subscribe(userID string) (<-chan struct{}, func()) {
	return s.trades.Subscribe(userID)
}
