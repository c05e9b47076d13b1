package services

import (
	"context"
	"time"

	"goldfolio/internal/holdings"
	"goldfolio/internal/models"
	"goldfolio/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// TradeInput is an unvalidated trade as submitted by a client.
// A nil Date means "now".
type TradeInput struct {
	Date     *time.Time
	Symbol   string
	Type     string
	Quantity float64
	Price    float64
}

// TradeFilter holds optional filter parameters for listing trades.
type TradeFilter struct {
	Symbol   *string
	Type     *holdings.TradeType
	FromDate *time.Time
	ToDate   *time.Time
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError describes one rejected row.
type ImportError struct {
	Row     int64  `json:"row"`
	Message string `json:"message"`
}

// TradeServicer is the transaction store: append, delete, list and subscribe
// to changes of one identity's ledger.
type TradeServicer interface {
	AddTrade(ctx context.Context, userID string, in TradeInput) (*models.Trade, error)
	ImportTrades(ctx context.Context, userID string, rows []holdings.RawRecord) (*ImportResult, error)
	ListTrades(ctx context.Context, userID string, page pagination.PageRequest, filter TradeFilter) (*pagination.PageResponse[models.Trade], error)
	AllTrades(ctx context.Context, userID string) ([]models.Trade, error)
	GetTrade(ctx context.Context, userID, tradeID string) (*models.Trade, error)
	DeleteTrade(ctx context.Context, userID, tradeID string) error
	Symbols(ctx context.Context, userID string) ([]string, error)
	Subscribe(userID string) (<-chan struct{}, func())
}

// PortfolioSummary is the dashboard aggregate with display strings.
type PortfolioSummary struct {
	holdings.Summary
	Currency string         `json:"currency"`
	Display  SummaryDisplay `json:"display"`
}

// SummaryDisplay holds formatted amounts for the dashboard.
type SummaryDisplay struct {
	TotalInvested string `json:"total_invested"`
	RealizedPnL   string `json:"realized_pnl"`
}

// ProjectionResult is a what-if sale with display strings.
type ProjectionResult struct {
	holdings.Projection
	AvgPrice float64           `json:"avg_price"`
	Held     float64           `json:"held"`
	Currency string            `json:"currency"`
	Display  ProjectionDisplay `json:"display"`
}

// ProjectionDisplay holds formatted amounts for a projection.
type ProjectionDisplay struct {
	Cost    string `json:"cost"`
	Revenue string `json:"revenue"`
	Profit  string `json:"profit"`
	ROI     string `json:"roi"`
}

// Snapshot is everything a live client needs to redraw.
type Snapshot struct {
	Trades   []models.Trade      `json:"trades"`
	Holdings []holdings.Position `json:"holdings"`
	Summary  PortfolioSummary    `json:"summary"`
}

// PortfolioServicer derives positions and aggregates from the trade store.
// Nothing it returns is cached; every call recomputes from the full ledger.
type PortfolioServicer interface {
	Holdings(ctx context.Context, userID string) ([]holdings.Position, error)
	Summary(ctx context.Context, userID string) (*PortfolioSummary, error)
	Projection(ctx context.Context, userID, symbol string, quantity, price float64) (*ProjectionResult, error)
	Snapshot(ctx context.Context, userID string) (*Snapshot, error)
	Subscribe(userID string) (<-chan struct{}, func())
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
