package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/holdings"
	"goldfolio/internal/importer"
	"goldfolio/internal/models"
	"goldfolio/internal/pagination"
	"goldfolio/internal/services"
)

const maxImportBytes = 5 << 20

// TradeHandler handles ledger requests.
type TradeHandler struct {
	tradeService services.TradeServicer
	auditService services.AuditServicer
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService services.TradeServicer, auditService services.AuditServicer) *TradeHandler {
	return &TradeHandler{tradeService: tradeService, auditService: auditService}
}

// CreateTradeRequest represents the request payload for recording a trade.
// Symbol and type are case-insensitive. A missing date means now.
type CreateTradeRequest struct {
	Date     *string `json:"date" example:"2024-01-15"`
	Symbol   string  `json:"symbol" binding:"required,symbol" example:"GOLDBEES"`
	Type     string  `json:"type" binding:"required,trade_type" example:"BUY"`
	Quantity float64 `json:"quantity" binding:"gt=0" example:"10"`
	Price    float64 `json:"price" binding:"gte=0" example:"52.4"`
}

// CreateTrade records a trade
// @Summary     Record a trade
// @Description Append a BUY or SELL to the ledger
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTradeRequest true "Trade details"
// @Success     201 {object} models.Trade "Trade recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades [post]
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	in := services.TradeInput{
		Symbol:   req.Symbol,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
	}
	if req.Date != nil && *req.Date != "" {
		parsed, parseErr := parseFlexibleTime(*req.Date)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		in.Date = &parsed
	}

	trade, err := h.tradeService.AddTrade(c.Request.Context(), userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, models.AuditActionCreateTrade, "trade", trade.ID, c.ClientIP(),
		map[string]any{"symbol": trade.Symbol, "type": trade.Type, "quantity": trade.Quantity, "price": trade.Price})

	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}

// ImportTrades bulk-loads a CSV ledger
// @Summary     Import trades from CSV
// @Description Upload a CSV with columns date,symbol,type,quantity,price. Rows that fail validation are skipped and reported.
// @Tags        trades
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "CSV ledger"
// @Success     201 {object} services.ImportResult "Import outcome"
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades/import [post]
func (h *TradeHandler) ImportTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidImport, "a CSV file is required in the 'file' field"))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidImport, err))
		return
	}
	defer file.Close()

	rows, err := importer.Read(file)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidImport, err.Error()))
		return
	}

	result, err := h.tradeService.ImportTrades(c.Request.Context(), userID, rows)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, models.AuditActionImport, "trade", "", c.ClientIP(),
		map[string]any{"file": header.Filename, "imported": result.Imported, "skipped": result.Skipped})

	c.JSON(http.StatusCreated, result)
}

// ListTrades returns the ledger, newest first
// @Summary     List trades
// @Description Paginated ledger ordered by date descending
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Param       symbol    query string false "Filter by symbol"
// @Param       type      query string false "Filter by type (BUY or SELL)"
// @Param       from_date query string false "Filter by start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date   query string false "Filter by end date, inclusive (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.Trade] "Paginated trades"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades [get]
func (h *TradeHandler) ListTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := parseTradeFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.tradeService.ListTrades(c.Request.Context(), userID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseTradeFilter(c *gin.Context) (services.TradeFilter, error) {
	var filter services.TradeFilter

	if v := c.Query("symbol"); v != "" {
		filter.Symbol = &v
	}

	if v := c.Query("type"); v != "" {
		tradeType := holdings.NormalizeType(v)
		if tradeType != holdings.Buy && tradeType != holdings.Sell {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be BUY or SELL")
		}
		filter.Type = &tradeType
	}

	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD")
		}
		filter.FromDate = &t
	}

	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD")
		}
		t = endOfDay(v, t)
		filter.ToDate = &t
	}

	return filter, nil
}

// GetTrade returns one trade
// @Summary     Get trade by ID
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trade ID"
// @Success     200 {object} models.Trade "Trade details"
// @Failure     400 {object} ErrorResponse "Invalid trade ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Trade not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades/{id} [get]
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tradeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	trade, err := h.tradeService.GetTrade(c.Request.Context(), userID, tradeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": trade})
}

// DeleteTrade removes a trade from the ledger
// @Summary     Delete trade
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trade ID"
// @Success     200 {object} map[string]string "Trade deleted"
// @Failure     400 {object} ErrorResponse "Invalid trade ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Trade not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades/{id} [delete]
func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tradeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tradeService.DeleteTrade(c.Request.Context(), userID, tradeID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, models.AuditActionDeleteTrade, "trade", tradeID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Trade deleted successfully"})
}

// GetSymbols lists symbols for quick selection
// @Summary     Symbol suggestions
// @Description Quick-pick symbols followed by every other symbol the user has traded
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]string "Symbols"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades/symbols [get]
func (h *TradeHandler) GetSymbols(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	symbols, err := h.tradeService.Symbols(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}
