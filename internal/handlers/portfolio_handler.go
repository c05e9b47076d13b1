package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/logger"
	"goldfolio/internal/services"
)

// PortfolioHandler serves positions and aggregates derived from the ledger.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
	keepalive        time.Duration
}

// NewPortfolioHandler creates a new PortfolioHandler. keepalive is the
// interval between comment frames on an idle stream.
func NewPortfolioHandler(portfolioService services.PortfolioServicer, keepalive time.Duration) *PortfolioHandler {
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}
	return &PortfolioHandler{portfolioService: portfolioService, keepalive: keepalive}
}

// ProjectionRequest represents a what-if sale.
type ProjectionRequest struct {
	Symbol   string  `json:"symbol" binding:"required" example:"GOLDBEES"`
	Quantity float64 `json:"quantity" binding:"gt=0" example:"5"`
	Price    float64 `json:"price" binding:"gte=0" example:"80"`
}

// GetHoldings returns current positions
// @Summary     Current holdings
// @Description Positions derived from the full ledger by weighted-average cost, ordered by symbol
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]holdings.Position "Holdings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolio/holdings [get]
func (h *PortfolioHandler) GetHoldings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	positions, err := h.portfolioService.Holdings(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"holdings": positions})
}

// GetSummary returns dashboard aggregates
// @Summary     Portfolio summary
// @Description Total invested, total units, realized P&L, top asset and allocation
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PortfolioSummary "Summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolio/summary [get]
func (h *PortfolioHandler) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.portfolioService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Project computes a hypothetical sale
// @Summary     Profit projection
// @Description Profit and ROI of selling part of a position at a given price, against its average cost
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ProjectionRequest true "Sale to project"
// @Success     200 {object} services.ProjectionResult "Projection"
// @Failure     400 {object} ErrorResponse "Invalid input or quantity exceeds holding"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No position in symbol"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /portfolio/projection [post]
func (h *PortfolioHandler) Project(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ProjectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.portfolioService.Projection(c.Request.Context(), userID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Stream pushes a snapshot whenever the ledger changes
// @Summary     Live portfolio stream
// @Description Server-sent events. An initial "snapshot" event is sent on connect and another after every change. The token may be passed as the access_token query parameter.
// @Tags        portfolio
// @Produce     text/event-stream
// @Security    BearerAuth
// @Param       access_token query string false "Access token for clients that cannot set headers"
// @Success     200 {object} services.Snapshot "snapshot events"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/stream [get]
func (h *PortfolioHandler) Stream(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// subscribe before the first read so a change in between is not lost
	updates, cancel := h.portfolioService.Subscribe(userID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	log := logger.Get()

	send := func() {
		snapshot, err := h.portfolioService.Snapshot(ctx, userID)
		if err != nil {
			log.Errorw("stream snapshot failed", "user_id", userID, "error", err)
			c.SSEvent("error", gin.H{"code": apperrors.ErrInternalServer.Code, "message": apperrors.ErrInternalServer.Message})
		} else {
			c.SSEvent("snapshot", snapshot)
		}
		c.Writer.Flush()
	}

	send()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugw("stream closed", "user_id", userID)
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			send()
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
