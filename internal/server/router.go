// Package server assembles the HTTP API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"goldfolio/internal/config"
	"goldfolio/internal/feed"
	"goldfolio/internal/handlers"
	"goldfolio/internal/middleware"
	"goldfolio/internal/services"
)

// Services bundles the business services behind the API.
type Services struct {
	Users     services.UserServicer
	Trades    services.TradeServicer
	Portfolio services.PortfolioServicer
	Audit     services.AuditServicer
}

// NewServices wires the database-backed services. Trade writes are published
// on a shared feed that the portfolio stream listens to.
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	trades := services.NewTradeService(db, feed.NewHub())
	return &Services{
		Users:     services.NewUserService(db),
		Trades:    trades,
		Portfolio: services.NewPortfolioService(trades, cfg.DisplayCurrency),
		Audit:     services.NewAuditService(db),
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg *config.Config, svc *Services) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	tradeHandler := handlers.NewTradeHandler(svc.Trades, svc.Audit)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio, cfg.StreamKeepalive)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// EventSource cannot send headers, so the stream also takes ?access_token=
	v1.GET("/portfolio/stream", middleware.StreamAuthMiddleware(), portfolioHandler.Stream)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	trades := protected.Group("/trades")
	trades.POST("", tradeHandler.CreateTrade)
	trades.POST("/import", tradeHandler.ImportTrades)
	trades.GET("", tradeHandler.ListTrades)
	trades.GET("/symbols", tradeHandler.GetSymbols)
	trades.GET("/:id", tradeHandler.GetTrade)
	trades.DELETE("/:id", tradeHandler.DeleteTrade)

	portfolio := protected.Group("/portfolio")
	portfolio.GET("/holdings", portfolioHandler.GetHoldings)
	portfolio.GET("/summary", portfolioHandler.GetSummary)
	portfolio.POST("/projection", portfolioHandler.Project)

	return router
}
