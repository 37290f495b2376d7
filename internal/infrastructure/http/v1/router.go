// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/companies"
	"bilanco/internal/domain/extraction"
	"bilanco/internal/domain/filings"
	"bilanco/internal/domain/ratios"
	"bilanco/internal/infrastructure/http/v1/handlers"
	"bilanco/internal/infrastructure/http/v1/middleware"
	"bilanco/internal/infrastructure/storage/postgres"
	"bilanco/pkg/logger"
)

// RouterConfig holds everything the HTTP layer depends on.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	Registry       *accounts.Registry
	CompanyService *companies.Service
	FilingService  *filings.Service
	Calculator     *ratios.Calculator
	Archiver       filings.Archiver   // optional
	Extractor      extraction.Service // optional
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	{
		registerAccountRoutes(api, base, cfg)
		registerCompanyRoutes(api, base, cfg)
		registerFilingRoutes(api, base, cfg)
		registerExtractionRoutes(api, base, cfg)
	}

	return router
}

func registerAccountRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewAccountsHandler(base, cfg.Registry)

	// Static segments precede the parameterized lookup to avoid route
	// conflicts with account codes.
	accounts := rg.Group("/accounts")
	{
		accounts.GET("", h.List)
		accounts.GET("/search", h.Search)
		accounts.GET("/code/:code", h.Get)
		accounts.GET("/code/:code/children", h.Children)
	}
}

func registerCompanyRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewCompanyHandler(base, cfg.CompanyService)

	companies := rg.Group("/companies")
	{
		companies.GET("", h.List)
		companies.POST("", h.Create)
		companies.GET("/by-tax-id/:taxId", h.GetByTaxID)
		companies.GET("/:id", h.Get)
		companies.PUT("/:id", h.Update)
		companies.DELETE("/:id", h.Delete)
		companies.POST("/:id/deletion-mark", h.SetDeletionMark)
	}
}

func registerFilingRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewFilingHandler(base, cfg.FilingService, cfg.Calculator, cfg.Archiver)

	filings := rg.Group("/filings")
	{
		filings.GET("", h.List)
		filings.POST("", h.Submit)
		filings.POST("/resume", h.Resume)
		filings.GET("/by-number/:number", h.GetByNumber)
		filings.GET("/:id", h.Get)
		filings.GET("/:id/ratios", h.Ratios)
		filings.GET("/:id/turnover", h.Turnover)
		filings.GET("/:id/payload", h.Payload)
	}
}

func registerExtractionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Extractor == nil {
		return
	}

	h := handlers.NewExtractionHandler(base, cfg.Extractor)
	rg.POST("/extractions", h.Extract)
}
