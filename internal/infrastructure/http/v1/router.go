package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"machshop/internal/domain/catalogs/customer"
	"machshop/internal/domain/catalogs/machine"
	"machshop/internal/domain/orders"
	"machshop/internal/domain/refunds"
	"machshop/internal/domain/reports"
	"machshop/internal/infrastructure/http/v1/handlers"
	"machshop/internal/infrastructure/http/v1/middleware"
	"machshop/internal/infrastructure/storage/postgres"
	"machshop/internal/infrastructure/storage/postgres/catalog_repo"
	"machshop/internal/infrastructure/storage/postgres/document_repo"
	"machshop/internal/infrastructure/storage/postgres/report_repo"
	"machshop/pkg/logger"
	"machshop/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager manages transactions for all repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// Numerator for document number generation
	Numerator numerator.Generator

	// Audit records entity change history
	Audit *postgres.AuditService

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long completed keys are replayable
	IdempotencyTTL time.Duration
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

	// Health endpoints (no operator identity required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	api := router.Group("/api/v1")
	api.Use(middleware.UserContext())

	if cfg.IdempotencyEnabled {
		ttl := cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		store := postgres.NewIdempotencyStore(cfg.TxManager, ttl)
		api.Use(middleware.Idempotency(store))
	}

	registerRoutes(api, cfg)

	return router
}

// registerRoutes wires repositories, services and handlers.
func registerRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()

	// Repositories
	machineRepo := catalog_repo.NewMachineRepo(cfg.TxManager)
	customerRepo := catalog_repo.NewCustomerRepo(cfg.TxManager)
	orderRepo := document_repo.NewOrderRepo(cfg.TxManager)
	refundRepo := document_repo.NewRefundRepo(cfg.TxManager)
	reportRepo := report_repo.NewReportRepo(cfg.TxManager)

	// Services
	machineService := machine.NewService(machineRepo, cfg.TxManager, cfg.Numerator)
	customerService := customer.NewService(customerRepo, cfg.TxManager, cfg.Numerator)
	refundService := refunds.NewService(refundRepo, cfg.TxManager, cfg.Numerator)
	orderService := orders.NewService(
		orderRepo,
		cfg.TxManager,
		cfg.Numerator,
		machineService,
		customerService,
		refundService,
	)
	reportService := reports.NewService(reportRepo)

	if cfg.Audit != nil {
		orderService.SetAuditLog(cfg.Audit)
		refundService.SetAuditLog(cfg.Audit)
	}

	// --- CATALOGS ---
	catalogs := rg.Group("/catalog")
	{
		machineHandler := handlers.NewMachineHandler(baseHandler, machineService)
		machinesGroup := catalogs.Group("/machines")
		RegisterCatalogRoutes(machinesGroup, machineHandler)
		machinesGroup.GET("/categories", machineHandler.ListCategories)
		machinesGroup.GET("/category/:category", machineHandler.ListByCategory)
		machinesGroup.GET("/low-stock", machineHandler.ListLowStock)
		machinesGroup.GET("/:id/stock", machineHandler.GetStock)
		machinesGroup.POST("/:id/stock", machineHandler.AdjustStock)

		customerHandler := handlers.NewCustomerHandler(baseHandler, customerService)
		customersGroup := catalogs.Group("/customers")
		RegisterCatalogRoutes(customersGroup, customerHandler)
		customersGroup.GET("/nic/:nic", customerHandler.GetByNIC)
	}

	// --- ORDERS ---
	{
		handler := handlers.NewOrderHandler(baseHandler, orderService)
		ordersGroup := rg.Group("/orders")
		ordersGroup.GET("", handler.List)
		ordersGroup.POST("", handler.Create)
		ordersGroup.GET("/stats", handler.GetStats)
		ordersGroup.GET("/number/:number", handler.GetByNumber)
		ordersGroup.GET("/:id", handler.Get)
		ordersGroup.PUT("/:id", handler.Update)
		ordersGroup.PATCH("/:id/status", handler.UpdateStatus)
		ordersGroup.DELETE("/:id", handler.Cancel)
		ordersGroup.POST("/:id/cancel", handler.Cancel)
		ordersGroup.PUT("/:id/return", handler.ReturnItem)
		ordersGroup.PATCH("/:id/payment", handler.ApplyPayment)
		ordersGroup.POST("/:id/recalculate", handler.RecalculateTotals)
	}

	// --- REFUNDS ---
	{
		handler := handlers.NewRefundHandler(baseHandler, refundService)
		refundsGroup := rg.Group("/refunds")
		refundsGroup.GET("", handler.List)
		refundsGroup.GET("/stats", handler.GetStats)
		refundsGroup.GET("/order/:orderId", handler.GetByOrder)
		refundsGroup.GET("/:id", handler.Get)
		refundsGroup.PATCH("/:id/status", handler.UpdateStatus)
	}

	// --- REPORTS ---
	{
		handler := handlers.NewReportHandler(baseHandler, reportService)
		reportsGroup := rg.Group("/reports")
		reportsGroup.GET("/revenue", handler.GetRevenue)
		reportsGroup.GET("/machine-sales", handler.GetMachineSales)
	}

	// --- AUDIT ---
	if cfg.Audit != nil {
		handler := handlers.NewAuditHandler(baseHandler, cfg.Audit)
		rg.GET("/audit/:entityType/:id", handler.GetEntityHistory)
	}
}
