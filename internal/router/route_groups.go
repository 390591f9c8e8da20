package router

import (
	"github.com/gin-gonic/gin"

	"hatchery_backend/internal/handlers"
	"hatchery_backend/internal/middleware"
	"hatchery_backend/internal/models"
)

var (
	anyRole     = []string{models.RoleAdmin, models.RoleManager, models.RoleStaff}
	managerRole = []string{models.RoleAdmin, models.RoleManager}
	adminRole   = []string{models.RoleAdmin}
)

// SetupFeedRoutes sets up purchases, usage and inventory.
func SetupFeedRoutes(authenticatedGroup *gin.RouterGroup, feedHandler *handlers.FeedHandler) {
	feedRoutes := authenticatedGroup.Group("/feed")
	feedRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		feedRoutes.POST("/purchases", feedHandler.RecordPurchase)
		feedRoutes.GET("/purchases", feedHandler.ListPurchases)
		feedRoutes.POST("/usage", feedHandler.LogUsage)
		feedRoutes.GET("/usage", feedHandler.ListFeedingLogs)
		feedRoutes.GET("/inventory", feedHandler.ListInventory)
		feedRoutes.GET("/inventory/:id", feedHandler.GetInventory)
	}

	// Manual corrections bypass the purchase flow and are limited to managers.
	authenticatedGroup.PUT("/feed/inventory/:id", middleware.RoleAuthMiddleware(managerRole...), feedHandler.UpdateInventory)
}

// SetupBatchRoutes sets up the batch routes.
func SetupBatchRoutes(authenticatedGroup *gin.RouterGroup, batchHandler *handlers.BatchHandler) {
	batchRoutes := authenticatedGroup.Group("/batches")
	batchRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		batchRoutes.POST("", batchHandler.CreateBatch)
		batchRoutes.GET("", batchHandler.ListBatches)
		batchRoutes.GET("/:id", batchHandler.GetBatch)
		batchRoutes.POST("/:id/growth-samples", batchHandler.RecordGrowthSample)
		batchRoutes.POST("/:id/move", batchHandler.MoveBatch)
	}

	authenticatedGroup.PUT("/batches/:id", middleware.RoleAuthMiddleware(managerRole...), batchHandler.UpdateBatch)
}

// SetupSalesRoutes sets up the sales routes.
func SetupSalesRoutes(authenticatedGroup *gin.RouterGroup, batchHandler *handlers.BatchHandler) {
	salesRoutes := authenticatedGroup.Group("/sales")
	salesRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		salesRoutes.POST("", batchHandler.RecordSale)
		salesRoutes.GET("", batchHandler.ListSales)
	}
}

// SetupHealthRoutes sets up health logs and treatments.
func SetupHealthRoutes(authenticatedGroup *gin.RouterGroup, healthHandler *handlers.HealthHandler) {
	healthRoutes := authenticatedGroup.Group("/health-logs")
	healthRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		healthRoutes.POST("", healthHandler.LogHealthIssue)
		healthRoutes.GET("", healthHandler.ListHealthLogs)
		healthRoutes.GET("/:id", healthHandler.GetHealthLog)
		healthRoutes.POST("/:id/treatments", healthHandler.AddTreatment)
	}
}

// SetupExpenseRoutes sets up the expense routes.
func SetupExpenseRoutes(authenticatedGroup *gin.RouterGroup, financeHandler *handlers.FinanceHandler) {
	expenseRoutes := authenticatedGroup.Group("/expenses")
	expenseRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		expenseRoutes.POST("", financeHandler.RecordExpense)
		expenseRoutes.GET("", financeHandler.ListExpenses)
		expenseRoutes.GET("/categories", financeHandler.ListExpenseCategories)
	}
}

// SetupReportRoutes sets up the report routes.
func SetupReportRoutes(authenticatedGroup *gin.RouterGroup, financeHandler *handlers.FinanceHandler) {
	reportRoutes := authenticatedGroup.Group("/reports")
	reportRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		reportRoutes.GET("/financial-summary", financeHandler.GetFinancialSummary)
		reportRoutes.GET("/sales", financeHandler.GetSalesReport)
		reportRoutes.GET("/production", financeHandler.GetProductionReport)
	}
}

func SetupTankRoutes(authenticatedGroup *gin.RouterGroup, referenceHandler *handlers.ReferenceHandler) {
	tankRoutes := authenticatedGroup.Group("/tanks")
	tankRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		tankRoutes.POST("", referenceHandler.CreateTank)
		tankRoutes.GET("", referenceHandler.ListTanks)
		tankRoutes.GET("/:id", referenceHandler.GetTank)
	}
}

func SetupCustomerRoutes(authenticatedGroup *gin.RouterGroup, referenceHandler *handlers.ReferenceHandler) {
	customerRoutes := authenticatedGroup.Group("/customers")
	customerRoutes.Use(middleware.RoleAuthMiddleware(anyRole...))
	{
		customerRoutes.POST("", referenceHandler.CreateCustomer)
		customerRoutes.GET("", referenceHandler.ListCustomers)
		customerRoutes.GET("/:id", referenceHandler.GetCustomer)
	}
}

// SetupWorkerRoutes sets up the worker routes.
// Note: writes change salary expenses, so only Admin and Manager may make them.
func SetupWorkerRoutes(authenticatedGroup *gin.RouterGroup, referenceHandler *handlers.ReferenceHandler) {
	workerWriteRoutes := authenticatedGroup.Group("/workers")
	workerWriteRoutes.Use(middleware.RoleAuthMiddleware(managerRole...))
	{
		workerWriteRoutes.POST("", referenceHandler.CreateWorker)
		workerWriteRoutes.PATCH("/:id/status", referenceHandler.UpdateWorkerStatus)
	}

	authenticatedGroup.GET("/workers", middleware.RoleAuthMiddleware(anyRole...), referenceHandler.ListWorkers)
}
