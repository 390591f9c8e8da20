package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hatchery_backend/internal/handlers"
	"hatchery_backend/internal/metrics"
	"hatchery_backend/internal/middleware"
	"hatchery_backend/internal/repositories"
	"hatchery_backend/internal/services"
	"hatchery_backend/pkg/utils"
)

// Repositories bundles every repository the services need. The Postgres
// implementations come from NewPostgresRepositories; tests can fill it from
// the in-memory store instead.
type Repositories struct {
	Auth     repositories.AuthRepository
	Feed     repositories.FeedRepository
	Batch    repositories.BatchRepository
	Sales    repositories.SalesRepository
	Health   repositories.HealthRepository
	Expense  repositories.ExpenseRepository
	Tank     repositories.TankRepository
	Customer repositories.CustomerRepository
	Worker   repositories.WorkerRepository
	Tx       repositories.Transactor
}

// NewPostgresRepositories builds every repository on one connection pool.
func NewPostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Auth:     repositories.NewAuthRepository(db),
		Feed:     repositories.NewFeedRepository(db),
		Batch:    repositories.NewBatchRepository(db),
		Sales:    repositories.NewSalesRepository(db),
		Health:   repositories.NewHealthRepository(db),
		Expense:  repositories.NewExpenseRepository(db),
		Tank:     repositories.NewTankRepository(db),
		Customer: repositories.NewCustomerRepository(db),
		Worker:   repositories.NewWorkerRepository(db),
		Tx:       repositories.NewTransactor(db),
	}
}

// Services is the set of business services exposed over HTTP.
type Services struct {
	Auth      services.AuthService
	Feed      services.FeedService
	Batch     services.BatchService
	Health    services.HealthService
	Finance   services.FinanceService
	Reference services.ReferenceService
}

// Options tune the engine built by New.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewServices wires the services on top of the given repositories.
func NewServices(repos Repositories, lowStockThreshold decimal.Decimal, m *metrics.Metrics) Services {
	return Services{
		Auth:      services.NewAuthService(repos.Auth, repos.Tx),
		Feed:      services.NewFeedService(repos.Feed, repos.Expense, repos.Batch, repos.Tx, lowStockThreshold, m),
		Batch:     services.NewBatchService(repos.Batch, repos.Tank, repos.Customer, repos.Sales, repos.Tx, nil, m),
		Health:    services.NewHealthService(repos.Health, repos.Batch, repos.Tank, repos.Expense, repos.Tx, m),
		Finance:   services.NewFinanceService(repos.Sales, repos.Expense, repos.Worker, repos.Batch, repos.Tx, m),
		Reference: services.NewReferenceService(repos.Tank, repos.Customer, repos.Worker, repos.Tx),
	}
}

// New builds the gin engine with the ambient middleware, /ping, /metrics and the /api/v1 routes.
func New(svc Services, m *metrics.Metrics, opts Options) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(utils.GinLogger())
	engine.Use(middleware.Metrics(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	apiV1 := engine.Group("/api/v1")
	apiV1.Use(middleware.Timeout(opts.RequestTimeout))
	Setup(apiV1, svc)
	return engine
}

// Setup registers every /api/v1 route on the given group.
func Setup(apiV1 *gin.RouterGroup, svc Services) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	feedHandler := handlers.NewFeedHandler(svc.Feed)
	batchHandler := handlers.NewBatchHandler(svc.Batch)
	healthHandler := handlers.NewHealthHandler(svc.Health)
	financeHandler := handlers.NewFinanceHandler(svc.Finance)
	referenceHandler := handlers.NewReferenceHandler(svc.Reference)

	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupFeedRoutes(authenticated, feedHandler)
		SetupBatchRoutes(authenticated, batchHandler)
		SetupSalesRoutes(authenticated, batchHandler)
		SetupHealthRoutes(authenticated, healthHandler)
		SetupExpenseRoutes(authenticated, financeHandler)
		SetupReportRoutes(authenticated, financeHandler)
		SetupTankRoutes(authenticated, referenceHandler)
		SetupCustomerRoutes(authenticated, referenceHandler)
		SetupWorkerRoutes(authenticated, referenceHandler)
	}
}

func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/register", authHandler.RegisterUser)
	group.POST("/login", authHandler.LoginUser)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.LogoutUser)
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/users", middleware.RoleAuthMiddleware(adminRole...), authHandler.CreateUser)
}
