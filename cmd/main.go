package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/mikews93/deusrex-sub000/internal/auth"
	"github.com/mikews93/deusrex-sub000/internal/handler"
	"github.com/mikews93/deusrex-sub000/internal/middleware"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/pkg/config"
	"github.com/mikews93/deusrex-sub000/pkg/database"
	"github.com/mikews93/deusrex-sub000/pkg/jwtutil"
	"github.com/mikews93/deusrex-sub000/pkg/logger"
	"github.com/mikews93/deusrex-sub000/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting practice service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	if err := database.MigrateModels(
		&model.Organization{},
		&model.User{},
		&model.Membership{},
		&model.Patient{},
		&model.Client{},
		&model.Item{},
		&model.Sale{},
		&model.SaleItem{},
	); err != nil {
		log.Fatal("Failed to migrate database models", zap.Error(err))
	}
	log.Info("Database migrations completed")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Wire repositories and the sale writer
	handler.Initialize(db, cfg)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestID)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Every route not on this list requires a verified token and a resolved
	// principal.
	resolver := auth.NewResolver(db)
	publicRoutes := []middleware.PublicRoute{
		{Method: "GET", Path: "/health"},
		{Method: "GET", Path: "/metrics"},
		{Method: "POST", Path: "/auth/login"},
		{Method: "POST", Path: "/auth/register"},
	}
	e.Use(middleware.Authenticate(resolver, publicRoutes))

	// Public routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	authGroup := e.Group("/auth")
	authGroup.POST("/login", handler.Login)
	authGroup.POST("/register", handler.Register)

	// API routes - all require authentication
	api := e.Group("/api")

	// Organization management - doesn't require organization context
	organizations := api.Group("/organizations")
	organizations.POST("", handler.CreateOrganization)
	organizations.GET("", handler.ListUserOrganizations)

	// Tenant-scoped resources - require organization context
	patients := api.Group("/patients")
	patients.Use(middleware.RequireOrganization)
	patients.GET("", handler.ListPatients)
	patients.POST("", handler.CreatePatient)
	patients.GET("/:id", handler.GetPatient)
	patients.PATCH("/:id", handler.UpdatePatient)
	patients.DELETE("/:id", handler.DeletePatient)

	clients := api.Group("/clients")
	clients.Use(middleware.RequireOrganization)
	clients.GET("", handler.ListClients)
	clients.POST("", handler.CreateClient)
	clients.GET("/:id", handler.GetClient)
	clients.PATCH("/:id", handler.UpdateClient)
	clients.DELETE("/:id", handler.DeleteClient)

	items := api.Group("/items")
	items.Use(middleware.RequireOrganization)
	items.GET("", handler.ListItems)
	items.POST("", handler.CreateItem)
	items.GET("/:id", handler.GetItem)
	items.PATCH("/:id", handler.UpdateItem)
	items.DELETE("/:id", handler.DeleteItem)

	sales := api.Group("/sales")
	sales.Use(middleware.RequireOrganization)
	sales.GET("", handler.ListSales)
	sales.POST("", handler.CreateSale)
	sales.GET("/:id", handler.GetSale)
	sales.PATCH("/:id", handler.UpdateSale)
	sales.PATCH("/:id/status", handler.UpdateSaleStatus)
	sales.DELETE("/:id", handler.DeleteSale)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
