package router

import (
	"trade-review/internal/config"
	"trade-review/internal/handler"
	"trade-review/internal/middleware"
	"trade-review/internal/repository"
	"trade-review/internal/service"
	"trade-review/internal/storage"
	"trade-review/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	log := utils.GetLogger()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	dutyRepo := repository.NewDutyRepository(db)

	// File storage for uploaded packing lists
	store, err := storage.NewLocalStore(cfg.UploadPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize upload storage")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	excelService := service.NewExcelService()
	subService := service.NewSubmissionService(subRepo, priceRepo, store, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	subHandler := handler.NewSubmissionHandler(subRepo, subService, excelService, store, cfg)
	adminHandler := handler.NewAdminHandler(subRepo, userRepo, priceRepo, dutyRepo, subService, excelService, redis, cfg, log)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	// Auth routes
	protected.Get("/auth/me", authHandler.Me)

	// Submission routes
	subs := protected.Group("/submissions")
	subs.Post("/", subHandler.Upload)
	subs.Get("/", subHandler.List)
	subs.Get("/template", subHandler.DownloadTemplate)
	subs.Get("/:id", subHandler.Detail)
	subs.Put("/:id/items/:row", subHandler.EditItem)
	subs.Delete("/:id", subHandler.Delete)

	// Admin routes
	admin := protected.Group("/admin", middleware.AdminOnly())
	admin.Get("/submissions", adminHandler.ListSubmissions)
	admin.Post("/submissions/:id/review", adminHandler.Review)
	admin.Get("/stats", adminHandler.Stats)

	prices := admin.Group("/price-list")
	prices.Get("/", adminHandler.ListPrices)
	prices.Get("/template", adminHandler.DownloadPriceListTemplate)
	prices.Post("/import", adminHandler.ImportPriceList)

	duties := admin.Group("/duty-rates")
	duties.Get("/", adminHandler.ListDutyRates)
	duties.Get("/template", adminHandler.DownloadDutyRateTemplate)
	duties.Post("/import", adminHandler.ImportDutyRates)
}
