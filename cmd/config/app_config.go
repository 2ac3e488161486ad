package config

import (
	"os"
	"strconv"
	"time"

	"Pantry-Pipeline-Backend/internal/api/handlers"
	"Pantry-Pipeline-Backend/internal/api/routes"
	"Pantry-Pipeline-Backend/internal/middleware"
	"Pantry-Pipeline-Backend/internal/utils"
	"Pantry-Pipeline-Backend/internal/utils/storage"
	"Pantry-Pipeline-Backend/pkg/inventory"
	"Pantry-Pipeline-Backend/pkg/jwt"
	"Pantry-Pipeline-Backend/pkg/receipt"
	"Pantry-Pipeline-Backend/pkg/recognition"
	"Pantry-Pipeline-Backend/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()

	// Repository
	receiptRepository := receipt.NewReceiptRepository(db)
	inventoryRepository := inventory.NewInventoryRepository(db)

	// Recognition pipeline
	workerClient := recognition.NewWorkerClient(utils.GetConfig("RECOGNITION_URL"))
	matcher := recognition.NewMatcher(inventoryRepository)
	poller := recognition.NewPoller(workerClient, pollInterval(), pollMaxAttempts())
	sessions := validation.NewSessionRegistry()

	// Service
	jwtService := jwt.NewJWTService()
	inventoryService := inventory.NewInventoryService(inventoryRepository)
	receiptService := receipt.NewReceiptService(
		receiptRepository,
		s3,
		workerClient,
		matcher,
		poller,
		sessions,
		inventoryService,
	)

	// Stale scan reaper
	reaper := receipt.NewReaper(receiptRepository)
	if err := reaper.Start(); err != nil {
		log.Fatalf("error starting stale scan reaper: %v", err)
	}

	// Handler
	receiptHandler := handlers.NewReceiptHandler(receiptService, validator)
	inventoryHandler := handlers.NewInventoryHandler(inventoryService)

	// routes
	routesConfig := routes.Config{
		App:              app,
		ReceiptHandler:   receiptHandler,
		InventoryHandler: inventoryHandler,
		Middleware:       middlewares,
		JWTService:       jwtService,
	}
	routesConfig.Setup()
	return app, nil
}

func pollInterval() time.Duration {
	seconds, _ := strconv.Atoi(utils.GetConfig("POLL_INTERVAL_SECONDS"))
	if seconds <= 0 {
		return recognition.DefaultPollInterval
	}
	return time.Duration(seconds) * time.Second
}

func pollMaxAttempts() int {
	attempts, _ := strconv.Atoi(utils.GetConfig("POLL_MAX_ATTEMPTS"))
	if attempts <= 0 {
		return recognition.DefaultPollMaxAttempts
	}
	return attempts
}
