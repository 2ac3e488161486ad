package routes

import (
	"Pantry-Pipeline-Backend/internal/api/handlers"
	"Pantry-Pipeline-Backend/internal/middleware"
	"Pantry-Pipeline-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App              *fiber.App
	ReceiptHandler   handlers.ReceiptHandler
	InventoryHandler handlers.InventoryHandler
	Middleware       middleware.Middleware
	JWTService       jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Receipts()
	c.Inventory()
	c.GuestRoute()
}

func (c *Config) Receipts() {
	receipts := c.App.Group("/api/v1/receipts", c.Middleware.AuthMiddleware(c.JWTService))

	receipts.Post("/upload", c.ReceiptHandler.UploadReceipt)
	receipts.Get("/:id/status", c.ReceiptHandler.GetStatus)
	receipts.Get("/:id/results", c.ReceiptHandler.GetResults)
	receipts.Put("/:id/items/:itemId", c.ReceiptHandler.UpdateLineItem)
	receipts.Post("/:id/advance-phase", c.ReceiptHandler.AdvancePhase)
	receipts.Post("/:id/add-to-inventory", c.ReceiptHandler.CommitReceipt)
	receipts.Delete("/:id", c.ReceiptHandler.DeleteReceipt)
}

func (c *Config) Inventory() {
	inventory := c.App.Group("/api/v1/inventory", c.Middleware.AuthMiddleware(c.JWTService))
	inventory.Get("", c.InventoryHandler.GetInventoryItems)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
