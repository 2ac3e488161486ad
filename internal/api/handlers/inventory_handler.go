package handlers

import (
	"strconv"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/internal/api/presenters"
	"Pantry-Pipeline-Backend/pkg/inventory"

	"github.com/gofiber/fiber/v2"
)

type (
	InventoryHandler interface {
		GetInventoryItems(c *fiber.Ctx) error
	}

	inventoryHandler struct {
		inventoryService inventory.InventoryService
	}
)

func NewInventoryHandler(inventoryService inventory.InventoryService) InventoryHandler {
	return &inventoryHandler{
		inventoryService: inventoryService,
	}
}

func (h *inventoryHandler) GetInventoryItems(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	items, count, err := h.inventoryService.GetInventoryItems(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.DomainErrorResponse(c, domain.MessageFailedGetInventory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"items": items,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetInventory)
}
