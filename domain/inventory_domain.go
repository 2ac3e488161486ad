package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetInventory = "inventory retrieved successfully"
	MessageFailedGetInventory  = "failed to retrieve inventory"

	ErrCommitFailed     = errors.New("inventory commit failed")
	ErrDuplicateReceipt = errors.New("a receipt with the same merchant and total was already committed")
)

type (
	InventoryItemResponse struct {
		ID              string     `json:"id"`
		Name            string     `json:"name"`
		Quantity        int        `json:"quantity"`
		Category        string     `json:"category"`
		ProductID       string     `json:"product_id,omitempty"`
		ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
		StorageLocation string     `json:"storage_location,omitempty"`
		PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
		ReceiptID       string     `json:"receipt_id,omitempty"`
		CreatedAt       time.Time  `json:"created_at"`
	}
)
