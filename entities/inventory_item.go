package entities

import (
	"time"

	"github.com/google/uuid"
)

type InventoryItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	ProductID       *uuid.UUID `json:"product_id,omitempty"`
	Name            string     `json:"name"`
	Quantity        int        `json:"quantity"`
	Category        string     `json:"category"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	StorageLocation string     `json:"storage_location,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	ReceiptID       *uuid.UUID `json:"receipt_id,omitempty"`

	User    *User    `gorm:"foreignKey:UserID"`
	Product *Product `gorm:"foreignKey:ProductID"`
	Timestamp
}
