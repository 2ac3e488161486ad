package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	ResolutionPending  = "pending"
	ResolutionResolved = "resolved"
	ResolutionSkipped  = "skipped"
)

type DetectedLineItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ReceiptID        uuid.UUID  `json:"receipt_id"`
	DetectedName     string     `json:"detected_name"`
	Quantity         int        `json:"quantity"`
	UnitPrice        *float64   `json:"unit_price,omitempty"`
	TotalPrice       *float64   `json:"total_price,omitempty"`
	Confidence       float64    `json:"confidence"`
	Position         int        `json:"position"` // detection order on the receipt
	ResolutionStatus string     `json:"resolution_status"` // pending, resolved, skipped
	SelectedMatchID  *uuid.UUID `json:"selected_match_id,omitempty"`
	EditedName       string     `json:"edited_name,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
	StorageLocation  string     `json:"storage_location,omitempty"`

	Candidates []*CandidateMatch `gorm:"foreignKey:LineItemID" json:"candidates"`
	Timestamp
}

type CandidateMatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	LineItemID  uuid.UUID `json:"line_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	DisplayName string    `json:"display_name"`
	Confidence  float64   `json:"confidence"`
	ImageURL    string    `json:"image_url,omitempty"`
	Rank        int       `json:"rank"`

	Product *Product `gorm:"foreignKey:ProductID"`
	Timestamp
}
