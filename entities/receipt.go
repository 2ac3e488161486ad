package entities

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReceiptStatusProcessing = "processing"
	ReceiptStatusCompleted  = "completed"
	ReceiptStatusFailed     = "failed"
	ReceiptStatusValidated  = "validated"
)

type Receipt struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	ImageURL        string     `json:"image_url"`
	Status          string     `json:"status"` // processing, completed, failed, validated
	MerchantName    string     `json:"merchant_name,omitempty"`
	MerchantAddress string     `json:"merchant_address,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty" gorm:"type:text"`
	JobRef          string     `json:"-"`

	User      *User               `gorm:"foreignKey:UserID"`
	LineItems []*DetectedLineItem `gorm:"foreignKey:ReceiptID"`
	Timestamp
}
