package entities

import (
	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string    `gorm:"index" json:"name"`
	Category    string    `json:"category"`
	DefaultUnit string    `json:"default_unit"`
	ImageURL    string    `json:"image_url,omitempty"`

	Timestamp
}
