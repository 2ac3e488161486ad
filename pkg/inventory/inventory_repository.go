package inventory

import (
	"context"

	"Pantry-Pipeline-Backend/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	InventoryRepository interface {
		CreateItemsAndValidateReceipt(ctx context.Context, receipt *entities.Receipt, items []*entities.InventoryItem) error
		GetInventoryItems(ctx context.Context, userID string, page, limit int) ([]*entities.InventoryItem, int64, error)
		HasCommittedReceipt(ctx context.Context, userID uuid.UUID, merchant string, total *float64, excludeReceiptID uuid.UUID) (bool, error)

		SearchProductsByName(ctx context.Context, name string, limit int) ([]*entities.Product, error)
		GetProductByID(ctx context.Context, id uuid.UUID) (*entities.Product, error)
		CreateProduct(ctx context.Context, product *entities.Product) error
	}

	inventoryRepository struct {
		db *gorm.DB
	}
)

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// CreateItemsAndValidateReceipt inserts the committed entries and flips the
// receipt to validated in a single transaction, so a half-committed receipt
// can never be observed.
func (r *inventoryRepository) CreateItemsAndValidateReceipt(ctx context.Context, receipt *entities.Receipt, items []*entities.InventoryItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return tx.Model(&entities.Receipt{}).
			Where("id = ?", receipt.ID).
			Update("status", entities.ReceiptStatusValidated).Error
	})
}

func (r *inventoryRepository) GetInventoryItems(ctx context.Context, userID string, page, limit int) ([]*entities.InventoryItem, int64, error) {
	var items []*entities.InventoryItem
	var count int64

	offset := (page - 1) * limit
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if err := query.Model(&entities.InventoryItem{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *inventoryRepository) HasCommittedReceipt(ctx context.Context, userID uuid.UUID, merchant string, total *float64, excludeReceiptID uuid.UUID) (bool, error) {
	if merchant == "" || total == nil {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Receipt{}).
		Where("user_id = ? AND merchant_name = ? AND total_amount = ? AND status = ? AND id <> ?",
			userID, merchant, *total, entities.ReceiptStatusValidated, excludeReceiptID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *inventoryRepository) SearchProductsByName(ctx context.Context, name string, limit int) ([]*entities.Product, error) {
	var products []*entities.Product
	if err := r.db.WithContext(ctx).
		Where("name ILIKE ?", "%"+name+"%").
		Order("name asc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *inventoryRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *inventoryRepository) CreateProduct(ctx context.Context, product *entities.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}
