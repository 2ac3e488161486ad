package receipt

import (
	"context"
	"time"

	"Pantry-Pipeline-Backend/entities"

	"gorm.io/gorm"
)

type (
	ReceiptRepository interface {
		CreateReceipt(ctx context.Context, receipt *entities.Receipt) error
		GetReceiptByID(ctx context.Context, id string) (*entities.Receipt, error)
		UpdateReceipt(ctx context.Context, receipt *entities.Receipt) error
		DeleteReceipt(ctx context.Context, id string) error

		// Terminal transitions are guarded on the current status so a late
		// poller can never overwrite an already-terminal receipt.
		CompleteProcessing(ctx context.Context, receipt *entities.Receipt) error
		FailProcessing(ctx context.Context, id string, message string) error

		CreateLineItems(ctx context.Context, items []*entities.DetectedLineItem) error
		UpdateLineItem(ctx context.Context, item *entities.DetectedLineItem) error
		GetLineItemsByReceipt(ctx context.Context, receiptID string) ([]*entities.DetectedLineItem, error)

		GetStaleProcessing(ctx context.Context, olderThan time.Time) ([]*entities.Receipt, error)
		GetUserByID(ctx context.Context, id string) (*entities.User, error)
	}

	receiptRepository struct {
		db *gorm.DB
	}
)

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) CreateReceipt(ctx context.Context, receipt *entities.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepository) GetReceiptByID(ctx context.Context, id string) (*entities.Receipt, error) {
	var receipt entities.Receipt
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		Preload("LineItems.Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank asc")
		}).
		Where("id = ?", id).
		First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) UpdateReceipt(ctx context.Context, receipt *entities.Receipt) error {
	return r.db.WithContext(ctx).Save(receipt).Error
}

func (r *receiptRepository) DeleteReceipt(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("line_item_id IN (?)",
			tx.Model(&entities.DetectedLineItem{}).Select("id").Where("receipt_id = ?", id),
		).Delete(&entities.CandidateMatch{}).Error; err != nil {
			return err
		}
		if err := tx.Where("receipt_id = ?", id).Delete(&entities.DetectedLineItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entities.Receipt{}).Error
	})
}

func (r *receiptRepository) CompleteProcessing(ctx context.Context, receipt *entities.Receipt) error {
	return r.db.WithContext(ctx).Model(&entities.Receipt{}).
		Where("id = ? AND status = ?", receipt.ID, entities.ReceiptStatusProcessing).
		Updates(map[string]interface{}{
			"status":           entities.ReceiptStatusCompleted,
			"merchant_name":    receipt.MerchantName,
			"merchant_address": receipt.MerchantAddress,
			"total_amount":     receipt.TotalAmount,
			"purchase_date":    receipt.PurchaseDate,
		}).Error
}

func (r *receiptRepository) FailProcessing(ctx context.Context, id string, message string) error {
	return r.db.WithContext(ctx).Model(&entities.Receipt{}).
		Where("id = ? AND status = ?", id, entities.ReceiptStatusProcessing).
		Updates(map[string]interface{}{
			"status":        entities.ReceiptStatusFailed,
			"error_message": message,
		}).Error
}

func (r *receiptRepository) CreateLineItems(ctx context.Context, items []*entities.DetectedLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *receiptRepository) UpdateLineItem(ctx context.Context, item *entities.DetectedLineItem) error {
	return r.db.WithContext(ctx).Omit("Candidates").Save(item).Error
}

func (r *receiptRepository) GetLineItemsByReceipt(ctx context.Context, receiptID string) ([]*entities.DetectedLineItem, error) {
	var items []*entities.DetectedLineItem
	if err := r.db.WithContext(ctx).
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("rank asc")
		}).
		Where("receipt_id = ?", receiptID).
		Order("position asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *receiptRepository) GetStaleProcessing(ctx context.Context, olderThan time.Time) ([]*entities.Receipt, error) {
	var receipts []*entities.Receipt
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", entities.ReceiptStatusProcessing, olderThan).
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *receiptRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
