package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	// CommitOptions mirror the add-to-inventory request flags.
	CommitOptions struct {
		PurchaseDate       *time.Time
		AutoCreateProducts bool
		ForcedAdd          bool
	}

	InventoryService interface {
		CommitReceipt(ctx context.Context, receipt *entities.Receipt, resolved []*entities.DetectedLineItem, opts CommitOptions) (int, error)
		GetInventoryItems(ctx context.Context, userID string, page, limit int) ([]domain.InventoryItemResponse, int64, error)
	}

	inventoryService struct {
		inventoryRepository InventoryRepository
	}
)

func NewInventoryService(inventoryRepository InventoryRepository) InventoryService {
	return &inventoryService{
		inventoryRepository: inventoryRepository,
	}
}

// CommitReceipt turns the resolved line items into durable inventory entries
// and marks the receipt validated. The duplicate guard rejects a second
// commit of what looks like the same shopping trip unless forcedAdd is set.
func (s *inventoryService) CommitReceipt(ctx context.Context, receipt *entities.Receipt, resolved []*entities.DetectedLineItem, opts CommitOptions) (int, error) {
	if !opts.ForcedAdd {
		dup, err := s.inventoryRepository.HasCommittedReceipt(ctx, receipt.UserID, receipt.MerchantName, receipt.TotalAmount, receipt.ID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
		}
		if dup {
			return 0, domain.ErrDuplicateReceipt
		}
	}

	purchaseDate := receipt.PurchaseDate
	if opts.PurchaseDate != nil {
		purchaseDate = opts.PurchaseDate
	}

	receiptID := receipt.ID
	items := make([]*entities.InventoryItem, 0, len(resolved))
	for _, lineItem := range resolved {
		entry, err := s.buildEntry(ctx, receipt, lineItem, purchaseDate, opts)
		if err != nil {
			return 0, err
		}
		entry.ReceiptID = &receiptID
		items = append(items, entry)
	}

	if err := s.inventoryRepository.CreateItemsAndValidateReceipt(ctx, receipt, items); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}

	return len(items), nil
}

func (s *inventoryService) buildEntry(ctx context.Context, receipt *entities.Receipt, lineItem *entities.DetectedLineItem, purchaseDate *time.Time, opts CommitOptions) (*entities.InventoryItem, error) {
	name := lineItem.DetectedName
	if lineItem.EditedName != "" {
		name = lineItem.EditedName
	}

	var productID *uuid.UUID
	category := ""

	if lineItem.SelectedMatchID != nil {
		match := selectedCandidate(lineItem)
		if match == nil {
			return nil, fmt.Errorf("%w: selected match missing on line item %s", domain.ErrCommitFailed, lineItem.ID)
		}
		product, err := s.inventoryRepository.GetProductByID(ctx, match.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: catalog product missing for match %s", domain.ErrCommitFailed, match.ID)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
		}
		id := product.ID
		productID = &id
		category = product.Category
		if lineItem.EditedName == "" {
			name = product.Name
		}
	} else if opts.AutoCreateProducts {
		product := &entities.Product{
			ID:       uuid.New(),
			Name:     name,
			Category: "uncategorized",
		}
		if err := s.inventoryRepository.CreateProduct(ctx, product); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
		}
		id := product.ID
		productID = &id
		category = product.Category
	}

	return &entities.InventoryItem{
		ID:              uuid.New(),
		UserID:          receipt.UserID,
		ProductID:       productID,
		Name:            name,
		Quantity:        lineItem.Quantity,
		Category:        category,
		ExpiryDate:      lineItem.ExpiryDate,
		StorageLocation: lineItem.StorageLocation,
		PurchaseDate:    purchaseDate,
	}, nil
}

func (s *inventoryService) GetInventoryItems(ctx context.Context, userID string, page, limit int) ([]domain.InventoryItemResponse, int64, error) {
	items, count, err := s.inventoryRepository.GetInventoryItems(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	response := make([]domain.InventoryItemResponse, 0, len(items))
	for _, item := range items {
		res := domain.InventoryItemResponse{
			ID:              item.ID.String(),
			Name:            item.Name,
			Quantity:        item.Quantity,
			Category:        item.Category,
			ExpiryDate:      item.ExpiryDate,
			StorageLocation: item.StorageLocation,
			PurchaseDate:    item.PurchaseDate,
			CreatedAt:       item.CreatedAt,
		}
		if item.ProductID != nil {
			res.ProductID = item.ProductID.String()
		}
		if item.ReceiptID != nil {
			res.ReceiptID = item.ReceiptID.String()
		}
		response = append(response, res)
	}

	return response, count, nil
}

func selectedCandidate(lineItem *entities.DetectedLineItem) *entities.CandidateMatch {
	if lineItem.SelectedMatchID == nil {
		return nil
	}
	for _, cand := range lineItem.Candidates {
		if cand.ID == *lineItem.SelectedMatchID {
			return cand
		}
	}
	return nil
}
