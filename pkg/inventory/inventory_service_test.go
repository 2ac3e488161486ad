package inventory_test

import (
	"context"
	"testing"
	"time"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"
	"Pantry-Pipeline-Backend/pkg/inventory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeInventoryRepository struct {
	products        map[uuid.UUID]*entities.Product
	committedBefore bool

	createdItems      []*entities.InventoryItem
	createdProducts   []*entities.Product
	validatedReceipts []uuid.UUID
	txErr             error
}

func newFakeInventoryRepository() *fakeInventoryRepository {
	return &fakeInventoryRepository{products: make(map[uuid.UUID]*entities.Product)}
}

func (r *fakeInventoryRepository) CreateItemsAndValidateReceipt(ctx context.Context, receipt *entities.Receipt, items []*entities.InventoryItem) error {
	if r.txErr != nil {
		return r.txErr
	}
	r.createdItems = append(r.createdItems, items...)
	r.validatedReceipts = append(r.validatedReceipts, receipt.ID)
	return nil
}

func (r *fakeInventoryRepository) GetInventoryItems(ctx context.Context, userID string, page, limit int) ([]*entities.InventoryItem, int64, error) {
	return r.createdItems, int64(len(r.createdItems)), nil
}

func (r *fakeInventoryRepository) HasCommittedReceipt(ctx context.Context, userID uuid.UUID, merchant string, total *float64, excludeReceiptID uuid.UUID) (bool, error) {
	return r.committedBefore, nil
}

func (r *fakeInventoryRepository) SearchProductsByName(ctx context.Context, name string, limit int) ([]*entities.Product, error) {
	return nil, nil
}

func (r *fakeInventoryRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	return product, nil
}

func (r *fakeInventoryRepository) CreateProduct(ctx context.Context, product *entities.Product) error {
	r.products[product.ID] = product
	r.createdProducts = append(r.createdProducts, product)
	return nil
}

func testReceipt() *entities.Receipt {
	total := 42.50
	return &entities.Receipt{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Status:       entities.ReceiptStatusCompleted,
		MerchantName: "Corner Grocer",
		TotalAmount:  &total,
	}
}

func resolvedItem(name string, quantity int) *entities.DetectedLineItem {
	return &entities.DetectedLineItem{
		ID:               uuid.New(),
		DetectedName:     name,
		Quantity:         quantity,
		ResolutionStatus: entities.ResolutionResolved,
	}
}

func withSelectedMatch(item *entities.DetectedLineItem, product *entities.Product) *entities.DetectedLineItem {
	match := &entities.CandidateMatch{
		ID:          uuid.New(),
		LineItemID:  item.ID,
		ProductID:   product.ID,
		DisplayName: product.Name,
	}
	item.Candidates = []*entities.CandidateMatch{match}
	item.SelectedMatchID = &match.ID
	return item
}

func TestCommitReceiptUsesCatalogProductForSelectedMatch(t *testing.T) {
	repo := newFakeInventoryRepository()
	milk := &entities.Product{ID: uuid.New(), Name: "Whole Milk 1L", Category: "dairy"}
	repo.products[milk.ID] = milk

	receipt := testReceipt()
	item := withSelectedMatch(resolvedItem("MLK WHL 1L", 2), milk)

	service := inventory.NewInventoryService(repo)
	committed, err := service.CommitReceipt(context.Background(), receipt, []*entities.DetectedLineItem{item}, inventory.CommitOptions{})

	require.NoError(t, err)
	require.Equal(t, 1, committed)
	require.Len(t, repo.createdItems, 1)

	entry := repo.createdItems[0]
	require.Equal(t, "Whole Milk 1L", entry.Name, "catalog name replaces the raw detection")
	require.Equal(t, "dairy", entry.Category)
	require.Equal(t, 2, entry.Quantity)
	require.NotNil(t, entry.ProductID)
	require.Equal(t, milk.ID, *entry.ProductID)
	require.Equal(t, receipt.UserID, entry.UserID)
	require.Equal(t, []uuid.UUID{receipt.ID}, repo.validatedReceipts)
}

func TestCommitReceiptKeepsUserEditedName(t *testing.T) {
	repo := newFakeInventoryRepository()
	milk := &entities.Product{ID: uuid.New(), Name: "Whole Milk 1L", Category: "dairy"}
	repo.products[milk.ID] = milk

	item := withSelectedMatch(resolvedItem("MLK WHL 1L", 1), milk)
	item.EditedName = "Milk for the kids"

	service := inventory.NewInventoryService(repo)
	_, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{item}, inventory.CommitOptions{})

	require.NoError(t, err)
	require.Equal(t, "Milk for the kids", repo.createdItems[0].Name)
}

func TestCommitReceiptAutoCreatesProducts(t *testing.T) {
	repo := newFakeInventoryRepository()
	item := resolvedItem("Local Honey", 1)
	item.EditedName = "Honey"

	service := inventory.NewInventoryService(repo)
	committed, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{item},
		inventory.CommitOptions{AutoCreateProducts: true})

	require.NoError(t, err)
	require.Equal(t, 1, committed)
	require.Len(t, repo.createdProducts, 1)
	require.Equal(t, "Honey", repo.createdProducts[0].Name)
	require.Equal(t, "uncategorized", repo.createdProducts[0].Category)
	require.NotNil(t, repo.createdItems[0].ProductID)
	require.Equal(t, repo.createdProducts[0].ID, *repo.createdItems[0].ProductID)
}

func TestCommitReceiptWithoutMatchOrAutoCreateLeavesProductUnset(t *testing.T) {
	repo := newFakeInventoryRepository()
	item := resolvedItem("Mystery Snack", 3)

	service := inventory.NewInventoryService(repo)
	committed, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{item}, inventory.CommitOptions{})

	require.NoError(t, err)
	require.Equal(t, 1, committed)
	require.Empty(t, repo.createdProducts)
	require.Nil(t, repo.createdItems[0].ProductID)
	require.Equal(t, "Mystery Snack", repo.createdItems[0].Name)
}

func TestCommitReceiptRejectsDuplicate(t *testing.T) {
	repo := newFakeInventoryRepository()
	repo.committedBefore = true

	service := inventory.NewInventoryService(repo)
	_, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{resolvedItem("Milk", 1)}, inventory.CommitOptions{})

	require.ErrorIs(t, err, domain.ErrDuplicateReceipt)
	require.Empty(t, repo.createdItems)
}

func TestCommitReceiptForcedAddBypassesDuplicateGuard(t *testing.T) {
	repo := newFakeInventoryRepository()
	repo.committedBefore = true

	service := inventory.NewInventoryService(repo)
	committed, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{resolvedItem("Milk", 1)},
		inventory.CommitOptions{ForcedAdd: true})

	require.NoError(t, err)
	require.Equal(t, 1, committed)
}

func TestCommitReceiptOverridesPurchaseDate(t *testing.T) {
	repo := newFakeInventoryRepository()
	receipt := testReceipt()
	receiptDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	receipt.PurchaseDate = &receiptDate
	override := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	service := inventory.NewInventoryService(repo)
	_, err := service.CommitReceipt(context.Background(), receipt, []*entities.DetectedLineItem{resolvedItem("Milk", 1)},
		inventory.CommitOptions{PurchaseDate: &override})

	require.NoError(t, err)
	require.Equal(t, override, *repo.createdItems[0].PurchaseDate)
}

func TestCommitReceiptWrapsTransactionFailure(t *testing.T) {
	repo := newFakeInventoryRepository()
	repo.txErr = context.DeadlineExceeded

	service := inventory.NewInventoryService(repo)
	_, err := service.CommitReceipt(context.Background(), testReceipt(), []*entities.DetectedLineItem{resolvedItem("Milk", 1)}, inventory.CommitOptions{})

	require.ErrorIs(t, err, domain.ErrCommitFailed)
	require.Empty(t, repo.validatedReceipts)
}

func TestGetInventoryItemsMapsEntries(t *testing.T) {
	repo := newFakeInventoryRepository()
	productID := uuid.New()
	receiptID := uuid.New()
	expiry := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	repo.createdItems = []*entities.InventoryItem{{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		ProductID:       &productID,
		ReceiptID:       &receiptID,
		Name:            "Whole Milk 1L",
		Quantity:        2,
		Category:        "dairy",
		ExpiryDate:      &expiry,
		StorageLocation: "fridge",
	}}

	service := inventory.NewInventoryService(repo)
	items, count, err := service.GetInventoryItems(context.Background(), uuid.New().String(), 1, 10)

	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Len(t, items, 1)
	require.Equal(t, "Whole Milk 1L", items[0].Name)
	require.Equal(t, productID.String(), items[0].ProductID)
	require.Equal(t, receiptID.String(), items[0].ReceiptID)
	require.Equal(t, "fridge", items[0].StorageLocation)
	require.Equal(t, &expiry, items[0].ExpiryDate)
}
