package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/entities"
	"Pantry-Pipeline-Backend/internal/utils"
	"Pantry-Pipeline-Backend/internal/utils/mailing"
	"Pantry-Pipeline-Backend/internal/utils/storage"
	"Pantry-Pipeline-Backend/pkg/inventory"
	"Pantry-Pipeline-Backend/pkg/recognition"
	"Pantry-Pipeline-Backend/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type (
	ReceiptService interface {
		UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest, userID string) (domain.UploadReceiptResponse, error)
		GetStatus(ctx context.Context, id string, userID string) (domain.ReceiptStatusResponse, error)
		GetResults(ctx context.Context, id string, userID string) (domain.ReceiptResultsResponse, error)
		UpdateLineItem(ctx context.Context, receiptID, itemID string, req domain.UpdateLineItemRequest, userID string) (domain.LineItemResponse, error)
		AdvancePhase(ctx context.Context, receiptID string, userID string) (domain.ReceiptResultsResponse, error)
		CommitReceipt(ctx context.Context, receiptID string, req domain.CommitReceiptRequest, userID string) (domain.CommitReceiptResponse, error)
		DeleteReceipt(ctx context.Context, id string, userID string) error
	}

	receiptService struct {
		receiptRepository ReceiptRepository
		s3                storage.AwsS3
		worker            recognition.WorkerClient
		matcher           *recognition.Matcher
		poller            *recognition.Poller
		tracker           *recognition.PollTracker
		sessions          *validation.SessionRegistry
		inventoryService  inventory.InventoryService

		maxImageBytes int64
		threshold     float64
	}
)

func NewReceiptService(
	receiptRepository ReceiptRepository,
	s3 storage.AwsS3,
	worker recognition.WorkerClient,
	matcher *recognition.Matcher,
	poller *recognition.Poller,
	sessions *validation.SessionRegistry,
	inventoryService inventory.InventoryService,
) ReceiptService {
	maxMB, _ := strconv.Atoi(utils.GetConfig("MAX_RECEIPT_IMAGE_MB"))
	if maxMB <= 0 {
		maxMB = 10
	}
	threshold, _ := strconv.ParseFloat(utils.GetConfig("CONFIDENCE_THRESHOLD"), 64)
	if threshold <= 0 {
		threshold = validation.DefaultConfidenceThreshold
	}

	return &receiptService{
		receiptRepository: receiptRepository,
		s3:                s3,
		worker:            worker,
		matcher:           matcher,
		poller:            poller,
		tracker:           recognition.NewPollTracker(),
		sessions:          sessions,
		inventoryService:  inventoryService,
		maxImageBytes:     int64(maxMB) * 1024 * 1024,
		threshold:         threshold,
	}
}

// UploadReceipt validates the image, stores it, creates the receipt in
// processing, and hands the work to the recognition worker. Enqueue failure
// marks the receipt failed on the spot; it is never left stuck in processing.
func (s *receiptService) UploadReceipt(ctx context.Context, req domain.UploadReceiptRequest, userID string) (domain.UploadReceiptResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.UploadReceiptResponse{}, domain.ErrParseUUID
	}

	// Fail fast, before any storage or network cost.
	if req.ReceiptImage.Size > s.maxImageBytes {
		return domain.UploadReceiptResponse{}, domain.ErrImageTooLarge
	}
	contentType := req.ReceiptImage.Header.Get("Content-Type")
	if !allowedImageType(contentType) {
		return domain.UploadReceiptResponse{}, domain.ErrUnsupportedImageType
	}

	file, err := req.ReceiptImage.Open()
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}
	defer file.Close()
	imageBytes, err := io.ReadAll(file)
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}

	receiptID := uuid.New()
	fileName := fmt.Sprintf("receipt-%s", receiptID.String())
	objectKey, err := s.s3.UploadFile(fileName, req.ReceiptImage, "receipts", storage.AllowImage...)
	if err != nil {
		return domain.UploadReceiptResponse{}, err
	}
	imageURL := s.s3.GetPublicLinkKey(objectKey)

	receipt := &entities.Receipt{
		ID:       receiptID,
		UserID:   userUUID,
		ImageURL: imageURL,
		Status:   entities.ReceiptStatusProcessing,
	}
	if err := s.receiptRepository.CreateReceipt(ctx, receipt); err != nil {
		_ = s.s3.DeleteFile(objectKey)
		return domain.UploadReceiptResponse{}, err
	}

	jobRef, err := s.worker.Enqueue(ctx, imageBytes, req.ReceiptImage.Filename, contentType)
	if err != nil {
		_ = s.receiptRepository.FailProcessing(context.Background(), receiptID.String(),
			fmt.Sprintf("failed to enqueue recognition: %s", err.Error()))
		return domain.UploadReceiptResponse{}, err
	}

	receipt.JobRef = jobRef
	if err := s.receiptRepository.UpdateReceipt(ctx, receipt); err != nil {
		log.Printf("Error storing job ref for receipt %s: %v", receiptID, err)
	}

	handle := s.poller.Start(context.Background(), jobRef)
	s.tracker.Replace(receiptID, handle)
	go s.awaitRecognition(receiptID, handle)

	return domain.UploadReceiptResponse{
		ReceiptID: receiptID.String(),
		ImageURL:  imageURL,
		Status:    receipt.Status,
	}, nil
}

// awaitRecognition consumes the poll's single terminal outcome and applies
// it to the receipt. Terminal writes are guarded in the repository, so a
// stale poller cannot flip an already-terminal receipt.
func (s *receiptService) awaitRecognition(receiptID uuid.UUID, handle *recognition.PollHandle) {
	defer s.tracker.Drop(receiptID, handle)

	outcome := <-handle.Done()
	if errors.Is(outcome.Err, recognition.ErrPollCanceled) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if outcome.Err != nil {
		message := outcome.Err.Error()
		var failure *recognition.WorkerFailure
		if errors.As(outcome.Err, &failure) {
			message = failure.Message
		} else if errors.Is(outcome.Err, domain.ErrPollTimeout) {
			message = "recognition timed out"
		}
		if err := s.receiptRepository.FailProcessing(ctx, receiptID.String(), message); err != nil {
			log.Printf("Error failing receipt %s: %v", receiptID, err)
		}
		return
	}

	if err := s.applyResult(ctx, receiptID, outcome.Result); err != nil {
		log.Printf("Error applying recognition result for receipt %s: %v", receiptID, err)
		if failErr := s.receiptRepository.FailProcessing(ctx, receiptID.String(), "failed to store recognition results"); failErr != nil {
			log.Printf("Error failing receipt %s: %v", receiptID, failErr)
		}
	}
}

func (s *receiptService) applyResult(ctx context.Context, receiptID uuid.UUID, result *recognition.WorkerResult) error {
	receipt, err := s.receiptRepository.GetReceiptByID(ctx, receiptID.String())
	if err != nil {
		return err
	}
	if receipt.Status != entities.ReceiptStatusProcessing {
		return nil
	}

	receipt.MerchantName = result.MerchantName
	receipt.MerchantAddress = result.MerchantAddress
	receipt.TotalAmount = result.TotalAmount
	if result.PurchaseDate != "" {
		if purchaseDate, parseErr := time.Parse(dateLayout, result.PurchaseDate); parseErr == nil {
			receipt.PurchaseDate = &purchaseDate
		}
	}

	items := make([]*entities.DetectedLineItem, 0, len(result.Items))
	for i, raw := range result.Items {
		quantity := raw.Quantity
		if quantity < 1 {
			quantity = 1
		}
		confidence := raw.Confidence
		if confidence < 0 || confidence > 1 {
			confidence = 0
		}

		item := &entities.DetectedLineItem{
			ID:               uuid.New(),
			ReceiptID:        receiptID,
			DetectedName:     raw.Name,
			Quantity:         quantity,
			UnitPrice:        raw.UnitPrice,
			TotalPrice:       raw.TotalPrice,
			Confidence:       confidence,
			Position:         i,
			ResolutionStatus: entities.ResolutionPending,
		}

		candidates, candErr := s.matcher.BuildCandidates(ctx, item.ID, raw)
		if candErr != nil {
			return candErr
		}
		item.Candidates = candidates
		items = append(items, item)
	}

	if err := s.receiptRepository.CreateLineItems(ctx, items); err != nil {
		return err
	}
	if err := s.receiptRepository.CompleteProcessing(ctx, receipt); err != nil {
		return err
	}

	s.sessions.Create(receiptID, items, s.threshold)
	s.notifyReceiptReady(ctx, receipt, len(items))
	return nil
}

func (s *receiptService) notifyReceiptReady(ctx context.Context, receipt *entities.Receipt, totalItems int) {
	user, err := s.receiptRepository.GetUserByID(ctx, receipt.UserID.String())
	if err != nil || user.Email == "" {
		return
	}

	body := mailing.ReceiptReadyBody(user.Name, receipt.ID.String(), totalItems)
	if err := mailing.SendMail(user.Email, "Your receipt is ready for review", body); err != nil {
		log.Printf("Error sending receipt-ready mail for %s: %v", receipt.ID, err)
	}
}

func (s *receiptService) GetStatus(ctx context.Context, id string, userID string) (domain.ReceiptStatusResponse, error) {
	receipt, err := s.getOwnedReceipt(ctx, id, userID)
	if err != nil {
		return domain.ReceiptStatusResponse{}, err
	}

	total := len(receipt.LineItems)
	resolved := 0
	for _, item := range receipt.LineItems {
		if item.ResolutionStatus == entities.ResolutionResolved {
			resolved++
		}
	}

	progress := 0.0
	if total > 0 {
		progress = float64(resolved) / float64(total)
	}

	return domain.ReceiptStatusResponse{
		ReceiptID:          receipt.ID.String(),
		Status:             receipt.Status,
		ValidationProgress: progress,
		TotalItems:         total,
		ResolvedItems:      resolved,
		ErrorMessage:       receipt.ErrorMessage,
	}, nil
}

func (s *receiptService) GetResults(ctx context.Context, id string, userID string) (domain.ReceiptResultsResponse, error) {
	receipt, err := s.getOwnedReceipt(ctx, id, userID)
	if err != nil {
		return domain.ReceiptResultsResponse{}, err
	}

	switch receipt.Status {
	case entities.ReceiptStatusProcessing:
		return domain.ReceiptResultsResponse{}, domain.ErrReceiptNotReady
	case entities.ReceiptStatusFailed:
		return domain.ReceiptResultsResponse{}, fmt.Errorf("%w: %s", domain.ErrWorkerFailed, receipt.ErrorMessage)
	case entities.ReceiptStatusValidated:
		return s.committedResults(receipt), nil
	}

	engine, err := s.sessionFor(receipt)
	if err != nil {
		return domain.ReceiptResultsResponse{}, err
	}

	return s.resultsFromEngine(receipt, engine), nil
}

func (s *receiptService) UpdateLineItem(ctx context.Context, receiptID, itemID string, req domain.UpdateLineItemRequest, userID string) (domain.LineItemResponse, error) {
	receipt, err := s.getOwnedReceipt(ctx, receiptID, userID)
	if err != nil {
		return domain.LineItemResponse{}, err
	}
	if receipt.Status == entities.ReceiptStatusValidated {
		return domain.LineItemResponse{}, domain.ErrReceiptCommitted
	}
	if receipt.Status != entities.ReceiptStatusCompleted {
		return domain.LineItemResponse{}, domain.ErrReceiptNotReady
	}

	itemUUID, err := uuid.Parse(itemID)
	if err != nil {
		return domain.LineItemResponse{}, domain.ErrParseUUID
	}

	engine, err := s.sessionFor(receipt)
	if err != nil {
		return domain.LineItemResponse{}, err
	}

	switch {
	case req.SelectedMatchID != "":
		matchUUID, parseErr := uuid.Parse(req.SelectedMatchID)
		if parseErr != nil {
			return domain.LineItemResponse{}, domain.ErrParseUUID
		}
		err = engine.SelectMatch(itemUUID, matchUUID)
	case req.Skip:
		err = engine.Skip(itemUUID)
	default:
		patch := validation.EditPatch{
			Name:            req.Name,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			StorageLocation: req.StorageLocation,
		}
		if req.ExpiryDate != "" {
			expiry, parseErr := time.Parse(dateLayout, req.ExpiryDate)
			if parseErr != nil {
				return domain.LineItemResponse{}, domain.ErrInvalidExpiryDate
			}
			patch.ExpiryDate = &expiry
		}
		err = engine.Edit(itemUUID, patch)
	}
	if err != nil {
		return domain.LineItemResponse{}, err
	}

	item, ok := engine.Item(itemUUID)
	if !ok {
		return domain.LineItemResponse{}, domain.ErrLineItemNotFound
	}
	if err := s.receiptRepository.UpdateLineItem(ctx, item); err != nil {
		return domain.LineItemResponse{}, err
	}

	return lineItemResponse(item), nil
}

func (s *receiptService) AdvancePhase(ctx context.Context, receiptID string, userID string) (domain.ReceiptResultsResponse, error) {
	receipt, err := s.getOwnedReceipt(ctx, receiptID, userID)
	if err != nil {
		return domain.ReceiptResultsResponse{}, err
	}
	if receipt.Status != entities.ReceiptStatusCompleted {
		return domain.ReceiptResultsResponse{}, domain.ErrReceiptNotReady
	}

	engine, err := s.sessionFor(receipt)
	if err != nil {
		return domain.ReceiptResultsResponse{}, err
	}
	if err := engine.AdvanceFromPhase1(); err != nil {
		return domain.ReceiptResultsResponse{}, err
	}

	return s.resultsFromEngine(receipt, engine), nil
}

// CommitReceipt hands the resolved items to the inventory committer. Failure
// there leaves the session in its reviewing state so nothing is lost; success
// tears the session down with the receipt already validated.
func (s *receiptService) CommitReceipt(ctx context.Context, receiptID string, req domain.CommitReceiptRequest, userID string) (domain.CommitReceiptResponse, error) {
	receipt, err := s.getOwnedReceipt(ctx, receiptID, userID)
	if err != nil {
		return domain.CommitReceiptResponse{}, err
	}
	if receipt.Status == entities.ReceiptStatusValidated {
		return domain.CommitReceiptResponse{}, domain.ErrReceiptCommitted
	}
	if receipt.Status != entities.ReceiptStatusCompleted {
		return domain.CommitReceiptResponse{}, domain.ErrReceiptNotReady
	}

	opts := inventory.CommitOptions{
		AutoCreateProducts: req.AutoCreateProducts,
		ForcedAdd:          req.ForcedAdd,
	}
	if req.PurchaseDate != "" {
		purchaseDate, parseErr := time.Parse(dateLayout, req.PurchaseDate)
		if parseErr != nil {
			return domain.CommitReceiptResponse{}, domain.ErrInvalidExpiryDate
		}
		opts.PurchaseDate = &purchaseDate
	}

	engine, err := s.sessionFor(receipt)
	if err != nil {
		return domain.CommitReceiptResponse{}, err
	}

	commitSet, err := engine.BeginCommit()
	if err != nil {
		return domain.CommitReceiptResponse{}, err
	}

	committed, commitErr := s.inventoryService.CommitReceipt(ctx, receipt, commitSet, opts)
	engine.FinishCommit(commitErr)
	if commitErr != nil {
		return domain.CommitReceiptResponse{}, commitErr
	}

	s.sessions.Remove(receipt.ID)

	return domain.CommitReceiptResponse{
		ReceiptID:      receipt.ID.String(),
		CommittedItems: committed,
		Status:         entities.ReceiptStatusValidated,
	}, nil
}

func (s *receiptService) DeleteReceipt(ctx context.Context, id string, userID string) error {
	receipt, err := s.getOwnedReceipt(ctx, id, userID)
	if err != nil {
		return err
	}
	if receipt.Status == entities.ReceiptStatusValidated {
		return domain.ErrReceiptCommitted
	}

	s.tracker.Cancel(receipt.ID)
	s.sessions.Remove(receipt.ID)

	if receipt.ImageURL != "" {
		if objectKey := s.s3.GetObjectKeyFromLink(receipt.ImageURL); objectKey != "" {
			_ = s.s3.DeleteFile(objectKey)
		}
	}

	return s.receiptRepository.DeleteReceipt(ctx, id)
}

func (s *receiptService) getOwnedReceipt(ctx context.Context, id string, userID string) (*entities.Receipt, error) {
	receipt, err := s.receiptRepository.GetReceiptByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}
	if receipt.UserID.String() != userID {
		return nil, domain.ErrUnauthorizedAccess
	}
	return receipt, nil
}

// sessionFor returns the live engine for the receipt, rebuilding it from the
// stored line items when the process restarted since recognition completed.
func (s *receiptService) sessionFor(receipt *entities.Receipt) (*validation.Engine, error) {
	engine, err := s.sessions.Get(receipt.ID)
	if err == nil {
		return engine, nil
	}
	if receipt.Status != entities.ReceiptStatusCompleted {
		return nil, err
	}
	return s.sessions.Create(receipt.ID, receipt.LineItems, s.threshold), nil
}

func (s *receiptService) resultsFromEngine(receipt *entities.Receipt, engine *validation.Engine) domain.ReceiptResultsResponse {
	counters := engine.Counters()
	return domain.ReceiptResultsResponse{
		ReceiptID:       receipt.ID.String(),
		Status:          receipt.Status,
		MerchantName:    receipt.MerchantName,
		MerchantAddress: receipt.MerchantAddress,
		TotalAmount:     receipt.TotalAmount,
		PurchaseDate:    receipt.PurchaseDate,
		Phase:           engine.Phase(),
		EngineState:     string(engine.State()),
		Phase1Items:     lineItemResponses(engine.Phase1Items()),
		Phase2Items:     lineItemResponses(engine.Phase2Items()),
		ResolvedCount:   counters.Resolved,
		SkippedCount:    counters.Skipped,
	}
}

func (s *receiptService) committedResults(receipt *entities.Receipt) domain.ReceiptResultsResponse {
	phase1, phase2 := validation.Separate(receipt.LineItems, s.threshold)
	resolved, skipped := 0, 0
	for _, item := range receipt.LineItems {
		switch item.ResolutionStatus {
		case entities.ResolutionResolved:
			resolved++
		case entities.ResolutionSkipped:
			skipped++
		}
	}

	return domain.ReceiptResultsResponse{
		ReceiptID:       receipt.ID.String(),
		Status:          receipt.Status,
		MerchantName:    receipt.MerchantName,
		MerchantAddress: receipt.MerchantAddress,
		TotalAmount:     receipt.TotalAmount,
		PurchaseDate:    receipt.PurchaseDate,
		EngineState:     string(validation.StateDone),
		Phase1Items:     lineItemResponses(phase1),
		Phase2Items:     lineItemResponses(phase2),
		ResolvedCount:   resolved,
		SkippedCount:    skipped,
	}
}

func lineItemResponses(items []*entities.DetectedLineItem) []domain.LineItemResponse {
	responses := make([]domain.LineItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, lineItemResponse(item))
	}
	return responses
}

func lineItemResponse(item *entities.DetectedLineItem) domain.LineItemResponse {
	res := domain.LineItemResponse{
		ID:               item.ID.String(),
		DetectedName:     item.DetectedName,
		EditedName:       item.EditedName,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		TotalPrice:       item.TotalPrice,
		Confidence:       item.Confidence,
		ResolutionStatus: item.ResolutionStatus,
		ExpiryDate:       item.ExpiryDate,
		StorageLocation:  item.StorageLocation,
		Candidates:       make([]domain.CandidateMatchResponse, 0, len(item.Candidates)),
	}
	if item.SelectedMatchID != nil {
		res.SelectedMatchID = item.SelectedMatchID.String()
	}
	for _, cand := range item.Candidates {
		res.Candidates = append(res.Candidates, domain.CandidateMatchResponse{
			ID:          cand.ID.String(),
			ProductID:   cand.ProductID.String(),
			DisplayName: cand.DisplayName,
			Confidence:  cand.Confidence,
			ImageURL:    cand.ImageURL,
		})
	}
	return res
}

func allowedImageType(contentType string) bool {
	for _, t := range storage.AllowImage {
		if t == contentType {
			return true
		}
	}
	return false
}
