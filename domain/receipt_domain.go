package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessUploadReceipt  = "receipt uploaded successfully"
	MessageSuccessGetStatus      = "receipt status retrieved successfully"
	MessageSuccessGetResults     = "receipt results retrieved successfully"
	MessageSuccessUpdateItem     = "line item updated successfully"
	MessageSuccessAdvancePhase   = "advanced to next validation phase"
	MessageSuccessCommitReceipt  = "receipt committed to inventory"
	MessageSuccessDeleteReceipt  = "receipt deleted successfully"

	MessageFailedUploadReceipt = "failed to upload receipt"
	MessageFailedGetStatus     = "failed to retrieve receipt status"
	MessageFailedGetResults    = "failed to retrieve receipt results"
	MessageFailedUpdateItem    = "failed to update line item"
	MessageFailedAdvancePhase  = "failed to advance validation phase"
	MessageFailedCommitReceipt = "failed to commit receipt"
	MessageFailedDeleteReceipt = "failed to delete receipt"

	ErrImageTooLarge        = errors.New("receipt image exceeds the configured size limit")
	ErrUnsupportedImageType = errors.New("receipt image type is not allowed")
	ErrReceiptNotFound      = errors.New("receipt not found")
	ErrLineItemNotFound     = errors.New("line item not found")
	ErrCandidateNotFound    = errors.New("candidate match not found")
	ErrReceiptCommitted     = errors.New("receipt already committed to inventory")
	ErrReceiptNotReady      = errors.New("receipt recognition has not completed")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidExpiryDate    = errors.New("invalid expiry date")

	ErrRecognitionNetwork = errors.New("recognition service unreachable")
	ErrWorkerFailed       = errors.New("recognition worker failed")
	ErrPollTimeout        = errors.New("recognition polling exceeded the attempt ceiling")
)

type (
	UploadReceiptRequest struct {
		ReceiptImage *multipart.FileHeader `json:"receipt_image" form:"receipt_image" validate:"required"`
	}

	UploadReceiptResponse struct {
		ReceiptID string `json:"receipt_id"`
		ImageURL  string `json:"image_url"`
		Status    string `json:"status"`
	}

	ReceiptStatusResponse struct {
		ReceiptID            string  `json:"receipt_id"`
		Status               string  `json:"status"`
		ValidationProgress   float64 `json:"validation_progress"`
		TotalItems           int     `json:"total_items"`
		ResolvedItems        int     `json:"validated_items"`
		EstimatedTimeRemain  *int    `json:"estimated_time_remaining,omitempty"`
		ErrorMessage         string  `json:"error_message,omitempty"`
	}

	CandidateMatchResponse struct {
		ID          string  `json:"id"`
		ProductID   string  `json:"product_id"`
		DisplayName string  `json:"display_name"`
		Confidence  float64 `json:"confidence"`
		ImageURL    string  `json:"image_url,omitempty"`
	}

	LineItemResponse struct {
		ID               string                   `json:"id"`
		DetectedName     string                   `json:"detected_name"`
		EditedName       string                   `json:"edited_name,omitempty"`
		Quantity         int                      `json:"quantity"`
		UnitPrice        *float64                 `json:"unit_price,omitempty"`
		TotalPrice       *float64                 `json:"total_price,omitempty"`
		Confidence       float64                  `json:"confidence"`
		ResolutionStatus string                   `json:"resolution_status"`
		SelectedMatchID  string                   `json:"selected_match_id,omitempty"`
		ExpiryDate       *time.Time               `json:"expiry_date,omitempty"`
		StorageLocation  string                   `json:"storage_location,omitempty"`
		Candidates       []CandidateMatchResponse `json:"candidates"`
	}

	ReceiptResultsResponse struct {
		ReceiptID       string             `json:"receipt_id"`
		Status          string             `json:"status"`
		MerchantName    string             `json:"merchant_name,omitempty"`
		MerchantAddress string             `json:"merchant_address,omitempty"`
		TotalAmount     *float64           `json:"total_amount,omitempty"`
		PurchaseDate    *time.Time         `json:"purchase_date,omitempty"`
		Phase           int                `json:"phase"`
		EngineState     string             `json:"engine_state"`
		Phase1Items     []LineItemResponse `json:"phase1_items"`
		Phase2Items     []LineItemResponse `json:"phase2_items"`
		ResolvedCount   int                `json:"resolved_count"`
		SkippedCount    int                `json:"skipped_count"`
	}

	// UpdateLineItemRequest is a partial patch. Exactly one of the three
	// intents applies per call: select a candidate, skip the item, or edit
	// its fields in place.
	UpdateLineItemRequest struct {
		SelectedMatchID string     `json:"selected_match_id,omitempty" validate:"omitempty,uuid"`
		Skip            bool       `json:"skip,omitempty"`
		Name            string     `json:"name,omitempty"`
		Quantity        int        `json:"quantity,omitempty" validate:"omitempty,min=1"`
		UnitPrice       *float64   `json:"unit_price,omitempty"`
		ExpiryDate      string     `json:"expiry_date,omitempty"`
		StorageLocation string     `json:"storage_location,omitempty"`
	}

	CommitReceiptRequest struct {
		PurchaseDate       string `json:"purchase_date,omitempty"`
		AutoCreateProducts bool   `json:"auto_create_products,omitempty"`
		ForcedAdd          bool   `json:"forced_add,omitempty"`
	}

	CommitReceiptResponse struct {
		ReceiptID      string `json:"receipt_id"`
		CommittedItems int    `json:"committed_items"`
		Status         string `json:"status"`
	}
)
