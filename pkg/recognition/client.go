package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"Pantry-Pipeline-Backend/domain"
)

// Worker job states as reported by the recognition service.
const (
	WorkerStateQueued  = "queued"
	WorkerStateRunning = "running"
	WorkerStateDone    = "done"
	WorkerStateFailed  = "failed"
)

type Classification int

const (
	ClassContinue Classification = iota
	ClassCompleted
	ClassFailed
)

type (
	WorkerStatus struct {
		State          string  `json:"state"`
		Progress       float64 `json:"progress"`
		TotalItems     int     `json:"total_items"`
		ProcessedItems int     `json:"processed_items"`
		EtaSeconds     *int    `json:"eta_seconds,omitempty"`
		Error          string  `json:"error,omitempty"`
	}

	RawSuggestion struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	}

	RawItem struct {
		Name        string          `json:"name"`
		Quantity    int             `json:"quantity"`
		UnitPrice   *float64        `json:"unit_price,omitempty"`
		TotalPrice  *float64        `json:"total_price,omitempty"`
		Confidence  float64         `json:"confidence"`
		Suggestions []RawSuggestion `json:"suggestions"`
	}

	WorkerResult struct {
		MerchantName    string   `json:"merchant_name"`
		MerchantAddress string   `json:"merchant_address"`
		TotalAmount     *float64 `json:"total_amount,omitempty"`
		PurchaseDate    string   `json:"purchase_date,omitempty"` // YYYY-MM-DD
		Items           []RawItem `json:"items"`
	}

	// WorkerClient is the contract the external OCR/extraction service must
	// satisfy. The recognition algorithm itself lives behind it.
	WorkerClient interface {
		Enqueue(ctx context.Context, image []byte, filename, contentType string) (string, error)
		Status(ctx context.Context, jobRef string) (WorkerStatus, error)
		Result(ctx context.Context, jobRef string) (WorkerResult, error)
	}

	httpWorkerClient struct {
		baseURL string
		client  *http.Client
	}
)

func NewWorkerClient(baseURL string) WorkerClient {
	return &httpWorkerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify converts a raw worker status into the poll protocol's three-way
// decision.
func Classify(status WorkerStatus) Classification {
	switch status.State {
	case WorkerStateQueued, WorkerStateRunning:
		return ClassContinue
	case WorkerStateDone:
		return ClassCompleted
	default:
		return ClassFailed
	}
}

// WorkerFailure carries the worker's error message verbatim so it can be
// surfaced to the user unchanged.
type WorkerFailure struct {
	Message string
}

func (f *WorkerFailure) Error() string {
	return f.Message
}

func (f *WorkerFailure) Unwrap() error {
	return domain.ErrWorkerFailed
}

func (c *httpWorkerClient) Enqueue(ctx context.Context, image []byte, filename, contentType string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err = part.Write(image); err != nil {
		return "", err
	}
	if err = writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRecognitionNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: enqueue returned %s - %s", domain.ErrWorkerFailed, resp.Status, string(bodyBytes))
	}

	var enqueueResp struct {
		JobRef string `json:"job_ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&enqueueResp); err != nil {
		return "", fmt.Errorf("%w: decoding enqueue response: %v", domain.ErrWorkerFailed, err)
	}
	if enqueueResp.JobRef == "" {
		return "", fmt.Errorf("%w: enqueue response carried no job ref", domain.ErrWorkerFailed)
	}

	return enqueueResp.JobRef, nil
}

func (c *httpWorkerClient) Status(ctx context.Context, jobRef string) (WorkerStatus, error) {
	var status WorkerStatus
	if err := c.getJSON(ctx, fmt.Sprintf("%s/jobs/%s/status", c.baseURL, jobRef), &status); err != nil {
		return WorkerStatus{}, err
	}
	return status, nil
}

func (c *httpWorkerClient) Result(ctx context.Context, jobRef string) (WorkerResult, error) {
	var result WorkerResult
	if err := c.getJSON(ctx, fmt.Sprintf("%s/jobs/%s/result", c.baseURL, jobRef), &result); err != nil {
		return WorkerResult{}, err
	}
	return result, nil
}

func (c *httpWorkerClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecognitionNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", domain.ErrWorkerFailed, resp.Status, string(bodyBytes))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
