package recognition_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"Pantry-Pipeline-Backend/domain"
	"Pantry-Pipeline-Backend/pkg/recognition"

	"github.com/stretchr/testify/require"
)

func TestEnqueueSendsMultipartAndReturnsJobRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "receipt.jpg", header.Filename)

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"job_ref": "job-42"})
	}))
	defer server.Close()

	client := recognition.NewWorkerClient(server.URL)
	jobRef, err := client.Enqueue(context.Background(), []byte("jpeg-bytes"), "receipt.jpg", "image/jpeg")

	require.NoError(t, err)
	require.Equal(t, "job-42", jobRef)
}

func TestEnqueueRejectsEmptyJobRef(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := recognition.NewWorkerClient(server.URL)
	_, err := client.Enqueue(context.Background(), []byte("jpeg-bytes"), "receipt.jpg", "image/jpeg")

	require.ErrorIs(t, err, domain.ErrWorkerFailed)
}

func TestEnqueueWrapsTransportError(t *testing.T) {
	client := recognition.NewWorkerClient("http://127.0.0.1:1")
	_, err := client.Enqueue(context.Background(), []byte("jpeg-bytes"), "receipt.jpg", "image/jpeg")

	require.ErrorIs(t, err, domain.ErrRecognitionNetwork)
}

func TestStatusDecodesWorkerState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jobs/job-42/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(recognition.WorkerStatus{
			State:          recognition.WorkerStateRunning,
			Progress:       0.6,
			TotalItems:     5,
			ProcessedItems: 3,
		})
	}))
	defer server.Close()

	client := recognition.NewWorkerClient(server.URL)
	status, err := client.Status(context.Background(), "job-42")

	require.NoError(t, err)
	require.Equal(t, recognition.WorkerStateRunning, status.State)
	require.Equal(t, 3, status.ProcessedItems)
}

func TestStatusWrapsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := recognition.NewWorkerClient(server.URL)
	_, err := client.Status(context.Background(), "job-42")

	require.ErrorIs(t, err, domain.ErrWorkerFailed)
	require.Contains(t, err.Error(), "boom")
}

func TestResultDecodesFullAnalysis(t *testing.T) {
	total := 23.90
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jobs/job-42/result", r.URL.Path)
		_ = json.NewEncoder(w).Encode(recognition.WorkerResult{
			MerchantName: "Corner Grocer",
			TotalAmount:  &total,
			PurchaseDate: "2025-03-01",
			Items: []recognition.RawItem{{
				Name:       "Whole Milk 1L",
				Quantity:   1,
				Confidence: 0.92,
				Suggestions: []recognition.RawSuggestion{
					{Name: "milk", Confidence: 0.92},
				},
			}},
		})
	}))
	defer server.Close()

	client := recognition.NewWorkerClient(server.URL)
	result, err := client.Result(context.Background(), "job-42")

	require.NoError(t, err)
	require.Equal(t, "Corner Grocer", result.MerchantName)
	require.Len(t, result.Items, 1)
	require.Equal(t, "milk", result.Items[0].Suggestions[0].Name)
}
