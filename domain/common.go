package domain

import (
	"errors"
	"os"
)

var (
	MessageFailedBodyRequest    = "failed to process request body"
	MessageFailedProcessRequest = "failed to process request"
	MessageFailedGetToken       = "failed to get token"
	MessageFailedTokenInvalid   = "failed to token invalid"

	JwtSecret = os.Getenv("JWT_SECRET")

	ErrParseUUID          = errors.New("failed to parse UUID")
	ErrUnauthorizedAccess = errors.New("unauthorized access to resource")
	ErrTokenNotFound      = errors.New("failed to token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Wire-level error kinds. Every failure response carries one of these next
// to the human-readable message.
const (
	KindValidationError = "VALIDATION_ERROR"
	KindNetworkError    = "NETWORK_ERROR"
	KindWorkerFailed    = "WORKER_FAILED"
	KindTimeout         = "TIMEOUT"
	KindPhaseIncomplete = "PHASE_INCOMPLETE"
	KindNothingToCommit = "NOTHING_TO_COMMIT"
	KindCommitError     = "COMMIT_ERROR"
	KindNotFound        = "NOT_FOUND"
	KindForbidden       = "FORBIDDEN"
	KindConflict        = "CONFLICT"
	KindInternal        = "INTERNAL"
)

// KindOf maps a sentinel error to its wire kind. Unknown errors are INTERNAL.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrImageTooLarge),
		errors.Is(err, ErrUnsupportedImageType),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidExpiryDate),
		errors.Is(err, ErrParseUUID):
		return KindValidationError
	case errors.Is(err, ErrRecognitionNetwork):
		return KindNetworkError
	case errors.Is(err, ErrWorkerFailed):
		return KindWorkerFailed
	case errors.Is(err, ErrPollTimeout):
		return KindTimeout
	case errors.Is(err, ErrPhaseIncomplete):
		return KindPhaseIncomplete
	case errors.Is(err, ErrNothingToCommit):
		return KindNothingToCommit
	case errors.Is(err, ErrCommitFailed):
		return KindCommitError
	case errors.Is(err, ErrReceiptNotFound),
		errors.Is(err, ErrLineItemNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrCandidateNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorizedAccess):
		return KindForbidden
	case errors.Is(err, ErrCommitInFlight),
		errors.Is(err, ErrDuplicateReceipt),
		errors.Is(err, ErrReceiptCommitted),
		errors.Is(err, ErrReceiptNotReady):
		return KindConflict
	default:
		return KindInternal
	}
}

// StatusOf maps a sentinel error to an HTTP status code.
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidationError, KindPhaseIncomplete, KindNothingToCommit:
		return 400
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindTimeout:
		return 504
	case KindNetworkError, KindWorkerFailed, KindCommitError:
		return 502
	default:
		return 500
	}
}
