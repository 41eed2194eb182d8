package dto

import "net/http"

// Transport error codes raised by the HTTP layer itself
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeIdempotencyReplay = "IDEMPOTENCY_REPLAY"
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeTimeout           = "REQUEST_TIMEOUT"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Domain codes
// are passed through to clients unchanged.
var ErrorCodeHTTPStatus = map[string]int{
	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	"INVALID_INPUT":          http.StatusBadRequest,
	"INVALID_TYPE":           http.StatusBadRequest,
	"INVALID_AMOUNT":         http.StatusBadRequest,
	"INVALID_ALLOCATION":     http.StatusBadRequest,
	"INVALID_MEMBER":         http.StatusBadRequest,
	"INVALID_NAME":           http.StatusBadRequest,
	"INVALID_COLLECTOR":      http.StatusBadRequest,
	"INVALID_COLLECTOR_TYPE": http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD": http.StatusBadRequest,
	"INVALID_RATE":           http.StatusBadRequest,
	"INVALID_REFUND_TYPE":    http.StatusBadRequest,
	"INVALID_COMMISSION":     http.StatusBadRequest,

	// Ledger rule violations -> 400 Bad Request
	"DEBIT_NOT_FOUND":  http.StatusBadRequest,
	"MEMBER_MISMATCH":  http.StatusBadRequest,
	"NOT_ALLOCATABLE":  http.StatusBadRequest,
	"INVALID_STATE":    http.StatusBadRequest,
	"INVALID_PLAN":     http.StatusBadRequest,
	"REFUND_MISMATCH":  http.StatusBadRequest,
	"NO_PRIOR_PAYMENT": http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeIdempotencyReplay: http.StatusConflict,
	"ALREADY_EXISTS":         http.StatusConflict,
	"CONCURRENCY_CONFLICT":   http.StatusConflict,
	"HAS_PAYMENTS":           http.StatusConflict,
	"PAYMENT_CREDIT":         http.StatusConflict,
	"ALREADY_SETTLED":        http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
