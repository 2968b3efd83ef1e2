package errors

const (
	HttpInternalError           = "internal_error"
	HttpInvalidJsonError        = "invalid_json"
	HttpPayloadTooLargeError    = "payload_too_large"
	HttpValidationError         = "validation_failed"
	HttpInvalidQueryError       = "invalid_query"
	HttpStorageUnavailableError = "storage_unavailable"
)

// ErrorResponse is the error response body for all API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
