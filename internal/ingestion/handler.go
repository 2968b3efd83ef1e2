package ingestion

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	httperr "github.com/sensorwatch-lab/sensorwatch/internal/core/errors"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"

	"github.com/gin-gonic/gin"
	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
)

const (
	msgReadBodyFailed = "Failed to read request body"
	msgInvalidPayload = "Invalid payload body"
	msgPersistFailed  = "Failed to persist reading"
	msgStoreDown      = "Reading store is unavailable"
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *ingestionError) Error() string {
	return e.message
}

// IngestHandler handles POST /v1/readings.
func (s *Service) IngestHandler(c *gin.Context) {
	payload, err := s.parsePayload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	reading, ingestErr := s.gate.Ingest(c.Request.Context(), payload)
	if ingestErr != nil {
		writeError(c, classifyIngestError(ingestErr))
		return
	}

	c.JSON(http.StatusCreated, reading)
}

// parsePayload reads the size-limited body and decodes it with the codec
// selected by Content-Type.
func (s *Service) parsePayload(c *gin.Context) (v1.Payload, *ingestionError) {
	limitedBody := io.LimitReader(c.Request.Body, s.maxBodyBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > s.maxBodyBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", s.maxBodyBytes)
		return nil, &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLargeError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_bytes": s.maxBodyBytes,
			},
		}
	}

	var codec Codec = JSONCodec{}
	if strings.HasPrefix(c.ContentType(), ContentTypeProtobuf) {
		codec = ProtobufCodec{}
	}

	payload, err := codec.Decode(bodyBytes)
	if err != nil {
		s.gate.metrics.ReadingRejected("decode")
		slog.Warn("[Ingestion] Undecodable payload received", "codec", codec.Name(), "error", err, "payload_size", len(bodyBytes))
		return nil, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidPayload,
		}
	}
	return payload, nil
}

// classifyIngestError maps gate errors to HTTP responses.
func classifyIngestError(err error) *ingestionError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    verr.Error(),
			details: map[string]interface{}{
				"field":  verr.Field,
				"reason": verr.Reason,
			},
		}
	case errors.Is(err, ErrValidation):
		return &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpValidationError,
			message:    err.Error(),
		}
	case errors.Is(err, storage.ErrUnavailable):
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpStorageUnavailableError,
			message:    msgStoreDown,
		}
	}

	return &ingestionError{
		statusCode: http.StatusInternalServerError,
		errorType:  httperr.HttpInternalError,
		message:    msgPersistFailed,
	}
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
