package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeAPIError   = "API_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeCache      = "CACHE_ERROR"
	CodeStore      = "STORE_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeEngine     = "ENGINE_ERROR"
)

var (
	// ErrCatalogUnavailable marks a meme catalog that failed to provision and will not retry.
	ErrCatalogUnavailable = stderrors.New("meme catalog unavailable")
	// ErrTemplateNotFound is returned when no template matches a key or keyword.
	ErrTemplateNotFound = stderrors.New("meme template not found")
	// ErrGenerationFailed is returned when a template failed to render.
	ErrGenerationFailed = stderrors.New("meme generation failed")
	// ErrVisionUnavailable is returned when no vision model is configured.
	ErrVisionUnavailable = stderrors.New("vision model unavailable")
)

type BotError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *BotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BotError) Unwrap() error {
	return e.Cause
}

func (e *BotError) WithCause(cause error) *BotError {
	e.Cause = cause
	return e
}

type APIError struct {
	*BotError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type ValidationError struct {
	*BotError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*BotError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

// StoreError wraps failures of the persistent avatar description store.
type StoreError struct {
	*BotError
	Operation string
	PersonID  string
}

func NewStoreError(message, operation, personID string, cause error) *StoreError {
	return &StoreError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeStore,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"person_id": personID,
			},
			Cause: cause,
		},
		Operation: operation,
		PersonID:  personID,
	}
}

type ServiceError struct {
	*BotError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// EngineError reports a failure talking to the meme template engine.
type EngineError struct {
	*APIError
	Template string
}

func NewEngineError(message, template string, statusCode int, cause error) *EngineError {
	return &EngineError{
		APIError: &APIError{
			BotError: &BotError{
				Message:    message,
				Code:       CodeEngine,
				StatusCode: statusCode,
				Context: map[string]any{
					"template": template,
				},
				Cause: cause,
			},
		},
		Template: template,
	}
}
