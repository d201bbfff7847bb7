package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"

	// Pipeline error kinds. Stable across releases: the chat transport
	// layer keys user-facing messages off these codes.
	ErrCodeEmbeddingFailed  = "EMBEDDING_FAILED"
	ErrCodeRetrievalFailed  = "RETRIEVAL_FAILED"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
	ErrCodeLeakBlocked      = "LEAK_DETECTED_BLOCKED"
	ErrCodeUnknownModel     = "COST_CALCULATION_UNKNOWN_MODEL"
)

// Validation errors
var (
	ErrInvalidPrivacyFlag     = NewDomainError(ErrCodeValidation, "invalid privacy flag")
	ErrInvalidSourceStatus    = NewDomainError(ErrCodeValidation, "invalid source status")
	ErrInvalidViolationAction = NewDomainError(ErrCodeValidation, "invalid violation action")
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrChunkNotFound   = NewDomainError(ErrCodeNotFound, "knowledge chunk not found")
	ErrSourceNotFound  = NewDomainError(ErrCodeNotFound, "knowledge source not found")
	ErrChatbotNotFound = NewDomainError(ErrCodeNotFound, "chatbot not found")
)

// Pipeline errors. Transient provider failures are retried inside the
// owning component before these surface.
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeEmbeddingFailed, "embedding provider unavailable")
	ErrRetrievalFailed  = NewDomainError(ErrCodeRetrievalFailed, "vector index unavailable")
	ErrGenerationFailed = NewDomainError(ErrCodeGenerationFailed, "generation failed after exhausted retries")
	ErrLeakBlocked      = NewDomainError(ErrCodeLeakBlocked, "response blocked: private content leak could not be remediated")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
