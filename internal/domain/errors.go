package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	CodeAttemptNotFound     ErrorCode = "ATTEMPT_NOT_FOUND"
	CodeGenerationError     ErrorCode = "GENERATION_ERROR"
	CodeSelectionExhausted  ErrorCode = "SELECTION_EXHAUSTED"
	CodeInvalidCriteria     ErrorCode = "INVALID_CRITERIA"
)

// Sentinel errors used as control-flow signals inside the selection pipeline.
// They are recovered locally and never surfaced to callers as-is.
var (
	// ErrSlotTaken signals a unique violation on (attempt_id, question_order):
	// a concurrent request already committed this slot.
	ErrSlotTaken = errors.New("assignment slot already taken")

	// ErrAlreadyAssigned signals a unique violation on (attempt_id, question_id):
	// the candidate question is already part of this attempt.
	ErrAlreadyAssigned = errors.New("question already assigned to attempt")

	// ErrContentConflict signals a unique violation on questions.content_key.
	ErrContentConflict = errors.New("question content key already exists")

	// ErrNoViableContext signals an empty retrieval result during generation.
	ErrNoViableContext = errors.New("no retrieval context for generation")

	// ErrCacheMiss is returned by cache adapters when a key is absent.
	ErrCacheMiss = errors.New("cache miss")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewAttemptNotFoundError(attemptID string) *DomainError {
	return NewError(CodeAttemptNotFound, fmt.Sprintf("Attempt not found: %s", attemptID), nil)
}

func NewGenerationError(err error) *DomainError {
	return NewError(CodeGenerationError, "Failed to generate question", err)
}

func NewSelectionExhaustedError(attemptID string, err error) *DomainError {
	return NewError(CodeSelectionExhausted,
		fmt.Sprintf("Unable to assign a question for attempt %s", attemptID), err)
}

func NewInvalidCriteriaError(message string) *DomainError {
	return NewError(CodeInvalidCriteria, message, nil)
}
