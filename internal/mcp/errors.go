package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/repository"
)

var (
	// ErrUnknownMethod is returned by Handle for a method no tool serves.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams indicates arguments that don't decode into the
	// tool's parameters.
	ErrInvalidParams = errors.New("invalid params")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, firstcall.ErrCaseNotFound):
		return &APIError{Code: "CASE_NOT_FOUND", Message: "case not found", RecoveryHint: "Call list_open_cases for current ids"}
	case errors.Is(err, caserecord.ErrRecordNotFound):
		return &APIError{Code: "CASE_RECORD_NOT_FOUND", Message: "case record not found", RecoveryHint: "Records appear shortly after a case completes"}
	case errors.Is(err, firstcall.ErrConflict):
		return &APIError{Code: "CONFLICT", Message: "case modified by another operator", RecoveryHint: "Re-read the case and retry"}
	case errors.Is(err, caserecord.ErrCorruptCaseNumber),
		errors.Is(err, caserecord.ErrCaseNumberExhausted),
		errors.Is(err, caserecord.ErrDuplicateCaseNumber):
		return &APIError{Code: "CASE_NUMBER_ERROR", Message: err.Error(), RecoveryHint: "Check the case record registry"}
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error()}
	case errors.Is(err, firstcall.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput),
		errors.Is(err, repository.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	default:
		return nil
	}
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
