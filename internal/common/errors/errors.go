// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business errors. These are thrown as BPMN errors and never retried.
const (
	ErrCodeInputParsingFailed       ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodeGeofenceOverrideRequired ErrorCode = "GEOFENCE_OVERRIDE_REQUIRED"
	ErrCodeGeolocationUnavailable   ErrorCode = "GEOLOCATION_UNAVAILABLE"
	ErrCodeVisitNotFound            ErrorCode = "VISIT_NOT_FOUND"
	ErrCodeInvalidVisitTransition   ErrorCode = "INVALID_VISIT_TRANSITION"
	ErrCodeVisitAlreadyInProgress   ErrorCode = "VISIT_ALREADY_IN_PROGRESS"
	ErrCodeInvalidOrderTransition   ErrorCode = "INVALID_ORDER_TRANSITION"
	ErrCodeResourceNotFound         ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodePermissionDenied         ErrorCode = "PERMISSION_DENIED"
	ErrCodeSessionExpired           ErrorCode = "SESSION_EXPIRED"
	ErrCodeCalendarTokenExpired     ErrorCode = "CALENDAR_TOKEN_EXPIRED"
	ErrCodeBusinessRule             ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeAuthentication           ErrorCode = "AUTHENTICATION_ERROR"
)

// Technical errors. These fail the job with retries while retries remain.
const (
	ErrCodeDatabaseQueryFailed ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeCacheUnavailable    ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeSearchQueryFailed   ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeExternalService     ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout             ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a value that is forwarded to the process as an error variable.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: GetRetryCount(code) > 0,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

func NewInputParsingError(err error) *StandardError {
	return newError(ErrCodeInputParsingFailed, "Failed to parse job variables", err.Error(), err)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, nil)
}

// NewGeofenceOverrideRequiredError reports a check-in outside the geofence without confirmation.
func NewGeofenceOverrideRequiredError(distanceMeters, radiusMeters float64) *StandardError {
	return newError(
		ErrCodeGeofenceOverrideRequired,
		"Check-in location is outside the client geofence",
		fmt.Sprintf("distance %.0fm exceeds radius %.0fm", distanceMeters, radiusMeters),
		nil,
	).WithMetadata("distanceMeters", distanceMeters).WithMetadata("radiusMeters", radiusMeters)
}

func NewGeolocationUnavailableError(details string) *StandardError {
	return newError(ErrCodeGeolocationUnavailable, "Device position is unavailable", details, nil)
}

func NewVisitNotFoundError(visitID string) *StandardError {
	return newError(ErrCodeVisitNotFound, "Visit not found", fmt.Sprintf("visitId: %s", visitID), nil)
}

func NewInvalidVisitTransitionError(action, from string) *StandardError {
	return newError(
		ErrCodeInvalidVisitTransition,
		"Visit status does not allow this action",
		fmt.Sprintf("action %q is not allowed from status %q", action, from),
		nil,
	).WithMetadata("currentStatus", from)
}

func NewVisitAlreadyInProgressError(repID, clientID string) *StandardError {
	return newError(
		ErrCodeVisitAlreadyInProgress,
		"An in-progress visit already exists for this client",
		fmt.Sprintf("repId: %s, clientId: %s", repID, clientID),
		nil,
	)
}

func NewInvalidOrderTransitionError(from, to string) *StandardError {
	return newError(
		ErrCodeInvalidOrderTransition,
		"Order approval status does not allow this change",
		fmt.Sprintf("%s -> %s", from, to),
		nil,
	)
}

func NewPermissionDeniedError(details string) *StandardError {
	return newError(ErrCodePermissionDenied, "Permission denied", details, nil)
}

func NewSessionExpiredError(details string) *StandardError {
	return newError(ErrCodeSessionExpired, "Session expired, sign in again", details, nil)
}

func NewCalendarTokenExpiredError(details string) *StandardError {
	return newError(ErrCodeCalendarTokenExpired, "Calendar authorization expired, sign in again", details, nil)
}

func NewDatabaseError(operation string, err error) *StandardError {
	return newError(
		ErrCodeDatabaseQueryFailed,
		"Database operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		err,
	)
}

func NewCacheError(operation string, err error) *StandardError {
	return newError(
		ErrCodeCacheUnavailable,
		"Cache operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		err,
	)
}

func NewSearchError(operation string, err error) *StandardError {
	return newError(
		ErrCodeSearchQueryFailed,
		"Search query failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		err,
	)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), err)
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource), details, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeCacheUnavailable,
		ErrCodeSearchQueryFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// Normalize turns any error into a StandardError. Context deadlines become
// timeouts, everything unrecognised becomes INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("worker", err)
	}
	return NewInternalError(err)
}

// Mapping binds a sentinel error to the code it is reported as.
type Mapping struct {
	Sentinel error
	Code     ErrorCode
	Message  string
}

// FromSentinel converts err into a StandardError using the first mapping whose
// sentinel matches with errors.Is. Errors that are already StandardErrors pass
// through untouched; anything unmatched falls back to Normalize.
func FromSentinel(err error, mappings ...Mapping) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	for _, m := range mappings {
		if stderrors.Is(err, m.Sentinel) {
			msg := m.Message
			if msg == "" {
				msg = defaultMessages[m.Code]
			}
			return newError(m.Code, msg, err.Error(), err)
		}
	}
	return Normalize(err)
}

var defaultMessages = map[ErrorCode]string{
	ErrCodeValidationFailed:         "Input validation failed",
	ErrCodeGeofenceOverrideRequired: "Check-in location is outside the client geofence",
	ErrCodeGeolocationUnavailable:   "Device position is unavailable",
	ErrCodeVisitNotFound:            "Visit not found",
	ErrCodeInvalidVisitTransition:   "Visit status does not allow this action",
	ErrCodeVisitAlreadyInProgress:   "An in-progress visit already exists for this client",
	ErrCodeInvalidOrderTransition:   "Order approval status does not allow this change",
	ErrCodeResourceNotFound:         "Resource not found",
	ErrCodePermissionDenied:         "Permission denied",
	ErrCodeSessionExpired:           "Session expired, sign in again",
	ErrCodeCalendarTokenExpired:     "Calendar authorization expired, sign in again",
	ErrCodeDatabaseQueryFailed:      "Database operation failed",
	ErrCodeCacheUnavailable:         "Cache operation failed",
	ErrCodeSearchQueryFailed:        "Search query failed",
	ErrCodeExternalService:          "External service error",
	ErrCodeTimeout:                  "Operation timed out",
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "GEOFENCE") || strings.Contains(codeStr, "GEOLOCATION"):
		return "GEO"
	case strings.Contains(codeStr, "VISIT") || strings.Contains(codeStr, "ORDER"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "TOKEN") ||
		strings.Contains(codeStr, "PERMISSION") || strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
