// Package errors provides a structured error system for perfcore with error codes, categories, and context.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for perfcore operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig    ErrorCode = "MISSING_CONFIG"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"

	// Cache Store Errors
	ErrCodeStoreOpen  ErrorCode = "STORE_OPEN"
	ErrCodeStoreRead  ErrorCode = "STORE_READ"
	ErrCodeStoreWrite ErrorCode = "STORE_WRITE"
	ErrCodeStoreClose ErrorCode = "STORE_CLOSE"

	// Resource Management Errors
	ErrCodeOutOfMemory       ErrorCode = "OUT_OF_MEMORY"
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"

	// State Management Errors
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeDestroyed      ErrorCode = "DESTROYED"

	// Operation Errors
	ErrCodeOperationFailed  ErrorCode = "OPERATION_FAILED"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Internal System Errors
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodePanicRecovered ErrorCode = "PANIC_RECOVERED"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryResource      ErrorCategory = "resource"
	CategoryState         ErrorCategory = "state"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// PerfError represents a structured error with context and metadata.
type PerfError struct {
	Code     ErrorCode              `json:"code"`
	Category ErrorCategory          `json:"category"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`

	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"` // Not serialized to avoid circular refs
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`

	Retryable  bool `json:"retryable"`
	UserFacing bool `json:"user_facing"`
}

// Error implements the error interface.
func (e *PerfError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *PerfError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *PerfError) Is(target error) bool {
	if perfErr, ok := target.(*PerfError); ok {
		return e.Code == perfErr.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *PerfError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}

	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}

	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}

	if len(e.Details) > 0 {
		details, _ := json.Marshal(e.Details)
		parts = append(parts, fmt.Sprintf("Details=%s", details))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("PerfError{%s}", strings.Join(parts, ", "))
}

// NewError creates a new perfcore error with default values.
func NewError(code ErrorCode, message string) *PerfError {
	return &PerfError{
		Code:       code,
		Category:   GetCategory(code),
		Message:    message,
		Timestamp:  time.Now(),
		Details:    make(map[string]interface{}),
		Context:    make(map[string]string),
		Retryable:  IsRetryableByDefault(code),
		UserFacing: IsUserFacingByDefault(code),
	}
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_CONFIG") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "STORE_"):
		return CategoryStore
	case strings.HasPrefix(codeStr, "OUT_OF_") || strings.HasPrefix(codeStr, "RESOURCE_"):
		return CategoryResource
	case strings.HasPrefix(codeStr, "NOT_INITIALIZED") || strings.HasPrefix(codeStr, "INVALID_STATE") ||
		strings.HasPrefix(codeStr, "DESTROYED"):
		return CategoryState
	case strings.HasPrefix(codeStr, "OPERATION_") || strings.HasPrefix(codeStr, "VALIDATION_"):
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
func IsRetryableByDefault(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		ErrCodeStoreRead:         true,
		ErrCodeStoreWrite:        true,
		ErrCodeResourceExhausted: true,
		ErrCodeOperationFailed:   true,
		ErrCodeInternalError:     true,
	}
	return retryableCodes[code]
}

// IsUserFacingByDefault determines if an error should be shown to users.
func IsUserFacingByDefault(code ErrorCode) bool {
	userFacingCodes := map[ErrorCode]bool{
		ErrCodeInvalidConfig:    true,
		ErrCodeMissingConfig:    true,
		ErrCodeConfigValidation: true,
		ErrCodeConfigLoad:       true,
		ErrCodeValidationFailed: true,
	}
	return userFacingCodes[code]
}

// WithContext adds contextual information to an error
func (e *PerfError) WithContext(key, value string) *PerfError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *PerfError) WithDetail(key string, value interface{}) *PerfError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *PerfError) WithComponent(component string) *PerfError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *PerfError) WithOperation(operation string) *PerfError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *PerfError) WithCause(cause error) *PerfError {
	e.Cause = cause
	return e
}

// GetRecommendation returns a user-friendly recommendation for fixing the error
func (e *PerfError) GetRecommendation() string {
	recommendations := map[ErrorCode]string{
		ErrCodeInvalidConfig: "Configuration validation failed. " +
			"Check the cache strategy and optimization level values.",
		ErrCodeConfigValidation: "One or more configuration values are out of range. " +
			"Review capacity, TTL, and threshold settings.",
		ErrCodeConfigLoad: "Could not load the configuration file. " +
			"Verify the file exists and is valid YAML.",
		ErrCodeStoreOpen: "Failed to open the persistent warm store. " +
			"Check the database path and directory permissions.",
		ErrCodeOutOfMemory: "Insufficient memory available. " +
			"Reduce cache capacity or lower the memory thresholds.",
		ErrCodeResourceExhausted: "System resources exhausted. " +
			"Trigger memory optimization or reduce cache pressure.",
		ErrCodeDestroyed: "The optimizer has been destroyed. " +
			"Construct a new instance before calling further operations.",
	}

	if rec, exists := recommendations[e.Code]; exists {
		return rec
	}

	return "Please check the error message for details."
}

// UserFacingMessage returns a simplified message suitable for end users
func (e *PerfError) UserFacingMessage() string {
	if !e.UserFacing {
		return "An internal error occurred. Please contact support if this persists."
	}

	messages := map[ErrorCode]string{
		ErrCodeInvalidConfig:    "Invalid configuration",
		ErrCodeMissingConfig:    "Missing configuration",
		ErrCodeConfigValidation: "Configuration validation failed",
		ErrCodeConfigLoad:       "Failed to load configuration",
		ErrCodeValidationFailed: "Validation failed",
	}

	if msg, exists := messages[e.Code]; exists {
		return msg
	}

	return e.Message
}
