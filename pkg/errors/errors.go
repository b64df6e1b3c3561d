package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents missing or invalid configuration; fatal before any network call
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeBlocked represents an anti-bot or rate-limit signal
	ErrorTypeBlocked ErrorType = "blocked"
	// ErrorTypeNotFound represents a listing endpoint or page reporting absence
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeParse represents malformed structured data or HTML
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeExhaustedDiscovery represents discovery hitting its hard iteration cap
	ErrorTypeExhaustedDiscovery ErrorType = "exhausted_discovery"
	// ErrorTypeNetwork represents transport-level failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeSync represents sync target write failures
	ErrorTypeSync ErrorType = "sync"
)

// SyncError represents a pipeline-specific error
type SyncError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth retrying through the guard
func (e *SyncError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeBlocked:
		return true
	default:
		return false
	}
}

// New creates a new SyncError
func New(errType ErrorType, component, message string, err error) *SyncError {
	return &SyncError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *SyncError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// NewBlocked creates a new anti-bot block error
func NewBlocked(component, message string, err error) *SyncError {
	return New(ErrorTypeBlocked, component, message, err)
}

// NewNotFound creates a new not-found error
func NewNotFound(component, message string) *SyncError {
	return New(ErrorTypeNotFound, component, message, nil)
}

// NewParse creates a new parse error
func NewParse(component, message string, err error) *SyncError {
	return New(ErrorTypeParse, component, message, err)
}

// NewExhaustedDiscovery creates a new exhausted-discovery error
func NewExhaustedDiscovery(component string, iterations int) *SyncError {
	message := fmt.Sprintf("discovery stopped at hard cap after %d iterations", iterations)
	return New(ErrorTypeExhaustedDiscovery, component, message, nil)
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *SyncError {
	return New(ErrorTypeNetwork, component, message, err)
}

// NewSync creates a new sync target error
func NewSync(component, message string, err error) *SyncError {
	return New(ErrorTypeSync, component, message, err)
}

// AsSyncError extracts a SyncError from err's chain
func AsSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	ok := errors.As(err, &se)
	return se, ok
}

// IsType reports whether err is a SyncError of the given type
func IsType(err error, errType ErrorType) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsBlocked reports whether err carries an anti-bot block signal
func IsBlocked(err error) bool {
	return IsType(err, ErrorTypeBlocked)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}
