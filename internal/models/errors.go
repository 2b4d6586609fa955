package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeAuth       = "UNAUTHORIZED"
	CodeNotFound   = "NOT_FOUND"
	CodeNetwork    = "NETWORK_ERROR"
	CodeServer     = "SERVER_ERROR"
)

// ErrInFlight is returned when an action is triggered while the same control
// is still waiting on its previous request.
var ErrInFlight = errors.New("request already in flight")

// AppError represents a typed client failure. Message is safe to show inline.
type AppError struct {
	Code    string
	Message string
	// Status is the HTTP status that produced the error, zero for local failures.
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewAuthError(message string) *AppError {
	return &AppError{
		Code:    CodeAuth,
		Message: message,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: message,
	}
}

func NewNetworkError(err error) *AppError {
	return &AppError{
		Code:    CodeNetwork,
		Message: "Network error",
		Err:     err,
	}
}

func NewServerError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeServer,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the AppError code found in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsAuthError reports whether err is an authorization failure.
func IsAuthError(err error) bool { return ErrorCode(err) == CodeAuth }

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool { return ErrorCode(err) == CodeNotFound }

// IsNetworkError reports whether the request never got a response.
func IsNetworkError(err error) bool { return ErrorCode(err) == CodeNetwork }

// UserMessage maps err to the inline text a view should display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInFlight) {
		return "Please wait for the previous request to finish"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Code == CodeNetwork {
			return "Network error, check your connection and try again"
		}
		return appErr.Message
	}
	return "Something went wrong"
}
