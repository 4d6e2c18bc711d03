package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-chat/internal/api/shared"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/phrazzld/scry-chat/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrUnknownModel),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, generation.ErrImageNotFound),
		errors.Is(err, generation.ErrInvalidImageName),
		errors.Is(err, task.ErrJobNotFound):
		return http.StatusNotFound

	// Capacity errors
	case errors.Is(err, task.ErrRegistryFull):
		return http.StatusTooManyRequests
	case errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return "Message cannot be empty"

	case errors.Is(err, domain.ErrUnknownModel):
		return "Unknown model"

	case errors.Is(err, generation.ErrImageNotFound),
		errors.Is(err, generation.ErrInvalidImageName):
		return "Image not found"

	case errors.Is(err, task.ErrJobNotFound):
		return "Job not found"

	case errors.Is(err, task.ErrRegistryFull):
		return "Too many pending requests, poll existing ones first"

	case errors.Is(err, task.ErrQueueFull):
		return "Server is busy, try again shortly"

	case errors.Is(err, task.ErrQueueClosed):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'SelectModelRequest.Model' Error:Field validation for 'Model' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}
				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err. When the error
// maps to a generic message and defaultMsg is set, defaultMsg is used instead.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
