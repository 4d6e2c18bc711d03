package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyMessage is returned when a submission carries no text.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrInvalidRole is returned when a turn carries an unknown role.
	ErrInvalidRole = errors.New("invalid turn role")

	// ErrInvalidKind is returned when a turn carries an unknown content kind.
	ErrInvalidKind = errors.New("invalid turn kind")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrUnknownModel is returned when a model identifier is not in the catalog
	// and strict model selection is enabled.
	ErrUnknownModel = errors.New("unknown model")
)
