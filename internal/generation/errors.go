package generation

import "errors"

// Common errors returned by generation adapters
var (
	// ErrExternalService is returned when a call to an inference or image
	// service fails for any reason (network, quota, server error)
	ErrExternalService = errors.New("external service error")

	// ErrInvalidResponse is returned when a service response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from external service")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when an adapter configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrImageNotFound is returned when a stored image does not exist
	ErrImageNotFound = errors.New("image not found")

	// ErrInvalidImageName is returned when an image name would escape the store
	ErrInvalidImageName = errors.New("invalid image name")
)
