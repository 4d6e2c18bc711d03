package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrNoMessages is returned when Generate is called without any content to send.
	ErrNoMessages = errors.New("no user or assistant messages to send")
)
