package api

import "time"

// Job result types as they appear in poll responses
const (
	ResponseTypeMessage = "message"
	ResponseTypeImage   = "image"
	ResponseTypeError   = "error"
)

// Job status values as they appear in poll responses
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusNotFound   = "not_found"
)

// SubmitMessageRequest is the body of POST /api/messages.
type SubmitMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// SubmitImageRequest is the body of POST /api/images. An empty prompt is
// synthesised from the conversation.
type SubmitImageRequest struct {
	Prompt string `json:"prompt"`
}

// SubmissionResponse acknowledges an accepted job.
type SubmissionResponse struct {
	RequestID string `json:"request_id"`
	Kind      string `json:"kind"`
}

// JobPayload is the terminal result of a job.
type JobPayload struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// JobStatusResponse is returned by the poll endpoints. Response is null
// while the job is processing.
type JobStatusResponse struct {
	Status   string      `json:"status"`
	Response *JobPayload `json:"response"`
}

// SelectModelRequest is the body of PUT /api/model.
type SelectModelRequest struct {
	Model string `json:"model" validate:"required"`
}

// SelectModelResponse confirms a model change.
type SelectModelResponse struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
}

// ModelsResponse lists the selectable models.
type ModelsResponse struct {
	Models []string `json:"models"`
	Active string   `json:"active"`
}

// TurnResponse is one turn of the rendered history.
type TurnResponse struct {
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	HTML      string    `json:"html,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Model string         `json:"model"`
	Turns []TurnResponse `json:"turns"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
