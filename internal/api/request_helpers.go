package api

import (
	"net/http"
	"strings"

	"github.com/phrazzld/scry-chat/internal/api/shared"
	"github.com/phrazzld/scry-chat/internal/task"
)

// decodeAndValidate parses the JSON body into req and validates it. It
// writes a 400 response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}

// pollResponse converts a poll result to its wire form and status code.
// Unknown and already consumed jobs are reported as 404.
func pollResponse(res task.PollResult) (int, JobStatusResponse) {
	switch res.State {
	case task.StateProcessing:
		return http.StatusOK, JobStatusResponse{Status: StatusProcessing}
	case task.StateDone:
		payloadType := ResponseTypeMessage
		if res.Class == task.ClassImage {
			payloadType = ResponseTypeImage
		}
		return http.StatusOK, JobStatusResponse{
			Status:   StatusReady,
			Response: &JobPayload{Type: payloadType, Content: res.Result},
		}
	case task.StateFailed:
		return http.StatusOK, JobStatusResponse{
			Status:   StatusReady,
			Response: &JobPayload{Type: ResponseTypeError, Content: res.Error},
		}
	default:
		return http.StatusNotFound, JobStatusResponse{Status: StatusNotFound}
	}
}

// imageURL joins the image route prefix and an image name.
func imageURL(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name
}
