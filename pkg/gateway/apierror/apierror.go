// Package apierror converts internal errors into the OpenAI-style error
// envelope and HTTP status the surface speaks.
package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

// FromError maps any error to the canonical wire error plus status. The
// error code decides the status where it carries more information than
// the type, file_too_large and voice_conflict for instance.
func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		if status, ok := statusFromCode(coreErr.Code); ok {
			return &out, status
		}
		return &out, statusFromType(coreErr.Type)
	}

	// Unknown errors: internal, details stay in the logs.
	return &core.Error{
		Type:      core.ErrServer,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func statusFromCode(code string) (int, bool) {
	switch code {
	case core.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge, true
	case core.CodeModelNotLoaded:
		return http.StatusServiceUnavailable, true
	case core.CodeVoiceConflict:
		return http.StatusConflict, true
	case core.CodeKeyNotFound:
		return http.StatusNotFound, true
	default:
		return 0, false
	}
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrAuthentication:
		return http.StatusUnauthorized
	case core.ErrRateLimit:
		return http.StatusTooManyRequests
	case core.ErrServer, core.ErrAPI:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Write emits the envelope. The status should come from FromError.
func Write(w http.ResponseWriter, status int, err *core.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Error: err})
}
