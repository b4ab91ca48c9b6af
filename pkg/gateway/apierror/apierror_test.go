package apierror

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/bragi-audio/bragi/pkg/core"
)

func TestCodeDrivenStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{core.NewInvalidModelError("x"), http.StatusBadRequest},
		{core.NewInvalidVoiceError("x"), http.StatusBadRequest},
		{core.NewInvalidFileFormatError("xyz"), http.StatusBadRequest},
		{core.NewFileTooLargeError("25MB"), http.StatusRequestEntityTooLarge},
		{core.NewModelNotLoadedError("x"), http.StatusServiceUnavailable},
		{core.NewUnsupportedFeatureError("translation", "x"), http.StatusBadRequest},
		{core.NewVoiceConflictError("x"), http.StatusConflict},
		{core.NewVoiceCloningNotSupportedError("x"), http.StatusBadRequest},
		{core.NewKeyNotFoundError("x"), http.StatusNotFound},
		{core.NewAuthenticationError(), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		wireErr, status := FromError(tc.err, "req_1")
		if status != tc.status {
			t.Fatalf("FromError(%v) status=%d, want %d", tc.err, status, tc.status)
		}
		if wireErr.RequestID != "req_1" {
			t.Fatalf("request id not stamped on %v", wireErr)
		}
	}
}

func TestOriginalErrorNotMutated(t *testing.T) {
	orig := core.NewInvalidModelError("x")
	FromError(orig, "req_9")
	if orig.RequestID != "" {
		t.Fatalf("FromError mutated the shared error value")
	}
}

func TestUnknownErrorOpaque(t *testing.T) {
	wireErr, status := FromError(errors.New("pq: connection refused"), "req_2")
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d", status)
	}
	if wireErr.Message != "internal error" || wireErr.Type != core.ErrServer {
		t.Fatalf("internal details leaked: %+v", wireErr)
	}
}

func TestContextErrors(t *testing.T) {
	if _, status := FromError(context.DeadlineExceeded, ""); status != http.StatusGatewayTimeout {
		t.Fatalf("deadline status=%d", status)
	}
	if _, status := FromError(context.Canceled, ""); status != http.StatusRequestTimeout {
		t.Fatalf("cancel status=%d", status)
	}
}

func TestWrappedCoreErrorUnwrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), core.NewVoiceConflictError("n"))
	wireErr, status := FromError(wrapped, "req_3")
	if status != http.StatusConflict || wireErr.Code != core.CodeVoiceConflict {
		t.Fatalf("wrapped error not recognized: %d %+v", status, wireErr)
	}
}

func TestNilError(t *testing.T) {
	wireErr, status := FromError(nil, "req")
	if wireErr != nil || status != http.StatusOK {
		t.Fatalf("nil error gave %v %d", wireErr, status)
	}
}
