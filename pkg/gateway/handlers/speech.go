package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/audio"
	"github.com/bragi-audio/bragi/pkg/core/voice"
)

const maxSpeechInputChars = 4096

type speechRequest struct {
	Model          string   `json:"model"`
	Input          string   `json:"input"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format"`
	Speed          *float64 `json:"speed"`
	Stream         bool     `json:"stream"`
}

func (h *Handlers) Speech(w http.ResponseWriter, r *http.Request) {
	var body speechRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, core.NewInvalidRequestError("request body must be valid JSON"))
		return
	}

	if body.Input == "" {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("input is required", "input"))
		return
	}
	if len(body.Input) > maxSpeechInputChars {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("input exceeds maximum length of %d characters", maxSpeechInputChars), "input"))
		return
	}
	if body.Voice == "" {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("voice is required", "voice"))
		return
	}

	format := body.ResponseFormat
	if format == "" {
		format = "mp3"
	}
	if _, ok := audio.ContentTypes[format]; !ok {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("response_format %q is not supported", format), "response_format"))
		return
	}

	speed := 1.0
	if body.Speed != nil {
		speed = *body.Speed
	}
	if speed < 0.25 || speed > 4.0 {
		h.writeError(w, r, core.NewInvalidRequestErrorWithParam("speed must be between 0.25 and 4.0", "speed"))
		return
	}

	req := voice.Request{
		Input:  body.Input,
		Model:  body.Model,
		Voice:  body.Voice,
		Speed:  speed,
		Format: format,
	}

	if body.Stream {
		if done := h.streamSpeech(w, r, req); done {
			return
		}
		// Fall through to the buffered path when the resolved adapter
		// cannot stream this request.
	}

	data, contentType, err := h.Synth.Synthesize(r.Context(), req)
	if err != nil {
		h.writeError(w, r, speechError(err))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// streamSpeech reports true when it has fully handled the request. False
// means the caller should fall back to buffered synthesis.
func (h *Handlers) streamSpeech(w http.ResponseWriter, r *http.Request, req voice.Request) bool {
	stream, contentType, err := h.Synth.Stream(r.Context(), req)
	if err != nil {
		if errors.Is(err, voice.ErrStreamingUnavailable) {
			return false
		}
		h.writeError(w, r, speechError(err))
		return true
	}
	defer stream.Close()

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)

	wrote := false
	for chunk := range stream.Chunks() {
		if _, err := w.Write(chunk); err != nil {
			return true
		}
		wrote = true
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := stream.Err(); err != nil && h.Logger != nil {
		// Headers are already on the wire; the truncated body is the only
		// signal the client gets.
		reqID, _ := requestID(r)
		h.Logger.Error("synthesis stream failed", "error", err, "request_id", reqID, "wrote_chunks", wrote)
	}
	return true
}

// speechError narrows codec failures to parameter errors so clients see a
// 400 on a bad response_format instead of an opaque 500.
func speechError(err error) error {
	if errors.Is(err, audio.ErrUnsupportedFormat) || errors.Is(err, audio.ErrFormatNotImplemented) {
		return core.NewInvalidRequestErrorWithParam(err.Error(), "response_format")
	}
	return err
}
