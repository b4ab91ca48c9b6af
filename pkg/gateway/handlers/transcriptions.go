package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bragi-audio/bragi/pkg/core"
	"github.com/bragi-audio/bragi/pkg/core/adapters"
	"github.com/bragi-audio/bragi/pkg/core/audio"
	"github.com/bragi-audio/bragi/pkg/core/transcript"
)

var transcriptFormats = []string{"json", "text", "srt", "verbose_json", "vtt"}

// sttUpload is a parsed transcription or translation form. The audio stays
// undecoded until the model has been validated, so an unknown alias wins
// over a bad or oversized file.
type sttUpload struct {
	data           []byte
	filename       string
	model          string
	language       string
	responseFormat string
	temperature    float64
	wordTimestamps bool
}

// multipartMemory caps how much of the form the stdlib keeps in memory
// before spilling to disk.
const multipartMemory = 32 << 20

func (h *Handlers) parseSTTForm(r *http.Request) (*sttUpload, error) {
	if h.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, h.MaxFileSize+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.NewFileTooLargeError(h.MaxFileSizeLabel)
		}
		return nil, core.NewInvalidRequestError("request body must be multipart/form-data")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.NewInvalidRequestErrorWithParam("file is required", "file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	up := &sttUpload{
		data:           data,
		filename:       header.Filename,
		model:          r.FormValue("model"),
		language:       r.FormValue("language"),
		responseFormat: r.FormValue("response_format"),
	}
	if up.model == "" {
		return nil, core.NewInvalidRequestErrorWithParam("model is required", "model")
	}
	if up.responseFormat == "" {
		up.responseFormat = "json"
	}
	if !slices.Contains(transcriptFormats, up.responseFormat) {
		return nil, core.NewInvalidRequestErrorWithParam(
			fmt.Sprintf("response_format %q is not supported (supported: %s)",
				up.responseFormat, strings.Join(transcriptFormats, ", ")), "response_format")
	}
	if raw := r.FormValue("temperature"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 1 {
			return nil, core.NewInvalidRequestErrorWithParam("temperature must be a number between 0 and 1", "temperature")
		}
		up.temperature = t
	}
	for _, g := range r.Form["timestamp_granularities[]"] {
		if g == "word" {
			up.wordTimestamps = true
		}
	}
	return up, nil
}

// decodeUpload enforces the size cap and converts the clip to canonical
// PCM. Runs after model validation.
func (h *Handlers) decodeUpload(ctx context.Context, up *sttUpload) ([]float32, error) {
	if h.MaxFileSize > 0 && int64(len(up.data)) > h.MaxFileSize {
		return nil, core.NewFileTooLargeError(h.MaxFileSizeLabel)
	}
	pcm, err := audio.Decode(ctx, up.data, up.filename)
	if err != nil {
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(up.filename)), ".")
			return nil, core.NewInvalidFileFormatError(ext)
		}
		return nil, core.NewInvalidFileFormatError("")
	}
	return pcm, nil
}

var errUploadTooLarge = errors.New("upload too large")

func readUpload(file multipart.File, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func (h *Handlers) Transcriptions(w http.ResponseWriter, r *http.Request) {
	up, err := h.parseSTTForm(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	adapter, err := h.Registry.GetSTT(up.model)
	if err != nil {
		if h.Registry.HasModel(up.model) {
			err = core.NewModelNotLoadedError(up.model)
		}
		h.writeError(w, r, err)
		return
	}

	pcm, err := h.decodeUpload(r.Context(), up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := adapter.Transcribe(r.Context(), pcm, adapters.TranscribeOptions{
		Language:       up.language,
		Temperature:    up.temperature,
		WordTimestamps: up.wordTimestamps,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeTranscript(w, up, result, "transcribe")
}

type verboseTranscript struct {
	Task     string             `json:"task"`
	Language string             `json:"language"`
	Duration float64            `json:"duration"`
	Text     string             `json:"text"`
	Segments []adapters.Segment `json:"segments"`
	Words    []adapters.Word    `json:"words"`
}

func (h *Handlers) writeTranscript(w http.ResponseWriter, up *sttUpload, result *adapters.TranscriptResult, task string) {
	switch up.responseFormat {
	case "text":
		writeText(w, result.Text)
	case "srt":
		writeText(w, transcript.FormatSRT(result.Segments))
	case "vtt":
		writeText(w, transcript.FormatVTT(result.Segments))
	case "verbose_json":
		out := verboseTranscript{
			Task:     task,
			Language: result.Language,
			Duration: result.Duration,
			Text:     result.Text,
			Segments: result.Segments,
			Words:    []adapters.Word{},
		}
		if out.Segments == nil {
			out.Segments = []adapters.Segment{}
		}
		if task == "transcribe" && result.Words != nil {
			out.Words = result.Words
		}
		writeJSON(w, http.StatusOK, out)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"text": result.Text})
	}
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
