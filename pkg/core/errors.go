package core

import (
	"fmt"
)

// Error represents an API error in the OpenAI-compatible envelope.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrServer         ErrorType = "server_error"
	ErrAPI            ErrorType = "api_error"
)

// Stable error codes surfaced to clients. Each code carries a fixed HTTP
// status, assigned in the apierror package.
const (
	CodeInvalidModel             = "invalid_model"
	CodeInvalidVoice             = "invalid_voice"
	CodeInvalidFileFormat        = "invalid_file_format"
	CodeFileTooLarge             = "file_too_large"
	CodeModelNotLoaded           = "model_not_loaded"
	CodeUnsupportedFeature       = "unsupported_feature"
	CodeVoiceConflict            = "voice_conflict"
	CodeVoiceCloningNotSupported = "voice_cloning_not_supported"
	CodeKeyNotFound              = "key_not_found"
	CodeAuthentication           = "authentication_error"
)

// NewInvalidModelError reports a model alias that is not configured.
func NewInvalidModelError(model string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("Model %q not found. Check your config.", model),
		Param:   "model",
		Code:    CodeInvalidModel,
	}
}

// NewInvalidVoiceError reports a voice name no adapter claims.
func NewInvalidVoiceError(voice string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("Voice %q not found. Check your config.", voice),
		Param:   "voice",
		Code:    CodeInvalidVoice,
	}
}

// NewInvalidFileFormatError reports an upload that could not be decoded.
func NewInvalidFileFormatError(format string) *Error {
	msg := "Invalid file format."
	if format != "" {
		msg = fmt.Sprintf("Invalid file format: %s.", format)
	}
	msg += " Supported formats: flac, mp3, mp4, mpeg, mpga, m4a, ogg, wav, webm"
	return &Error{
		Type:    ErrInvalidRequest,
		Message: msg,
		Param:   "file",
		Code:    CodeInvalidFileFormat,
	}
}

// NewFileTooLargeError reports an upload over the configured size limit.
func NewFileTooLargeError(maxSize string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("File exceeds maximum size of %s.", maxSize),
		Param:   "file",
		Code:    CodeFileTooLarge,
	}
}

// NewModelNotLoadedError distinguishes "configured but unavailable" from an
// unknown alias.
func NewModelNotLoadedError(model string) *Error {
	return &Error{
		Type:    ErrServer,
		Message: fmt.Sprintf("Model %q is not loaded or still loading.", model),
		Param:   "model",
		Code:    CodeModelNotLoaded,
	}
}

// NewUnsupportedFeatureError reports an operation the resolved adapter
// cannot perform.
func NewUnsupportedFeatureError(feature, model string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("Model %q does not support %s.", model, feature),
		Param:   "model",
		Code:    CodeUnsupportedFeature,
	}
}

// NewVoiceConflictError reports a duplicate custom voice name.
func NewVoiceConflictError(name string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("Voice %q already exists.", name),
		Param:   "name",
		Code:    CodeVoiceConflict,
	}
}

// NewVoiceCloningNotSupportedError reports a clone request against an
// adapter without reference-audio support.
func NewVoiceCloningNotSupportedError(model string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("Model %q does not support voice cloning.", model),
		Param:   "model",
		Code:    CodeVoiceCloningNotSupported,
	}
}

// NewKeyNotFoundError reports an unknown API key id.
func NewKeyNotFoundError(keyID string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: fmt.Sprintf("API key %q not found.", keyID),
		Param:   "key_id",
		Code:    CodeKeyNotFound,
	}
}

// NewAuthenticationError reports a missing or invalid bearer key.
func NewAuthenticationError() *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: "Invalid or missing API key.",
		Code:    CodeAuthentication,
	}
}

// NewInvalidRequestError creates a generic invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewInvalidRequestErrorWithParam creates an invalid request error tied to
// a request parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
		Param:   param,
	}
}

// NewAPIError creates a generic internal error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}
