// Package errors provides unified error handling with typed recorder error codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a recorder failure.
type Code string

const (
	CodeUnknown           Code = "unknown"
	CodeAlreadyRecording  Code = "already_recording"
	CodeNotRecording      Code = "not_recording"
	CodeTargetEnumeration Code = "target_enumeration_failed"
	CodeEncoderInit       Code = "encoder_init_failed"
	CodeAudioDevice       Code = "audio_device_unavailable"
	CodeAudioStream       Code = "audio_stream_error"
	CodeOutputDir         Code = "output_directory_create_failed"
	CodeUnsupported       Code = "unsupported_platform"
	CodeInvalidArgument   Code = "invalid_argument"
)

// httpCodeMap maps recorder codes to HTTP status codes for the control API.
var httpCodeMap = map[Code]int{
	CodeUnknown:           http.StatusInternalServerError,
	CodeAlreadyRecording:  http.StatusConflict,
	CodeNotRecording:      http.StatusConflict,
	CodeTargetEnumeration: http.StatusInternalServerError,
	CodeEncoderInit:       http.StatusInternalServerError,
	CodeAudioDevice:       http.StatusServiceUnavailable,
	CodeAudioStream:       http.StatusInternalServerError,
	CodeOutputDir:         http.StatusInternalServerError,
	CodeUnsupported:       http.StatusNotImplemented,
	CodeInvalidArgument:   http.StatusBadRequest,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error (or any error in its chain) has a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of an error, or CodeUnknown for plain errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsRetryable returns true if the error is potentially transient.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return true
	}
	switch appErr.Code {
	case CodeAudioStream, CodeUnknown:
		return true
	default:
		return false
	}
}
