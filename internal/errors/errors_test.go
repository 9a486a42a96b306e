package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(CodeAlreadyRecording, "a recording is already in progress")
	s := err.Error()
	if !strings.Contains(s, "already_recording") {
		t.Errorf("Error() = %q, want code in message", s)
	}
	if !strings.Contains(s, "a recording is already in progress") {
		t.Errorf("Error() = %q, want message text", s)
	}
}

func TestErrorStringWithCause(t *testing.T) {
	cause := stderrors.New("device busy")
	err := Wrap(cause, CodeAudioDevice, "failed to open loopback device")
	if !strings.Contains(err.Error(), "caused by: device busy") {
		t.Errorf("Error() = %q, want cause appended", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("enum failed")
	err := Wrap(cause, CodeTargetEnumeration, "window enumeration")
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should see through AppError to the cause")
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeNotRecording, "no active recording")

	if !IsCode(err, CodeNotRecording) {
		t.Error("IsCode should match the error's own code")
	}
	if IsCode(err, CodeAlreadyRecording) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(stderrors.New("plain"), CodeNotRecording) {
		t.Error("IsCode should be false for plain errors")
	}
}

func TestIsCodeWrapped(t *testing.T) {
	inner := New(CodeEncoderInit, "spawn failed")
	outer := fmt.Errorf("starting session: %w", inner)

	if !IsCode(outer, CodeEncoderInit) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeAlreadyRecording, http.StatusConflict},
		{CodeNotRecording, http.StatusConflict},
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeAudioDevice, http.StatusServiceUnavailable},
		{CodeUnsupported, http.StatusNotImplemented},
		{CodeEncoderInit, http.StatusInternalServerError},
		{Code("bogus"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got := New(tt.code, "x").HTTPStatus()
		if got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeEncoderInit, "encoder").WithMetadata("codec", "h264_nvenc")
	if err.Metadata["codec"] != "h264_nvenc" {
		t.Errorf("metadata not set: %v", err.Metadata)
	}
	if !strings.Contains(err.Error(), "h264_nvenc") {
		t.Error("metadata should appear in Error()")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(stderrors.New("plain transient")) {
		t.Error("plain errors should be retryable")
	}
	if !IsRetryable(New(CodeAudioStream, "send failed")) {
		t.Error("audio stream errors should be retryable")
	}
	if IsRetryable(New(CodeAlreadyRecording, "busy")) {
		t.Error("caller errors should not be retryable")
	}
	if IsRetryable(New(CodeEncoderInit, "fatal")) {
		t.Error("encoder init failures should not be retryable")
	}
}
