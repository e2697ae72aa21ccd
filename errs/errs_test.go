package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrNetworkFailure", err: ErrNetworkFailure, expected: "network failure"},
		{name: "ErrPatternMiss", err: ErrPatternMiss, expected: "pattern miss"},
		{name: "ErrInvalidPlaylist", err: ErrInvalidPlaylist, expected: "invalid playlist"},
		{name: "ErrNotHTML", err: ErrNotHTML, expected: "not an html document"},
		{name: "ErrScriptFailed", err: ErrScriptFailed, expected: "rewrite script failed"},
		{name: "ErrSessionClosed", err: ErrSessionClosed, expected: "session closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected error message '%s', got '%s'", tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorUniqueness(t *testing.T) {
	errorList := []error{
		ErrNetworkFailure,
		ErrPatternMiss,
		ErrInvalidPlaylist,
		ErrNotHTML,
		ErrScriptFailed,
		ErrSessionClosed,
	}

	for i, err1 := range errorList {
		for j, err2 := range errorList {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Error %d and %d should not be equal", i, j)
			}
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	wrapped := fmt.Errorf("fetch playlist: %w", ErrNetworkFailure)
	if !IsRecoverable(wrapped) {
		t.Error("wrapped network failure should be recoverable")
	}
	if !IsRecoverable(fmt.Errorf("channelId: %w", ErrPatternMiss)) {
		t.Error("pattern miss should be recoverable")
	}
	if IsRecoverable(ErrScriptFailed) {
		t.Error("script failure should not be recoverable")
	}
	if IsRecoverable(nil) {
		t.Error("nil is not a recoverable error")
	}
}
