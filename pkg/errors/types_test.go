// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "validation with field",
			err:     &mcerrors.ValidationError{Field: "channel", Message: "must be a text channel"},
			wantMsg: "validation failed on channel: must be a text channel",
		},
		{
			name:    "config with cause",
			err:     &mcerrors.ConfigError{Key: "rcon.password", Reason: "required", Cause: cause},
			wantMsg: "config error at rcon.password: required: connection refused",
		},
		{
			name:    "timeout",
			err:     &mcerrors.TimeoutError{Operation: "rcon list", Duration: 5 * time.Second},
			wantMsg: "rcon list operation timed out after 5s",
		},
		{
			name:    "connectivity",
			err:     &mcerrors.ConnectivityError{Target: "127.0.0.1:25575", Cause: cause},
			wantMsg: "cannot reach 127.0.0.1:25575: connection refused",
		},
		{
			name:    "filesystem",
			err:     &mcerrors.FileSystemError{Op: "start", Path: "/srv/mc/start.sh", Reason: "start script not found"},
			wantMsg: "start: /srv/mc/start.sh: start script not found",
		},
		{
			name:    "conflict",
			err:     &mcerrors.ConflictError{Operation: "backup"},
			wantMsg: "backup already in progress",
		},
		{
			name:    "compensation",
			err:     &mcerrors.CompensationError{Step: "save-on", Cause: cause},
			wantMsg: "compensating save-on failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	root := errors.New("root")

	wrapped := []error{
		&mcerrors.ConnectivityError{Target: "x", Cause: root},
		&mcerrors.AuthError{Target: "x", Cause: root},
		&mcerrors.TimeoutError{Operation: "x", Cause: root},
		&mcerrors.FileSystemError{Op: "x", Path: "y", Reason: "z", Cause: root},
		&mcerrors.CompensationError{Step: "save-on", Cause: root},
		&mcerrors.ConfigError{Reason: "x", Cause: root},
	}

	for _, err := range wrapped {
		t.Run(fmt.Sprintf("%T", err), func(t *testing.T) {
			outer := fmt.Errorf("outer: %w", err)
			if !errors.Is(outer, root) {
				t.Errorf("expected %T to unwrap to root cause", err)
			}
		})
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		err       mcerrors.ErrorClassifier
		wantType  string
		retryable bool
	}{
		{&mcerrors.ConnectivityError{}, "connectivity", true},
		{&mcerrors.AuthError{}, "auth", false},
		{&mcerrors.TimeoutError{}, "timeout", true},
		{&mcerrors.FileSystemError{}, "filesystem", false},
		{&mcerrors.ConflictError{}, "conflict", true},
		{&mcerrors.CompensationError{}, "compensation", false},
		{&mcerrors.ConfigError{}, "config", false},
		{&mcerrors.ValidationError{}, "validation", false},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			if got := tt.err.ErrorType(); got != tt.wantType {
				t.Errorf("ErrorType() = %q, want %q", got, tt.wantType)
			}
			if got := tt.err.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestUserVisibleErrors(t *testing.T) {
	var visible mcerrors.UserVisibleError = &mcerrors.ConflictError{Operation: "backup"}
	if !visible.IsUserVisible() {
		t.Fatal("conflict errors should be user visible")
	}
	if !strings.Contains(visible.UserMessage(), "backup") {
		t.Errorf("UserMessage() = %q, want it to mention the operation", visible.UserMessage())
	}
	if visible.Suggestion() == "" {
		t.Error("expected a suggestion")
	}
}
