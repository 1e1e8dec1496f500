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
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := mcerrors.Wrap(original, "additional context")

		if wrapped == nil {
			t.Fatal("Wrap should not return nil for non-nil error")
		}
		if !strings.Contains(wrapped.Error(), "additional context") {
			t.Errorf("wrapped error should contain context, got: %s", wrapped)
		}
		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		if wrapped := mcerrors.Wrap(nil, "context"); wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
		if wrapped := mcerrors.Wrapf(nil, "context %d", 1); wrapped != nil {
			t.Errorf("Wrapf(nil, _) should return nil, got: %v", wrapped)
		}
	})

	t.Run("formats context", func(t *testing.T) {
		wrapped := mcerrors.Wrapf(errors.New("boom"), "sending %q", "save-off")
		if got, want := wrapped.Error(), `sending "save-off": boom`; got != want {
			t.Errorf("Wrapf() = %q, want %q", got, want)
		}
	})
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"classified", &mcerrors.AuthError{}, "auth"},
		{"wrapped classified", fmt.Errorf("probe: %w", &mcerrors.ConnectivityError{}), "connectivity"},
		{"canceled", context.Canceled, "canceled"},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), "timeout"},
		{"plain", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mcerrors.TypeOf(tt.err); got != tt.want {
				t.Errorf("TypeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsUnreachable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connectivity", &mcerrors.ConnectivityError{}, true},
		{"auth", fmt.Errorf("dial: %w", &mcerrors.AuthError{}), true},
		{"timeout", &mcerrors.TimeoutError{}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"other", errors.New("unexpected response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mcerrors.IsUnreachable(tt.err); got != tt.want {
				t.Errorf("IsUnreachable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	conflict := &mcerrors.ConflictError{Operation: "backup"}
	if got := mcerrors.UserMessage(conflict); !strings.HasPrefix(got, conflict.UserMessage()) {
		t.Errorf("UserMessage() = %q, want prefix %q", got, conflict.UserMessage())
	}

	plain := errors.New("boom")
	if got := mcerrors.UserMessage(plain); got != "boom" {
		t.Errorf("UserMessage() = %q, want %q", got, "boom")
	}
}
