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

package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := store.MarkStarting(); err != nil {
//	    return errors.Wrap(err, "marking server as starting")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// TypeOf returns the ErrorType of the first classified error in err's tree.
// Context cancellation maps to "canceled"; anything else to "unknown".
// The result is used as a metrics label, so the set of values is small.
func TypeOf(err error) string {
	if err == nil {
		return ""
	}
	var classified ErrorClassifier
	if errors.As(err, &classified) {
		return classified.ErrorType()
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}

// IsUnreachable reports whether err means the remote console could not be
// used at all: unreachable, rejected credentials, or timed out.
func IsUnreachable(err error) bool {
	var (
		connErr    *ConnectivityError
		authErr    *AuthError
		timeoutErr *TimeoutError
	)
	return errors.As(err, &connErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &timeoutErr) ||
		errors.Is(err, context.DeadlineExceeded)
}

// UserMessage returns the message to show a user for err. UserVisibleError
// messages are used verbatim; other errors fall back to err.Error().
func UserMessage(err error) string {
	var visible UserVisibleError
	if errors.As(err, &visible) && visible.IsUserVisible() {
		if s := visible.Suggestion(); s != "" {
			return visible.UserMessage() + " " + s
		}
		return visible.UserMessage()
	}
	return err.Error()
}
