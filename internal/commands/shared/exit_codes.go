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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// Exit codes for minecontrol commands
const (
	ExitSuccess       = 0
	ExitFailed        = 1
	ExitInvalidConfig = 2
	ExitDenied        = 3
	ExitConflict      = 4
	ExitLocked        = 5 // another minecontrol process owns the state directory
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for failed commands
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewConfigError creates an error for unusable configuration
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidConfig,
		Message: msg,
		Cause:   cause,
	}
}

// NewLockedError creates an error for a state directory held by another process
func NewLockedError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitLocked,
		Message: msg,
		Cause:   cause,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the appropriate code.
// With --json, errors are written to stdout as a JSON error response.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	if GetJSON() && err.Error() != "" {
		_ = EmitJSONError(os.Stdout, "minecontrol", err)
		os.Exit(exitCode(err))
	}
	os.Exit(reportExitError(os.Stderr, err))
}

// reportExitError prints err and its suggestion to w and returns the exit code.
func reportExitError(w io.Writer, err error) int {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, "Error:", msg)
	}
	printUserVisibleSuggestion(w, err)

	return exitCode(err)
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailed
}

// printUserVisibleSuggestion prints the suggestion of the first
// UserVisibleError in err's chain, if any.
func printUserVisibleSuggestion(w io.Writer, err error) {
	if suggestion := suggestionFor(err); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}

// suggestionFor walks the error chain to find a UserVisibleError.
func suggestionFor(err error) string {
	for err != nil {
		if userErr, ok := err.(mcerrors.UserVisibleError); ok {
			if userErr.IsUserVisible() {
				return userErr.Suggestion()
			}
			return ""
		}

		// Continue unwrapping
		err = errors.Unwrap(err)
	}
	return ""
}
