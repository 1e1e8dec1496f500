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
	"fmt"
	"time"
)

// ValidationError represents user input validation failures.
// Use this for invalid command arguments or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "rcon.password")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "config error"
	if e.Key != "" {
		msg = fmt.Sprintf("config error at %s", e.Key)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// TimeoutError represents operation timeouts.
// The RCON adapter returns it when a probe or command exceeds its deadline.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "rcon list")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string { return "timeout" }

// IsRetryable implements ErrorClassifier.
func (e *TimeoutError) IsRetryable() bool { return true }

// ConnectivityError means the managed server could not be reached.
// It is never fatal: the status resolver maps it to Offline or Starting.
type ConnectivityError struct {
	// Target is the address that was dialed
	Target string

	// Cause is the underlying network error
	Cause error
}

// Error implements the error interface.
func (e *ConnectivityError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("cannot reach %s", e.Target)
	}
	return fmt.Sprintf("cannot reach %s: %v", e.Target, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConnectivityError) ErrorType() string { return "connectivity" }

// IsRetryable implements ErrorClassifier.
func (e *ConnectivityError) IsRetryable() bool { return true }

// AuthError means the remote console rejected our credentials.
// This is a misconfiguration and is surfaced as such.
type AuthError struct {
	// Target is the address that rejected authentication
	Target string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication to %s failed (check the RCON password)", e.Target)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *AuthError) ErrorType() string { return "auth" }

// IsRetryable implements ErrorClassifier.
func (e *AuthError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *AuthError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *AuthError) UserMessage() string {
	return "The server rejected the RCON password."
}

// Suggestion implements UserVisibleError.
func (e *AuthError) Suggestion() string {
	return "Make sure rcon.password matches rcon.password in server.properties."
}

// FileSystemError represents a missing or unusable file required by an
// operation. Operations return it before performing any side effect.
type FileSystemError struct {
	// Path is the file or directory involved
	Path string

	// Op is the operation that needed it (e.g., "start", "backup")
	Op string

	// Reason explains what is wrong with the path
	Reason string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Path, e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *FileSystemError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *FileSystemError) ErrorType() string { return "filesystem" }

// IsRetryable implements ErrorClassifier.
func (e *FileSystemError) IsRetryable() bool { return false }

// IsUserVisible implements UserVisibleError.
func (e *FileSystemError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *FileSystemError) UserMessage() string {
	return fmt.Sprintf("%s (%s)", e.Reason, e.Path)
}

// Suggestion implements UserVisibleError.
func (e *FileSystemError) Suggestion() string {
	return "Check minecraft.server_path in the configuration."
}

// ConflictError is returned when an exclusive operation is already running.
// Conflicts are reported immediately and never queued.
type ConflictError struct {
	// Operation is the exclusive operation (e.g., "backup")
	Operation string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in progress", e.Operation)
}

// ErrorType implements ErrorClassifier.
func (e *ConflictError) ErrorType() string { return "conflict" }

// IsRetryable implements ErrorClassifier.
func (e *ConflictError) IsRetryable() bool { return true }

// IsUserVisible implements UserVisibleError.
func (e *ConflictError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConflictError) UserMessage() string {
	return fmt.Sprintf("A %s is already in progress.", e.Operation)
}

// Suggestion implements UserVisibleError.
func (e *ConflictError) Suggestion() string {
	return "Wait for it to finish before starting another one."
}

// CompensationError records a failed rollback step. It is logged, not
// escalated.
type CompensationError struct {
	// Step is the compensating command that failed (e.g., "save-on")
	Step string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensating %s failed: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *CompensationError) ErrorType() string { return "compensation" }

// IsRetryable implements ErrorClassifier.
func (e *CompensationError) IsRetryable() bool { return false }
