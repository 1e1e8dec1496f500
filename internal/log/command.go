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

package log

import (
	"log/slog"
	"time"
)

// Invocation describes a command received from the chat surface or CLI.
type Invocation struct {
	// Command is the command name (e.g., "server_start").
	Command string

	// RequestID is the unique ID for this invocation.
	RequestID string

	// GuildID is the guild the command came from, if any.
	GuildID string

	// User is a display name for the caller.
	User string
}

// LogCommand logs an incoming command.
func LogCommand(logger *slog.Logger, inv *Invocation) {
	attrs := []any{
		"event", "command_received",
		CommandKey, inv.Command,
		RequestIDKey, inv.RequestID,
	}
	if inv.GuildID != "" {
		attrs = append(attrs, GuildIDKey, inv.GuildID)
	}
	if inv.User != "" {
		attrs = append(attrs, "user", inv.User)
	}

	logger.Info("command received", attrs...)
}

// LogCommandResult logs the outcome of a command. Failed outcomes are
// logged at warn level.
func LogCommandResult(logger *slog.Logger, inv *Invocation, outcome string, ok bool, elapsed time.Duration) {
	attrs := []any{
		"event", "command_completed",
		CommandKey, inv.Command,
		RequestIDKey, inv.RequestID,
		"outcome", outcome,
		DurationKey, elapsed.Milliseconds(),
	}

	if ok {
		logger.Info("command completed", attrs...)
		return
	}
	logger.Warn("command failed", attrs...)
}
