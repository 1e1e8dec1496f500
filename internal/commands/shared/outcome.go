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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/minecontrol/internal/orchestrator"
)

// TrustedCaller is the identity of a local CLI user. It skips the admin
// role check.
func TrustedCaller(guildID string) orchestrator.Caller {
	return orchestrator.Caller{GuildID: guildID, User: "cli", Trusted: true}
}

// PlainText strips the chat markdown used in outcome messages.
func PlainText(msg string) string {
	msg = strings.ReplaceAll(msg, "**", "")
	msg = strings.ReplaceAll(msg, "`", "")
	return msg
}

// RenderOutcome prints out and returns an ExitError for failed outcomes.
// The returned error carries no message since the outcome was already
// printed.
func RenderOutcome(cmd *cobra.Command, command string, out orchestrator.Outcome) error {
	if GetJSON() {
		resp := OutcomeResponse{
			JSONResponse: JSONResponse{Version: "1.0", Command: command, Success: out.Kind.OK()},
			Outcome:      out.Kind.String(),
			Message:      PlainText(out.Message),
			RequestID:    out.RequestID,
		}
		if err := EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return fmt.Errorf("failed to write JSON output: %w", err)
		}
	} else if !GetQuiet() || !out.Kind.OK() {
		fmt.Fprintln(cmd.OutOrStdout(), renderMessage(out))
	}

	switch out.Kind {
	case orchestrator.KindDenied:
		return &ExitError{Code: ExitDenied}
	case orchestrator.KindConflict:
		return &ExitError{Code: ExitConflict}
	case orchestrator.KindError:
		return &ExitError{Code: ExitFailed}
	}
	return nil
}

func renderMessage(out orchestrator.Outcome) string {
	msg := PlainText(out.Message)
	switch out.Kind {
	case orchestrator.KindSuccess:
		return RenderOK(msg)
	case orchestrator.KindNoop:
		return RenderInfo(msg)
	case orchestrator.KindConflict:
		return RenderWarn(msg)
	default:
		return RenderError(msg)
	}
}
