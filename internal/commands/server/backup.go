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

package server

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tombee/minecontrol/internal/commands/shared"
	"github.com/tombee/minecontrol/internal/orchestrator"
)

// NewBackupCommand creates the backup command.
func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the world folder",
		Long: `Archive the world folder into the backup directory.

When the server is online, autosave is paused and the world flushed before
archiving, and resumed afterwards. The archive is named after the level and
the local time, e.g. world_backup_2025-01-31_18-04-05.zip.

backup refuses to run while minecontrol serve owns the state directory;
use the /server_backup chat command instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var spinner *shared.Spinner
			if !shared.GetJSON() && !shared.GetQuiet() {
				spinner = shared.NewSpinner(cmd.ErrOrStderr())
				spinner.Start("Starting backup...")
				defer spinner.Stop()
			}

			return runAction(cmd, runOptions{command: "backup", exclusive: true},
				func(ctx context.Context, orch *orchestrator.Orchestrator, caller orchestrator.Caller) orchestrator.Outcome {
					out := orch.Backup(ctx, caller, func(msg string) {
						if spinner != nil {
							spinner.Update(msg)
						}
					})
					if spinner != nil {
						spinner.Stop()
					}
					return out
				})
		},
	}

	return cmd
}
