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

	"github.com/tombee/minecontrol/internal/orchestrator"
)

// NewStartCommand creates the start command.
func NewStartCommand() *cobra.Command {
	var (
		guildID string
		wait    bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Minecraft server",
		Long: `Start the Minecraft server in a detached tmux session.

start does nothing when the session already exists or the server already
answers on RCON. When a guild is configured, the server is announced in its
announcement channel once it is online; use --wait to stay in the
foreground until then.`,
		Example: `  # Start and return immediately
  minecontrol start

  # Start and wait until the server is online
  minecontrol start --wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, runOptions{command: "start", guildID: guildID, wait: wait},
				func(ctx context.Context, orch *orchestrator.Orchestrator, caller orchestrator.Caller) orchestrator.Outcome {
					return orch.Start(ctx, caller)
				})
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "Guild to announce in (default: discord.guild_id)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the server is online")

	return cmd
}

// NewStopCommand creates the stop command.
func NewStopCommand() *cobra.Command {
	var (
		guildID string
		wait    bool
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the Minecraft server",
		Long: `Send "stop" to the Minecraft server console.

The server saves and exits on its own; the tmux session closes with it.
Use --wait to stay in the foreground until the server is offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, runOptions{command: "stop", guildID: guildID, wait: wait},
				func(ctx context.Context, orch *orchestrator.Orchestrator, caller orchestrator.Caller) orchestrator.Outcome {
					return orch.Stop(ctx, caller)
				})
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "Guild to announce in (default: discord.guild_id)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the server is offline")

	return cmd
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the Minecraft server is online",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, runOptions{command: "status"},
				func(ctx context.Context, orch *orchestrator.Orchestrator, caller orchestrator.Caller) orchestrator.Outcome {
					return orch.Status(ctx, caller)
				})
		},
	}
}
