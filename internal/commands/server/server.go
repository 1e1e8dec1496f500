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

// Package server implements the one-shot server commands: start, stop,
// status and backup.
package server

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/minecontrol/internal/commands/shared"
	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/orchestrator"
)

// action runs one orchestrator command.
type action func(ctx context.Context, orch *orchestrator.Orchestrator, caller orchestrator.Caller) orchestrator.Outcome

type runOptions struct {
	command   string
	guildID   string
	exclusive bool
	wait      bool
}

// runAction opens a controller, runs fn and renders its outcome. With
// wait, it keeps running until the announcement watcher started by fn has
// finished; otherwise the watcher is cancelled on return.
func runAction(cmd *cobra.Command, opts runOptions, fn action) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, cfg, err := shared.OpenController(ctx, opts.exclusive)
	if err != nil {
		return err
	}

	out := fn(ctx, c.Orchestrator(), shared.TrustedCaller(guildFor(opts.guildID, cfg)))
	renderErr := shared.RenderOutcome(cmd, opts.command, out)

	if opts.wait && out.Kind == orchestrator.KindSuccess {
		if !shared.GetJSON() && !shared.GetQuiet() {
			fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderLabel("Waiting for the server to settle..."))
		}
	} else {
		cancel()
	}

	if err := c.Shutdown(context.Background()); err != nil {
		return shared.NewExecutionError("failed to shut down cleanly", err)
	}
	if opts.wait && out.Kind == orchestrator.KindSuccess && !shared.GetJSON() {
		fmt.Fprintln(cmd.OutOrStdout(), shared.PlainText(orchestrator.StatusMessage(c.Orchestrator().ResolveStatus(cmd.Context()))))
	}
	return renderErr
}

func guildFor(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.Discord.GuildID
}
