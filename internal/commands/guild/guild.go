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

// Package guild implements commands that manage per-guild settings.
package guild

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tombee/minecontrol/internal/commands/shared"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// NewChannelCommand creates the channel command group.
func NewChannelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage announcement channels",
		Long:  `Manage the channel each guild's lifecycle announcements are posted to.`,
	}

	cmd.AddCommand(newChannelSetCommand())
	cmd.AddCommand(newChannelShowCommand())

	return cmd
}

func newChannelSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <guild-id> <channel-id>",
		Short:   "Set a guild's announcement channel",
		Example: `  minecontrol channel set 123456789012345678 234567890123456789`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			guildID, channelID := args[0], args[1]
			if err := validateSnowflake("guild-id", guildID); err != nil {
				return err
			}
			if err := validateSnowflake("channel-id", channelID); err != nil {
				return err
			}

			c, _, err := shared.OpenController(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			out := c.Orchestrator().SetAnnouncementChannel(cmd.Context(), shared.TrustedCaller(guildID), channelID)
			return shared.RenderOutcome(cmd, "channel set", out)
		},
	}
}

// channelInfo is the JSON form of channel show.
type channelInfo struct {
	shared.JSONResponse
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	AdminRole string `json:"admin_role"`
}

func newChannelShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id>",
		Short: "Show a guild's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := shared.OpenController(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			gc, err := c.Guilds().Get(cmd.Context(), args[0])
			if err != nil {
				return shared.NewExecutionError("failed to read guild settings", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), channelInfo{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "channel show", Success: true},
					GuildID:      gc.GuildID,
					ChannelID:    gc.AnnouncementChannelID,
					AdminRole:    gc.AdminRole,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, shared.Header.Render("Guild "+gc.GuildID))
			fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("announcement channel:"), orUnset(gc.AnnouncementChannelID))
			fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("admin role:"), orUnset(gc.AdminRole))
			return nil
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <guild_configs.json>",
		Short: "Import guild settings from a JSON file",
		Long: `Import per-guild admin roles and announcement channels from a
guild_configs.json file into the guild database. Existing settings for the
same guilds are overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := shared.OpenController(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			n, err := c.Guilds().ImportJSON(cmd.Context(), args[0])
			if err != nil {
				return shared.NewExecutionError("import failed", err)
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Imported int `json:"imported"`
				}{
					JSONResponse: shared.JSONResponse{Version: "1.0", Command: "import", Success: true},
					Imported:     n,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Imported %d guild(s).", n)))
			return nil
		},
	}
}

func validateSnowflake(name, value string) error {
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		return shared.NewExecutionError("invalid arguments", &mcerrors.ValidationError{
			Field:   name,
			Message: fmt.Sprintf("must be a numeric Discord ID, got %q", value),
		})
	}
	return nil
}

func orUnset(v string) string {
	if v == "" {
		return shared.Muted.Render("(not set)")
	}
	return v
}
