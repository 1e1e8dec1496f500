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

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/tombee/minecontrol/internal/backup"
	"github.com/tombee/minecontrol/internal/process"
	"github.com/tombee/minecontrol/internal/status"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// Start launches the server.
func (o *Orchestrator) Start(ctx context.Context, caller Caller) Outcome {
	return o.handle(ctx, "server_start", caller, true, func(ctx context.Context) Outcome {
		session := o.controller.SessionName()

		res, err := o.controller.Start(ctx, caller.GuildID)
		if err != nil {
			return errorOutcome("starting the server", err)
		}

		switch res {
		case process.StartAlreadyRunning:
			return Outcome{Kind: KindNoop, Message: fmt.Sprintf("The Minecraft server is already running in tmux session `%s`.", session)}
		case process.StartNoAction:
			return Outcome{Kind: KindNoop, Message: "The server is already online. No action needed."}
		case process.StartLaunched:
			msg := fmt.Sprintf("Starting the server in session `%s`!", session)
			msg += o.announcementNote(ctx, caller.GuildID)
			return Outcome{Kind: KindSuccess, Message: msg}
		}
		return Outcome{Kind: KindError, Message: "Unexpected start result."}
	})
}

func (o *Orchestrator) announcementNote(ctx context.Context, guildID string) string {
	if guildID == "" {
		return ""
	}
	channel, err := o.guilds.GetAnnouncementChannel(ctx, guildID)
	if err != nil || channel == "" {
		return "\n\n**Note:** To announce publicly when it is ready, configure a channel with `/set_announcement_channel`."
	}
	return " It will be announced publicly when it is ready."
}

// Stop asks the server to shut down.
func (o *Orchestrator) Stop(ctx context.Context, caller Caller) Outcome {
	return o.handle(ctx, "server_stop", caller, true, func(ctx context.Context) Outcome {
		session := o.controller.SessionName()

		res, err := o.controller.Stop(ctx, caller.GuildID)
		if err != nil {
			return errorOutcome("stopping the server", err)
		}

		switch res {
		case process.StopNotRunning:
			return Outcome{Kind: KindNoop, Message: fmt.Sprintf("The Minecraft server is not running. tmux session `%s` was not found.", session)}
		case process.StopNoAction:
			return Outcome{Kind: KindNoop, Message: "The server is already offline. No action needed."}
		case process.StopSent:
			return Outcome{Kind: KindSuccess, Message: fmt.Sprintf("Stop command sent to the server. tmux session `%s` will close shortly.", session)}
		}
		return Outcome{Kind: KindError, Message: "Unexpected stop result."}
	})
}

// Status reports the server status. It is open to every caller.
func (o *Orchestrator) Status(ctx context.Context, caller Caller) Outcome {
	return o.handle(ctx, "server_status", caller, false, func(ctx context.Context) Outcome {
		return Outcome{Kind: KindSuccess, Message: StatusMessage(o.resolver.Resolve(ctx))}
	})
}

// ResolveStatus returns the raw status without going through the command
// surface.
func (o *Orchestrator) ResolveStatus(ctx context.Context) status.ServerStatus {
	return o.resolver.Resolve(ctx)
}

// StatusMessage renders s for users. Unknown is shown as offline.
func StatusMessage(s status.ServerStatus) string {
	switch s {
	case status.Online:
		return "**The Minecraft server is Online.**"
	case status.Starting:
		return "**The Minecraft server is starting...** Please wait a moment."
	case status.Offline, status.Unknown:
		return "**The Minecraft server is Offline.**"
	}
	return "**The Minecraft server is Offline.**"
}

// Backup takes a backup. progress, if non-nil, receives intermediate
// messages.
func (o *Orchestrator) Backup(ctx context.Context, caller Caller, progress func(string)) Outcome {
	return o.handle(ctx, "server_backup", caller, true, func(ctx context.Context) Outcome {
		report, err := o.coordinator.Run(ctx, backup.WithProgress(progress))
		if err != nil {
			var conflict *mcerrors.ConflictError
			if errors.As(err, &conflict) {
				return Outcome{Kind: KindConflict, Message: "A backup is already in progress. Please wait for it to finish before starting another."}
			}
			return errorOutcome("creating the backup", err)
		}
		return Outcome{
			Kind:    KindSuccess,
			Message: fmt.Sprintf("Backup completed: `%s` (%.2f MB).", report.Archive, report.SizeMB()),
		}
	})
}

// SetAnnouncementChannel stores where lifecycle announcements go.
func (o *Orchestrator) SetAnnouncementChannel(ctx context.Context, caller Caller, channelID string) Outcome {
	return o.handle(ctx, "set_announcement_channel", caller, true, func(ctx context.Context) Outcome {
		if caller.GuildID == "" || channelID == "" {
			return Outcome{Kind: KindError, Message: "A server and a channel are required."}
		}
		if err := o.guilds.SetAnnouncementChannel(ctx, caller.GuildID, channelID); err != nil {
			return errorOutcome("saving the announcement channel", err)
		}
		return Outcome{Kind: KindSuccess, Message: fmt.Sprintf("Done. Server announcements will now be sent to <#%s>.", channelID)}
	})
}

// SetupAdminRole makes roleName the guild's admin role, creating it if
// needed. The caller needs the Manage Roles permission.
func (o *Orchestrator) SetupAdminRole(ctx context.Context, caller Caller, roleName string, roles RoleEnsurer) Outcome {
	return o.handle(ctx, "setup", caller, false, func(ctx context.Context) Outcome {
		if !caller.CanManageRoles && !caller.Trusted {
			return Outcome{Kind: KindDenied, Message: "You need the Manage Roles permission to run this command."}
		}
		if caller.GuildID == "" || roleName == "" {
			return Outcome{Kind: KindError, Message: "A server and a role name are required."}
		}

		created, err := roles.EnsureRole(ctx, caller.GuildID, roleName)
		switch {
		case errors.Is(err, ErrBotCannotManageRoles):
			return Outcome{Kind: KindError, Message: "**Critical error!** I don't have the Manage Roles permission.\nPlease re-invite me with the right permissions or give me a role that has them."}
		case errors.Is(err, ErrRoleHierarchy):
			return Outcome{Kind: KindError, Message: "I couldn't create the role. Make sure my role is high enough in the role hierarchy."}
		case err != nil:
			return errorOutcome("creating the role", err)
		}

		if err := o.guilds.SetAdminRole(ctx, caller.GuildID, roleName); err != nil {
			return errorOutcome("saving the admin role", err)
		}

		if !created {
			return Outcome{Kind: KindSuccess, Message: fmt.Sprintf("The role '%s' already exists and has been configured as the admin role. All set!", roleName)}
		}
		return Outcome{Kind: KindSuccess, Message: fmt.Sprintf("The role '%s' has been configured as the admin role.\n\n**Recommended next step:** use `/set_announcement_channel` in the channel where I should announce when the server is online.", roleName)}
	})
}

// Echo repeats text back. It is a connectivity check for the chat surface.
func (o *Orchestrator) Echo(ctx context.Context, caller Caller, text string) Outcome {
	return o.handle(ctx, "echo", caller, false, func(context.Context) Outcome {
		return Outcome{Kind: KindSuccess, Message: "You said: " + text}
	})
}
