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

// Package discord is the chat surface: slash commands in, announcements
// out.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/orchestrator"
)

// Commands is the orchestrator surface the bot dispatches to.
type Commands interface {
	Start(ctx context.Context, caller orchestrator.Caller) orchestrator.Outcome
	Stop(ctx context.Context, caller orchestrator.Caller) orchestrator.Outcome
	Status(ctx context.Context, caller orchestrator.Caller) orchestrator.Outcome
	Backup(ctx context.Context, caller orchestrator.Caller, progress func(string)) orchestrator.Outcome
	SetAnnouncementChannel(ctx context.Context, caller orchestrator.Caller, channelID string) orchestrator.Outcome
	SetupAdminRole(ctx context.Context, caller orchestrator.Caller, roleName string, roles orchestrator.RoleEnsurer) orchestrator.Outcome
	Echo(ctx context.Context, caller orchestrator.Caller, text string) orchestrator.Outcome
}

// Slash command names.
const (
	CommandSetup                  = "setup"
	CommandSetAnnouncementChannel = "set_announcement_channel"
	CommandEcho                   = "echo"
	CommandStart                  = "server_start"
	CommandStop                   = "server_stop"
	CommandStatus                 = "server_status"
	CommandBackup                 = "server_backup"
)

// ApplicationCommands returns the slash command definitions.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandSetup,
			Description: "Configure the role required to use the admin commands.",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "rolename",
				Description: "Name of the role that grants admin permissions (e.g. 'Admin').",
				Required:    true,
			}},
		},
		{
			Name:        CommandSetAnnouncementChannel,
			Description: "Configure the channel where server status changes are announced.",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Channel that receives announcements.",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				Required:     true,
			}},
		},
		{
			Name:        CommandEcho,
			Description: "Repeat the text you send.",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "Text to repeat.",
				Required:    true,
			}},
		},
		{Name: CommandStart, Description: "Start the Minecraft server if it is off."},
		{Name: CommandStop, Description: "Stop the Minecraft server."},
		{Name: CommandStatus, Description: "Show the current status of the Minecraft server."},
		{Name: CommandBackup, Description: "Back up the Minecraft world."},
	}
}

// NewSession creates an unopened Discord session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// Bot routes slash commands to the orchestrator.
type Bot struct {
	session  *discordgo.Session
	commands Commands
	cfg      config.DiscordConfig
	limiter  *guildLimiter
	logger   *slog.Logger
}

// NewBot creates a Bot on an unopened session.
func NewBot(session *discordgo.Session, commands Commands, cfg config.DiscordConfig, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = log.Discard()
	}
	return &Bot{
		session:  session,
		commands: commands,
		cfg:      cfg,
		limiter:  newGuildLimiter(cfg.CommandsPerMinute),
		logger:   log.WithComponent(logger, "discord"),
	}
}

// Run opens the gateway, registers the slash commands and serves until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("connected to discord", slog.String("user", r.User.Username))
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteraction(ctx, s, i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	defer b.session.Close()

	appID := b.cfg.AppID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, ApplicationCommands())
	if err != nil {
		return fmt.Errorf("registering slash commands: %w", err)
	}
	b.logger.Info("slash commands registered",
		slog.Int("count", len(registered)),
		slog.String(log.GuildIDKey, b.cfg.GuildID))

	<-ctx.Done()
	return nil
}

func (b *Bot) onInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	logger := b.logger.With(slog.String(log.CommandKey, data.Name), slog.String(log.GuildIDKey, i.GuildID))

	if !b.limiter.allow(i.GuildID) {
		b.respond(s, i, "You're sending commands too quickly. Try again in a minute.", logger)
		return
	}

	// Backup progress is visible to the whole channel.
	ephemeral := data.Name != CommandBackup
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}); err != nil {
		logger.Error("cannot acknowledge interaction", log.Error(err))
		return
	}

	followup := func(msg string) {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: msg, Flags: flags}); err != nil {
			logger.Error("cannot send followup", log.Error(err))
		}
	}

	roles := b.guildRoles(s, i.GuildID, logger)
	caller := CallerFrom(i, roles)
	ensurer := &roleEnsurer{session: s, appPermissions: i.AppPermissions, roles: roles}

	out := Dispatch(ctx, b.commands, data.Name, optionValues(data.Options), caller, ensurer, followup)
	followup(out.Message)
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string, logger *slog.Logger) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: msg, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		logger.Error("cannot respond to interaction", log.Error(err))
	}
}

func (b *Bot) guildRoles(s *discordgo.Session, guildID string, logger *slog.Logger) []*discordgo.Role {
	if guildID == "" {
		return nil
	}
	if g, err := s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles
	}
	roles, err := s.GuildRoles(guildID)
	if err != nil {
		logger.Warn("cannot list guild roles", log.Error(err))
		return nil
	}
	return roles
}

// Dispatch routes a slash command to commands. progress receives
// intermediate messages of long-running commands.
func Dispatch(ctx context.Context, commands Commands, name string, opts map[string]string, caller orchestrator.Caller, roles orchestrator.RoleEnsurer, progress func(string)) orchestrator.Outcome {
	switch name {
	case CommandSetup:
		return commands.SetupAdminRole(ctx, caller, opts["rolename"], roles)
	case CommandSetAnnouncementChannel:
		return commands.SetAnnouncementChannel(ctx, caller, opts["channel"])
	case CommandEcho:
		return commands.Echo(ctx, caller, opts["text"])
	case CommandStart:
		return commands.Start(ctx, caller)
	case CommandStop:
		return commands.Stop(ctx, caller)
	case CommandStatus:
		return commands.Status(ctx, caller)
	case CommandBackup:
		return commands.Backup(ctx, caller, progress)
	}
	return orchestrator.Outcome{Kind: orchestrator.KindError, Message: fmt.Sprintf("Unknown command `%s`.", name)}
}

// CallerFrom describes the user behind an interaction. guildRoles resolves
// role IDs to names.
func CallerFrom(i *discordgo.InteractionCreate, guildRoles []*discordgo.Role) orchestrator.Caller {
	caller := orchestrator.Caller{GuildID: i.GuildID}

	names := make(map[string]string, len(guildRoles))
	for _, r := range guildRoles {
		names[r.ID] = r.Name
		caller.GuildRoles = append(caller.GuildRoles, r.Name)
	}

	if i.Member != nil {
		if i.Member.User != nil {
			caller.User = i.Member.User.Username
		}
		for _, id := range i.Member.Roles {
			if name, ok := names[id]; ok {
				caller.RoleNames = append(caller.RoleNames, name)
			}
		}
		caller.CanManageRoles = i.Member.Permissions&(discordgo.PermissionManageRoles|discordgo.PermissionAdministrator) != 0
	} else if i.User != nil {
		caller.User = i.User.Username
	}
	return caller
}

func optionValues(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	values := make(map[string]string, len(opts))
	for _, o := range opts {
		values[o.Name] = fmt.Sprint(o.Value)
	}
	return values
}

// roleEnsurer creates guild roles on behalf of the setup command.
type roleEnsurer struct {
	session        *discordgo.Session
	appPermissions int64
	roles          []*discordgo.Role
}

func (r *roleEnsurer) EnsureRole(_ context.Context, guildID, name string) (bool, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return false, nil
		}
	}
	if r.appPermissions&(discordgo.PermissionManageRoles|discordgo.PermissionAdministrator) == 0 {
		return false, orchestrator.ErrBotCannotManageRoles
	}

	_, err := r.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name})
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
			return false, orchestrator.ErrRoleHierarchy
		}
		return false, fmt.Errorf("creating role %q: %w", name, err)
	}
	return true, nil
}
