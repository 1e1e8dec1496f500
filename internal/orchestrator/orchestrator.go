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

// Package orchestrator is the command surface of minecontrol. It owns the
// starting flag, the backup coordinator, the announcement watcher and the
// auto-shutdown engine, and turns every command into an Outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/minecontrol/internal/announce"
	"github.com/tombee/minecontrol/internal/autoshutdown"
	"github.com/tombee/minecontrol/internal/backup"
	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/process"
	"github.com/tombee/minecontrol/internal/rcon"
	"github.com/tombee/minecontrol/internal/state"
	"github.com/tombee/minecontrol/internal/status"
	"github.com/tombee/minecontrol/internal/tmux"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// GuildStore is per-guild configuration storage.
type GuildStore interface {
	GetAdminRole(ctx context.Context, guildID string) (string, error)
	SetAdminRole(ctx context.Context, guildID, role string) error
	GetAnnouncementChannel(ctx context.Context, guildID string) (string, error)
	SetAnnouncementChannel(ctx context.Context, guildID, channelID string) error
}

// RoleEnsurer creates a guild role if it does not exist yet.
type RoleEnsurer interface {
	// EnsureRole returns created=false if the role already existed.
	EnsureRole(ctx context.Context, guildID, name string) (created bool, err error)
}

// ErrBotCannotManageRoles is returned by a RoleEnsurer when the bot lacks
// the Manage Roles permission.
var ErrBotCannotManageRoles = errors.New("bot lacks the Manage Roles permission")

// ErrRoleHierarchy is returned by a RoleEnsurer when the guild refuses to
// create the role.
var ErrRoleHierarchy = errors.New("role creation forbidden")

// Deps are the external capabilities the orchestrator drives.
type Deps struct {
	Console   rcon.Console
	Sessions  tmux.SessionController
	Announcer announce.Announcer
	Guilds    GuildStore
}

// Orchestrator implements the command surface.
type Orchestrator struct {
	cfg    *config.Config
	guilds GuildStore
	logger *slog.Logger

	flags       *state.FlagStore
	resolver    *status.Resolver
	watcher     *announce.Watcher
	controller  *process.Controller
	coordinator *backup.Coordinator
	engine      *autoshutdown.Engine

	newID func() string
}

// New builds the orchestrator and its components. root bounds every
// background goroutine it starts.
func New(root context.Context, cfg *config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Discard()
	}

	flags := state.NewFlagStore(cfg.State.FlagPath(), state.WithLogger(logger))
	resolver := status.NewResolver(deps.Console, flags, cfg.RCON.Timeout, logger)
	watcher := announce.NewWatcher(root, resolver, deps.Announcer, logger)

	controller := process.NewController(deps.Sessions, resolver, flags, watcher, process.Options{
		SessionName: cfg.Minecraft.SessionName,
		ServerPath:  cfg.Minecraft.ServerPath,
		StartScript: cfg.Minecraft.StartScriptPath(),
	}, logger)

	archiver := backup.NewArchiver(root, backup.Format(cfg.Minecraft.BackupFormat), logger)
	coordinator := backup.NewCoordinator(resolver, deps.Console, archiver, backup.Options{
		ServerPath:     cfg.Minecraft.ServerPath,
		PropertiesPath: cfg.Minecraft.PropertiesPath(),
		BackupDir:      cfg.Minecraft.BackupDir(),
		QuiesceDelay:   backup.DefaultQuiesceDelay,
	}, logger)

	engine := autoshutdown.NewEngine(resolver, deps.Console, controller, deps.Announcer, autoshutdown.Options{
		Interval: cfg.AutoShutdown.Interval,
		GuildID:  cfg.Discord.GuildID,
		Settings: SettingsFrom(cfg),
	}, logger)

	return &Orchestrator{
		cfg:         cfg,
		guilds:      deps.Guilds,
		logger:      log.WithComponent(logger, "orchestrator"),
		flags:       flags,
		resolver:    resolver,
		watcher:     watcher,
		controller:  controller,
		coordinator: coordinator,
		engine:      engine,
		newID:       uuid.NewString,
	}
}

// SettingsFrom extracts the auto-shutdown thresholds from cfg.
func SettingsFrom(cfg *config.Config) autoshutdown.Settings {
	return autoshutdown.Settings{
		IdleMinutes: cfg.AutoShutdown.IdleMinutes,
		Countdown:   cfg.AutoShutdown.Countdown(),
		GracePeriod: cfg.AutoShutdown.GracePeriod,
	}
}

// Engine returns the auto-shutdown engine.
func (o *Orchestrator) Engine() *autoshutdown.Engine {
	return o.engine
}

// Watcher returns the announcement watcher.
func (o *Orchestrator) Watcher() *announce.Watcher {
	return o.watcher
}

// Coordinator returns the backup coordinator.
func (o *Orchestrator) Coordinator() *backup.Coordinator {
	return o.coordinator
}

// RunAutoShutdown runs the engine until ctx is cancelled. It returns
// immediately when auto-shutdown is disabled or no guild is configured to
// receive its announcement.
func (o *Orchestrator) RunAutoShutdown(ctx context.Context) {
	if !o.cfg.AutoShutdown.Enabled || o.cfg.Discord.GuildID == "" {
		o.logger.Info("auto-shutdown disabled or no guild configured")
		return
	}
	o.engine.Run(ctx)
}

// ApplyConfig pushes reloadable settings from a new configuration.
func (o *Orchestrator) ApplyConfig(cfg *config.Config) {
	o.engine.UpdateSettings(SettingsFrom(cfg))
}

// handle runs fn as the named command: it assigns a request ID, logs,
// records metrics and converts panics into an error outcome.
func (o *Orchestrator) handle(ctx context.Context, command string, caller Caller, admin bool, fn func(ctx context.Context) Outcome) (out Outcome) {
	inv := &log.Invocation{
		Command:   command,
		RequestID: o.newID(),
		GuildID:   caller.GuildID,
		User:      caller.User,
	}
	logger := log.WithRequestID(o.logger, inv.RequestID)
	log.LogCommand(logger, inv)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out = Outcome{Kind: KindError, Message: "An unexpected internal error occurred."}
		}
		out.RequestID = inv.RequestID
		metrics.RecordCommand(command, out.Kind.String())
		log.LogCommandResult(logger, inv, out.Kind.String(), out.Kind.OK(), time.Since(start))
	}()

	if admin {
		if denied, ok := o.authorize(ctx, caller); !ok {
			return denied
		}
	}
	return fn(ctx)
}

// authorize checks that the caller holds the guild's configured admin role.
func (o *Orchestrator) authorize(ctx context.Context, caller Caller) (Outcome, bool) {
	if caller.Trusted {
		return Outcome{}, true
	}
	if caller.GuildID == "" {
		return Outcome{Kind: KindDenied, Message: "This command can only be used in a server."}, false
	}

	role, err := o.guilds.GetAdminRole(ctx, caller.GuildID)
	if err != nil {
		return errorOutcome("checking permissions", err), false
	}
	if role == "" {
		return Outcome{Kind: KindDenied, Message: "No admin role is configured for this server. Someone with the Manage Roles permission must run `/setup` first."}, false
	}
	if !caller.guildHasRole(role) {
		return Outcome{Kind: KindDenied, Message: fmt.Sprintf("The configured admin role '%s' does not exist on this server. Run `/setup` again.", role)}, false
	}
	if !caller.hasRole(role) {
		return Outcome{Kind: KindDenied, Message: fmt.Sprintf("You need the '%s' role to use this command.", role)}, false
	}
	return Outcome{}, true
}

func errorOutcome(action string, err error) Outcome {
	var fsErr *mcerrors.FileSystemError
	if errors.As(err, &fsErr) {
		return Outcome{Kind: KindError, Message: "**Error:** " + mcerrors.UserMessage(err)}
	}
	return Outcome{
		Kind:    KindError,
		Message: fmt.Sprintf("**Unexpected error while %s:**\n```\n%s\n```", action, mcerrors.UserMessage(err)),
	}
}
