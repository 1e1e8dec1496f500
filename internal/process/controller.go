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

// Package process starts and stops the managed server inside its
// terminal-multiplexer session.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/status"
	"github.com/tombee/minecontrol/internal/tmux"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// StartResult is the outcome of a start request.
type StartResult int

const (
	// StartAlreadyRunning means the session already exists.
	StartAlreadyRunning StartResult = iota
	// StartNoAction means the server already answers the console.
	StartNoAction
	// StartLaunched means a new session was created.
	StartLaunched
)

func (r StartResult) String() string {
	switch r {
	case StartAlreadyRunning:
		return "already_running"
	case StartNoAction:
		return "no_action"
	case StartLaunched:
		return "launched"
	}
	return "unknown"
}

// StopResult is the outcome of a stop request.
type StopResult int

const (
	// StopNotRunning means no session exists.
	StopNotRunning StopResult = iota
	// StopNoAction means the server is already offline.
	StopNoAction
	// StopSent means the stop command was sent to the session.
	StopSent
)

func (r StopResult) String() string {
	switch r {
	case StopNotRunning:
		return "not_running"
	case StopNoAction:
		return "no_action"
	case StopSent:
		return "sent"
	}
	return "unknown"
}

// StopCommand is typed into the server console to shut it down.
const StopCommand = "stop"

// Resolver reports the current server status.
type Resolver interface {
	Resolve(ctx context.Context) status.ServerStatus
}

// Flags is the part of the starting flag store the controller writes.
type Flags interface {
	MarkStarting() error
	MarkStopped() error
}

// Watcher schedules background announcements of a status change.
type Watcher interface {
	WatchOnline(guildID string)
	WatchOffline(guildID string)
}

// Options configures a Controller.
type Options struct {
	SessionName string
	ServerPath  string
	StartScript string
}

// Controller issues start and stop requests. Neither waits for the
// transition; confirmation is left to the Watcher.
type Controller struct {
	sessions tmux.SessionController
	resolver Resolver
	flags    Flags
	watcher  Watcher
	opts     Options
	logger   *slog.Logger
}

// NewController creates a Controller.
func NewController(sessions tmux.SessionController, resolver Resolver, flags Flags, watcher Watcher, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = log.Discard()
	}
	return &Controller{
		sessions: sessions,
		resolver: resolver,
		flags:    flags,
		watcher:  watcher,
		opts:     opts,
		logger:   log.WithComponent(logger, "process").With(slog.String(log.SessionKey, opts.SessionName)),
	}
}

// SessionName returns the multiplexer session the server runs in.
func (c *Controller) SessionName() string {
	return c.opts.SessionName
}

// Start launches the server unless it is already running. guildID names
// where the online announcement goes.
func (c *Controller) Start(ctx context.Context, guildID string) (StartResult, error) {
	exists, err := c.sessions.HasSession(c.opts.SessionName)
	if err != nil {
		return 0, fmt.Errorf("checking session: %w", err)
	}
	if exists {
		return StartAlreadyRunning, nil
	}

	if _, err := os.Stat(c.opts.StartScript); err != nil {
		reason := "start script not found"
		if !errors.Is(err, os.ErrNotExist) {
			reason = "start script not accessible"
		}
		return 0, &mcerrors.FileSystemError{Path: c.opts.StartScript, Op: "start", Reason: reason, Cause: err}
	}

	if s := c.resolver.Resolve(ctx); s == status.Online {
		return StartNoAction, nil
	}

	if err := c.flags.MarkStarting(); err != nil {
		return 0, fmt.Errorf("marking server as starting: %w", err)
	}

	if err := c.sessions.NewDetachedSession(c.opts.SessionName, c.opts.ServerPath, c.opts.StartScript); err != nil {
		if clearErr := c.flags.MarkStopped(); clearErr != nil {
			c.logger.Warn("cannot clear starting flag", log.Error(clearErr))
		}
		return 0, fmt.Errorf("creating session: %w", err)
	}

	c.logger.Info("server launch requested", slog.String("script", c.opts.StartScript))
	c.watcher.WatchOnline(guildID)
	return StartLaunched, nil
}

// Stop asks the server to shut down unless it is already down. guildID
// names where the offline announcement goes.
func (c *Controller) Stop(ctx context.Context, guildID string) (StopResult, error) {
	exists, err := c.sessions.HasSession(c.opts.SessionName)
	if err != nil {
		return 0, fmt.Errorf("checking session: %w", err)
	}
	if !exists {
		if err := c.flags.MarkStopped(); err != nil {
			c.logger.Warn("cannot clear starting flag", log.Error(err))
		}
		return StopNotRunning, nil
	}

	if s := c.resolver.Resolve(ctx); s == status.Offline {
		return StopNoAction, nil
	}

	if err := c.SendStop(); err != nil {
		return 0, err
	}

	c.watcher.WatchOffline(guildID)
	return StopSent, nil
}

// SendStop types the stop command into the session without any checks.
// The auto-shutdown engine uses it directly.
func (c *Controller) SendStop() error {
	if err := c.sessions.SendLine(c.opts.SessionName, StopCommand); err != nil {
		return fmt.Errorf("sending stop: %w", err)
	}
	c.logger.Info("stop command sent")
	return nil
}
