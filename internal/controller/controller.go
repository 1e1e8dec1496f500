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

package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/minecontrol/internal/announce"
	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/discord"
	"github.com/tombee/minecontrol/internal/guildconfig"
	internallog "github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/orchestrator"
	"github.com/tombee/minecontrol/internal/rcon"
	"github.com/tombee/minecontrol/internal/state"
	"github.com/tombee/minecontrol/internal/tmux"
)

// Options configures a Controller.
type Options struct {
	Version   string
	Commit    string
	BuildDate string

	// ConfigPath is watched for changes by Start. Empty disables reload.
	ConfigPath string

	// Exclusive takes the owner lock on the state directory.
	Exclusive bool

	// Logger overrides the logger built from the configuration.
	Logger *slog.Logger

	// Console, Sessions and Announcer replace the real adapters.
	Console   rcon.Console
	Sessions  tmux.SessionController
	Announcer announce.Announcer
}

// Controller is a running minecontrol instance.
type Controller struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	lock    *state.OwnerLock
	guilds  *guildconfig.Store
	session *discordgo.Session
	orch    *orchestrator.Orchestrator

	mu      sync.Mutex
	started bool
	closed  bool
}

// New creates a controller. root bounds the background goroutines the
// orchestrator starts on behalf of commands.
func New(root context.Context, cfg *config.Config, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = internallog.New(&internallog.Config{
			Level:  cfg.Log.Level,
			Format: internallog.Format(cfg.Log.Format),
			Output: os.Stderr,
		})
	}

	c := &Controller{
		cfg:    cfg,
		opts:   opts,
		logger: internallog.WithComponent(logger, "controller"),
	}

	if opts.Exclusive {
		lock, err := state.AcquireOwner(cfg.State.LockPath())
		if err != nil {
			return nil, fmt.Errorf("failed to take owner lock: %w", err)
		}
		c.lock = lock
	}

	guilds, err := guildconfig.Open(cfg.State.GuildDBPath())
	if err != nil {
		c.release()
		return nil, fmt.Errorf("failed to open guild store: %w", err)
	}
	c.guilds = guilds

	if cfg.Discord.BotToken != "" {
		session, err := discord.NewSession(cfg.Discord.BotToken)
		if err != nil {
			guilds.Close()
			c.release()
			return nil, err
		}
		c.session = session
	}

	deps := orchestrator.Deps{
		Console:   opts.Console,
		Sessions:  opts.Sessions,
		Announcer: opts.Announcer,
		Guilds:    guilds,
	}
	if deps.Console == nil {
		deps.Console = rcon.NewClient(cfg.RCON.Address(), cfg.RCON.Password, cfg.RCON.Timeout)
	}
	if deps.Sessions == nil {
		deps.Sessions = tmux.New()
	}
	if deps.Announcer == nil {
		if c.session != nil {
			// REST calls work without opening the gateway.
			deps.Announcer = discord.NewAnnouncer(c.session, guilds, logger)
		} else {
			deps.Announcer = announce.LogAnnouncer{Logger: logger}
		}
	}

	c.orch = orchestrator.New(root, cfg, deps, logger)
	return c, nil
}

// Orchestrator returns the command surface.
func (c *Controller) Orchestrator() *orchestrator.Orchestrator {
	return c.orch
}

// Guilds returns the guild configuration store.
func (c *Controller) Guilds() *guildconfig.Store {
	return c.guilds
}

// Start runs the background services until ctx is cancelled or one of
// them fails.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("controller already started")
	}
	c.started = true
	c.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.orch.RunAutoShutdown(ctx)
		return nil
	})

	if c.cfg.Metrics.Addr != "" {
		g.Go(func() error {
			if err := metrics.Serve(ctx, c.cfg.Metrics.Addr, c.logger); err != nil {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
	}

	if c.opts.ConfigPath != "" {
		w, err := config.NewWatcher(c.opts.ConfigPath, c.orch.ApplyConfig, c.logger)
		if err != nil {
			c.logger.Warn("config reload disabled", internallog.Error(err))
		} else {
			g.Go(func() error {
				w.Run(ctx)
				return nil
			})
		}
	}

	if c.session != nil {
		bot := discord.NewBot(c.session, c.orch, c.cfg.Discord, c.logger)
		g.Go(func() error {
			return bot.Run(ctx)
		})
	} else {
		c.logger.Warn("no discord bot token configured; slash commands are disabled")
	}

	c.logger.Info("minecontrol started",
		slog.String("version", c.opts.Version),
		slog.String("session", c.cfg.Minecraft.SessionName),
		slog.Bool("auto_shutdown", c.cfg.AutoShutdown.Enabled))

	return g.Wait()
}

// Shutdown waits for in-flight announcement watchers, then closes the
// guild store and releases the owner lock. Watchers stop early when the
// root context passed to New is cancelled.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	done := make(chan struct{})
	go func() {
		c.orch.Watcher().Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("shutdown timed out waiting for announcement watchers")
	}

	var errs []error
	if err := c.guilds.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing guild store: %w", err))
	}
	if err := c.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Controller) release() error {
	if c.lock == nil {
		return nil
	}
	if err := c.lock.Release(); err != nil {
		return fmt.Errorf("releasing owner lock: %w", err)
	}
	c.lock = nil
	return nil
}
