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

// Package autoshutdown stops the managed server after it has been empty
// for a configurable period.
package autoshutdown

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tombee/minecontrol/internal/announce"
	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/rcon"
	"github.com/tombee/minecontrol/internal/status"
)

// Phase is the idle state machine's phase.
type Phase int

const (
	// Monitoring means players were seen, or the server is not online.
	Monitoring Phase = iota
	// TimingEmpty means the server has been empty since State.EmptySince.
	TimingEmpty
	// ShutdownCountdown means the idle timeout elapsed and the final
	// countdown started at State.CountdownSince.
	ShutdownCountdown
)

func (p Phase) String() string {
	switch p {
	case Monitoring:
		return "monitoring"
	case TimingEmpty:
		return "timing_empty"
	case ShutdownCountdown:
		return "shutdown_countdown"
	}
	return "unknown"
}

// State is the engine's in-memory state.
type State struct {
	Phase          Phase
	EmptySince     time.Time
	CountdownSince time.Time
}

// Settings are the thresholds that may change while the engine runs.
type Settings struct {
	// IdleMinutes is how long the server must be empty before the countdown.
	IdleMinutes int
	// Countdown is the final wait before stopping.
	Countdown time.Duration
	// GracePeriod is the wait between sending stop and announcing.
	GracePeriod time.Duration
}

func (s Settings) idleTimeout() time.Duration {
	return time.Duration(s.IdleMinutes) * time.Minute
}

// Resolver reports the current server status.
type Resolver interface {
	Resolve(ctx context.Context) status.ServerStatus
}

// Stopper sends the stop command to the server.
type Stopper interface {
	SendStop() error
}

// Options configures an Engine.
type Options struct {
	Interval time.Duration
	Settings Settings
	// GuildID receives the idle shutdown announcement.
	GuildID string
}

// Engine runs the idle state machine. Only the goroutine calling Run (or
// Tick) mutates the state.
type Engine struct {
	resolver  Resolver
	console   rcon.Console
	stopper   Stopper
	announcer announce.Announcer
	logger    *slog.Logger

	interval time.Duration
	guildID  string
	settings atomic.Pointer[Settings]

	mu    sync.RWMutex
	state State

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an Engine in the Monitoring phase.
func NewEngine(resolver Resolver, console rcon.Console, stopper Stopper, announcer announce.Announcer, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	e := &Engine{
		resolver:  resolver,
		console:   console,
		stopper:   stopper,
		announcer: announcer,
		logger:    log.WithComponent(logger, "autoshutdown"),
		interval:  opts.Interval,
		guildID:   opts.GuildID,
		now:       time.Now,
		sleep:     sleepContext,
	}
	settings := opts.Settings
	e.settings.Store(&settings)
	return e
}

// SetClock overrides the time source and the sleep used for the grace
// period.
func (e *Engine) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	e.now = now
	e.sleep = sleep
}

// UpdateSettings swaps the thresholds. It is safe to call from any
// goroutine; the next tick uses the new values.
func (e *Engine) UpdateSettings(s Settings) {
	e.settings.Store(&s)
	e.logger.Info("auto-shutdown settings updated",
		slog.Int("idle_minutes", s.IdleMinutes),
		slog.Duration("countdown", s.Countdown))
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Run ticks every interval until ctx is cancelled. A tick never overlaps
// the previous one.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("auto-shutdown engine started", slog.Duration("interval", e.interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("auto-shutdown engine stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick performs one observation and transition.
func (e *Engine) Tick(ctx context.Context) {
	if e.resolver.Resolve(ctx) != status.Online {
		e.reset()
		return
	}

	players := e.playerCount(ctx)
	if players < 0 {
		e.logger.Warn("could not read player count, skipping tick")
		return
	}

	log.Trace(e.logger, "player count sampled", slog.Int(log.PlayersKey, players))

	if players > 0 {
		if e.State().Phase != Monitoring {
			e.logger.Info("player joined, shutdown cancelled", slog.Int(log.PlayersKey, players))
		}
		e.reset()
		return
	}

	settings := *e.settings.Load()
	now := e.now()
	current := e.State()

	switch current.Phase {
	case Monitoring:
		e.logger.Info("server empty, timing idle period")
		e.set(State{Phase: TimingEmpty, EmptySince: now})

	case TimingEmpty:
		if now.Sub(current.EmptySince) >= settings.idleTimeout() {
			e.logger.Info("idle timeout reached, starting shutdown countdown",
				slog.Duration("countdown", settings.Countdown))
			e.set(State{Phase: ShutdownCountdown, EmptySince: current.EmptySince, CountdownSince: now})
		}

	case ShutdownCountdown:
		if now.Sub(current.CountdownSince) >= settings.Countdown {
			e.shutdown(ctx, settings)
		}
	}
}

func (e *Engine) shutdown(ctx context.Context, settings Settings) {
	defer e.reset()

	e.logger.Info("countdown finished, stopping server")
	if err := e.stopper.SendStop(); err != nil {
		e.logger.Error("idle shutdown failed", log.Error(err))
		return
	}
	metrics.RecordAutoShutdown()

	if err := e.sleep(ctx, settings.GracePeriod); err != nil {
		return
	}
	if err := e.announcer.Announce(ctx, e.guildID, announce.IdleShutdown(settings.IdleMinutes)); err != nil {
		e.logger.Error("idle shutdown announcement failed", log.Error(err))
	}
}

func (e *Engine) playerCount(ctx context.Context) int {
	resp, err := e.console.Execute(ctx, status.ProbeCommand)
	if err != nil {
		log.Trace(e.logger, "player count query failed", log.Error(err))
		return -1
	}
	n := ParsePlayerCount(resp)
	if n < 0 {
		e.logger.Warn("unrecognised list response", slog.String("response", resp))
	}
	return n
}

func (e *Engine) set(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	metrics.SetAutoShutdownPhase(int(s.Phase))
}

func (e *Engine) reset() {
	e.set(State{Phase: Monitoring})
}

var playerCountPattern = regexp.MustCompile(`(\d+)/\d+|There are (\d+) of`)

// ParsePlayerCount extracts the online player count from a list response.
// It returns -1 when the response does not match a known format.
func ParsePlayerCount(resp string) int {
	m := playerCountPattern.FindStringSubmatch(resp)
	if m == nil {
		return -1
	}
	s := m[1]
	if s == "" {
		s = m[2]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
