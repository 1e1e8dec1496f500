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

package announce

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/status"
)

// Schedule is a watcher's attempt budget.
type Schedule struct {
	Attempts int
	Interval time.Duration
}

var (
	// StartupSchedule waits up to four minutes for the server to come up.
	StartupSchedule = Schedule{Attempts: 16, Interval: 15 * time.Second}

	// ShutdownSchedule waits up to two minutes for the server to go down.
	ShutdownSchedule = Schedule{Attempts: 40, Interval: 3 * time.Second}
)

// Resolver reports the current server status.
type Resolver interface {
	Resolve(ctx context.Context) status.ServerStatus
}

// Watcher polls for a target status in the background and announces it
// once observed. Watches are never cancelled by other operations; they end
// when they succeed, when their budget runs out, or when the root context
// passed to NewWatcher is cancelled.
type Watcher struct {
	root      context.Context
	resolver  Resolver
	announcer Announcer
	logger    *slog.Logger

	startup  Schedule
	shutdown Schedule

	wg sync.WaitGroup
}

// NewWatcher creates a Watcher bound to root.
func NewWatcher(root context.Context, resolver Resolver, announcer Announcer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = log.Discard()
	}
	return &Watcher{
		root:      root,
		resolver:  resolver,
		announcer: announcer,
		logger:    log.WithComponent(logger, "announce-watcher"),
		startup:   StartupSchedule,
		shutdown:  ShutdownSchedule,
	}
}

// SetSchedules overrides the attempt budgets.
func (w *Watcher) SetSchedules(startup, shutdown Schedule) {
	w.startup = startup
	w.shutdown = shutdown
}

// WatchOnline announces ServerOnline to guildID once the server is Online.
func (w *Watcher) WatchOnline(guildID string) {
	w.spawn(status.Online, w.startup, guildID, ServerOnline())
}

// WatchOffline announces ServerOffline to guildID once the server is Offline.
func (w *Watcher) WatchOffline(guildID string) {
	w.spawn(status.Offline, w.shutdown, guildID, ServerOffline())
}

// Wait blocks until every spawned watch has finished.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) spawn(target status.ServerStatus, sched Schedule, guildID string, a Announcement) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.watch(target, sched, guildID, a)
	}()
}

func (w *Watcher) watch(target status.ServerStatus, sched Schedule, guildID string, a Announcement) {
	logger := w.logger.With(
		slog.String("target", target.String()),
		slog.String(log.GuildIDKey, guildID),
	)

	for attempt := 1; attempt <= sched.Attempts; attempt++ {
		if w.root.Err() != nil {
			return
		}

		if w.resolver.Resolve(w.root) == target {
			if err := w.announcer.Announce(w.root, guildID, a); err != nil {
				logger.Error("announcement failed", log.Error(err))
			}
			metrics.RecordWatcher(target.String(), "reached")
			return
		}

		logger.Debug("target status not reached yet",
			slog.Int(log.AttemptKey, attempt),
			slog.Int("attempts", sched.Attempts))

		if attempt == sched.Attempts {
			break
		}

		timer := time.NewTimer(sched.Interval)
		select {
		case <-w.root.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	logger.Info("gave up waiting for status change",
		slog.Duration("waited", time.Duration(sched.Attempts)*sched.Interval))
	metrics.RecordWatcher(target.String(), "exhausted")
}
