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

// Package backup takes consistent archives of the server's world
// directory, pausing world saves while the server is online.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/rcon"
	"github.com/tombee/minecontrol/internal/status"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// Console commands issued around the archive step.
const (
	CommandSaveOff = "save-off"
	CommandSaveAll = "save-all"
	CommandSaveOn  = "save-on"
)

// DefaultQuiesceDelay is the wait after save-all before archiving.
const DefaultQuiesceDelay = 5 * time.Second

const timestampLayout = "2006-01-02_15-04-05"

// Report describes a completed backup.
type Report struct {
	// Archive is the archive file name.
	Archive   string
	Path      string
	SizeBytes int64
	// Checksum is the hex BLAKE3 digest of the archive.
	Checksum  string
	Duration  time.Duration
	WasOnline bool
}

// SizeMB returns the archive size in mebibytes.
func (r *Report) SizeMB() float64 {
	return float64(r.SizeBytes) / (1024 * 1024)
}

// Resolver reports the current server status.
type Resolver interface {
	Resolve(ctx context.Context) status.ServerStatus
}

// Options configures a Coordinator.
type Options struct {
	ServerPath     string
	PropertiesPath string
	BackupDir      string
	QuiesceDelay   time.Duration
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

type runConfig struct {
	progress func(string)
}

// WithProgress receives human-readable progress messages.
func WithProgress(fn func(msg string)) RunOption {
	return func(c *runConfig) { c.progress = fn }
}

// Coordinator runs at most one backup at a time.
type Coordinator struct {
	resolver Resolver
	console  rcon.Console
	archiver *Archiver
	opts     Options
	logger   *slog.Logger

	running atomic.Bool

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(resolver Resolver, console rcon.Console, archiver *Archiver, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.QuiesceDelay < 0 {
		opts.QuiesceDelay = 0
	}
	return &Coordinator{
		resolver: resolver,
		console:  console,
		archiver: archiver,
		opts:     opts,
		logger:   log.WithComponent(logger, "backup"),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// SetClock overrides the time source and the quiesce sleep.
func (c *Coordinator) SetClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) {
	c.now = now
	c.sleep = sleep
}

// Running reports whether a backup is in progress.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// Run takes a backup. A second call while one is in progress fails
// immediately with *errors.ConflictError. When the server is online, world
// saves are disabled for the duration of the archive step and re-enabled
// afterwards, including after a failure.
func (c *Coordinator) Run(ctx context.Context, opts ...RunOption) (*Report, error) {
	if !c.running.CompareAndSwap(false, true) {
		metrics.RecordBackup("conflict", 0)
		return nil, &mcerrors.ConflictError{Operation: "backup"}
	}
	defer c.running.Store(false)

	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	progress := func(msg string) {
		if rc.progress != nil {
			rc.progress(msg)
		}
	}

	start := c.now()
	report, err := c.run(ctx, progress)
	if err != nil {
		metrics.RecordBackup("failure", 0)
		return nil, err
	}
	report.Duration = c.now().Sub(start)
	metrics.RecordBackup("success", report.Duration)
	c.logger.Info("backup completed",
		slog.String(log.ArchiveKey, report.Archive),
		slog.Int64("size_bytes", report.SizeBytes),
		slog.Bool("was_online", report.WasOnline),
		slog.Int64(log.DurationKey, report.Duration.Milliseconds()))
	return report, nil
}

func (c *Coordinator) run(ctx context.Context, progress func(string)) (*Report, error) {
	level, err := LevelName(c.opts.PropertiesPath)
	if err != nil {
		c.logger.Warn("cannot read level-name, using default",
			log.Error(err), slog.String("level", level))
	}

	if err := os.MkdirAll(c.opts.BackupDir, 0755); err != nil {
		return nil, &mcerrors.FileSystemError{Path: c.opts.BackupDir, Op: "backup", Reason: "cannot create backup directory", Cause: err}
	}

	worldDir := filepath.Join(c.opts.ServerPath, level)
	if info, err := os.Stat(worldDir); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return nil, &mcerrors.FileSystemError{Path: worldDir, Op: "backup", Reason: fmt.Sprintf("world folder %q not found", level), Cause: err}
	}

	online := c.resolver.Resolve(ctx) == status.Online

	report, err := c.archive(ctx, level, online, progress)
	if err != nil && online {
		c.compensate(ctx)
	}
	return report, err
}

func (c *Coordinator) archive(ctx context.Context, level string, online bool, progress func(string)) (*Report, error) {
	if online {
		progress("Server is online. Preparing for backup...")
		if _, err := c.console.Execute(ctx, CommandSaveOff); err != nil {
			return nil, fmt.Errorf("disabling world saves: %w", err)
		}
		if _, err := c.console.Execute(ctx, CommandSaveAll); err != nil {
			return nil, fmt.Errorf("flushing world: %w", err)
		}
		if err := c.sleep(ctx, c.opts.QuiesceDelay); err != nil {
			return nil, err
		}
	} else {
		progress("Server is offline. Starting backup...")
	}

	progress(fmt.Sprintf("Compressing world folder `%s`...", level))

	name := fmt.Sprintf("%s_backup_%s%s", level, c.now().Format(timestampLayout), c.archiver.Format().Extension())
	res, err := c.archiver.Archive(ctx, ArchiveRequest{
		Root: c.opts.ServerPath,
		Dir:  level,
		Dest: filepath.Join(c.opts.BackupDir, name),
	})
	if err != nil {
		return nil, fmt.Errorf("archiving world: %w", err)
	}

	if online {
		if _, err := c.console.Execute(ctx, CommandSaveOn); err != nil {
			return nil, fmt.Errorf("re-enabling world saves: %w", err)
		}
		if _, err := c.console.Execute(ctx, fmt.Sprintf("say Backup completed: %s.", name)); err != nil {
			return nil, fmt.Errorf("announcing backup in game: %w", err)
		}
	}

	return &Report{
		Archive:   name,
		Path:      res.Path,
		SizeBytes: res.SizeBytes,
		Checksum:  res.Checksum,
		WasOnline: online,
	}, nil
}

// compensate re-enables world saves once after a failed online backup.
// A failure here is logged and counted, nothing more.
func (c *Coordinator) compensate(ctx context.Context) {
	// The caller's ctx may be what failed the backup.
	ctx = context.WithoutCancel(ctx)
	if _, err := c.console.Execute(ctx, CommandSaveOn); err != nil {
		metrics.RecordCompensationFailure()
		c.logger.Error("world saves may still be disabled",
			log.Error(&mcerrors.CompensationError{Step: CommandSaveOn, Cause: err}))
	}
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
