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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/log"
)

// shutdownTimeout bounds how long Run waits for announcement watchers.
const shutdownTimeout = 10 * time.Second

// RunOptions configures serve mode.
type RunOptions struct {
	Version   string
	Commit    string
	BuildDate string

	// ConfigPath is the YAML file to load and watch. Empty means
	// environment-only configuration.
	ConfigPath string

	// MetricsAddr overrides metrics.addr when set.
	MetricsAddr string

	// Logger overrides the logger built from the configuration.
	Logger *slog.Logger
}

// Run starts the controller in serve mode and blocks until SIGINT or
// SIGTERM.
func Run(opts RunOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply overrides from options
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}

	logger := opts.Logger
	if logger == nil {
		logCfg := log.FromEnv()
		logCfg.Level = cfg.Log.Level
		logCfg.Format = log.Format(cfg.Log.Format)
		logger = log.New(logCfg)
	}
	slog.SetDefault(logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := New(ctx, cfg, Options{
		Version:    opts.Version,
		Commit:     opts.Commit,
		BuildDate:  opts.BuildDate,
		ConfigPath: opts.ConfigPath,
		Exclusive:  true,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Start(ctx)
	}()

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
		cancel()
		<-errCh
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error("controller error", log.Error(runErr))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", log.Error(err))
		if runErr == nil {
			runErr = fmt.Errorf("shutdown error: %w", err)
		}
	}
	return runErr
}
