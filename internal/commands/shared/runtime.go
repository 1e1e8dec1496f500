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

package shared

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/controller"
	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/state"
)

// adapterOverrides replaces the real adapters in tests.
var adapterOverrides controller.Options

// SetAdaptersForTest makes OpenController use the console, sessions and
// announcer in opts. The returned func restores the real adapters.
func SetAdaptersForTest(opts controller.Options) func() {
	prev := adapterOverrides
	adapterOverrides = opts
	return func() { adapterOverrides = prev }
}

// ConfigPath returns the config file selected by --config or the XDG
// default.
func ConfigPath() string {
	return config.ResolvePath(GetConfigPath())
}

// LoadConfig loads the configuration selected by the global flags.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(ConfigPath())
	if err != nil {
		return nil, NewConfigError("failed to load configuration", err)
	}
	return cfg, nil
}

// NewLogger builds the CLI logger. --verbose lowers the level to debug and
// --quiet raises it to error.
func NewLogger(cfg *config.Config) *slog.Logger {
	logCfg := log.FromEnv()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = log.Format(cfg.Log.Format)
	switch {
	case GetVerbose():
		logCfg.Level = "debug"
	case GetQuiet():
		logCfg.Level = "error"
	}
	return log.New(logCfg)
}

// OpenController loads the configuration and builds a controller for a
// one-shot command. exclusive takes the state directory's owner lock.
func OpenController(ctx context.Context, exclusive bool) (*controller.Controller, *config.Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	opts := adapterOverrides
	opts.Exclusive = exclusive
	if opts.Logger == nil {
		opts.Logger = NewLogger(cfg)
	}
	opts.Version, opts.Commit, opts.BuildDate = GetVersion()

	c, err := controller.New(ctx, cfg, opts)
	if err != nil {
		if errors.Is(err, state.ErrOwned) {
			return nil, nil, NewLockedError("minecontrol serve is running; use the chat command instead", err)
		}
		return nil, nil, NewExecutionError("failed to initialize", err)
	}
	return c, cfg, nil
}
