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

// Package serve implements `minecontrol serve`, the long-running mode.
package serve

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/tombee/minecontrol/internal/commands/shared"
	"github.com/tombee/minecontrol/internal/controller"
	"github.com/tombee/minecontrol/internal/state"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// run is replaced in tests.
var run = controller.Run

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot and the auto-shutdown loop",
		Long: `Run minecontrol in the foreground.

serve connects to Discord and answers slash commands, runs the idle
auto-shutdown loop when enabled, exposes Prometheus metrics when an address
is configured, and reloads auto-shutdown thresholds when the config file
changes. It stops on SIGINT or SIGTERM.

Only one serve process may own a state directory.`,
		Example: `  # Run with the default config file
  minecontrol serve

  # Run with an explicit config and metrics on :9090
  minecontrol serve --config /etc/minecontrol/config.yaml --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, c, b := shared.GetVersion()
			err := run(controller.RunOptions{
				Version:     v,
				Commit:      c,
				BuildDate:   b,
				ConfigPath:  shared.ConfigPath(),
				MetricsAddr: metricsAddr,
			})
			return classify(err)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for /metrics (overrides metrics.addr)")

	return cmd
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, state.ErrOwned) {
		return shared.NewLockedError("another minecontrol serve owns the state directory", err)
	}
	var cfgErr *mcerrors.ConfigError
	if errors.As(err, &cfgErr) {
		return shared.NewConfigError("invalid configuration", err)
	}
	return shared.NewExecutionError("serve failed", err)
}
