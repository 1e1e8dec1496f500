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
/*
Package cli provides the root command and shared configuration for minecontrol's CLI.

This package creates the main Cobra command tree and handles global concerns like
version information, persistent flags, and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

The CLI is organized as:

	minecontrol
	├── serve         Run the Discord bot and the auto-shutdown loop
	├── start         Start the Minecraft server
	├── stop          Stop the Minecraft server
	├── status        Show whether the server is online
	├── backup        Archive the world folder
	├── channel       Manage announcement channels
	│   ├── set
	│   └── show
	├── import        Import guild settings from guild_configs.json
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	cli.AddCommand(rootCmd, cli.GroupServer, server.NewStartCommand())
	// ... add commands ...
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

All commands inherit these flags:

	--verbose, -v    Enable debug logging
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Error Handling

Errors are handled centrally to ensure proper exit codes:

  - Exit 0: Success (including "nothing to do")
  - Exit 1: Command failed
  - Exit 2: Invalid configuration
  - Exit 3: Permission denied
  - Exit 4: Backup already in progress
  - Exit 5: State directory owned by a running serve
*/
package cli
