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

package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "test",
		Short: "Test command",
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample subcommand",
		Long:  "This is a sample subcommand for testing",
		Example: `  test sample
  test sample --flag value`,
		Annotations: map[string]string{
			"group": "testing",
		},
		Run: func(cmd *cobra.Command, args []string) {},
	}
	sampleCmd.Flags().String("flag", "", "A sample flag")
	rootCmd.AddCommand(sampleCmd)

	rootCmd.SetHelpCommand(NewHelpCommand(rootCmd))
	return rootCmd
}

func TestHelpCommandJSON(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		single bool
	}{
		{name: "help --json lists all commands", args: []string{"--json"}},
		{name: "help sample --json shows specific command", args: []string{"sample", "--json"}, single: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd := newTestRoot()
			buf := new(bytes.Buffer)
			rootCmd.SetOut(buf)
			rootCmd.SetErr(buf)
			rootCmd.SetArgs(append([]string{"help"}, tt.args...))

			require.NoError(t, rootCmd.Execute())

			var resp HelpResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), "output: %s", buf.String())
			assert.Equal(t, "1.0", resp.Version)
			assert.True(t, resp.Success)
			assert.NotEmpty(t, resp.GlobalFlags)

			if !tt.single {
				assert.NotEmpty(t, resp.Commands)
				assert.Nil(t, resp.Command)
				return
			}
			require.NotNil(t, resp.Command)
			assert.Equal(t, "sample", resp.Command.Name)
			assert.Equal(t, "testing", resp.Command.Group)
			assert.NotEmpty(t, resp.Command.Examples)
			assert.Empty(t, resp.Commands)
		})
	}
}

func TestHelpCommandHumanOutput(t *testing.T) {
	rootCmd := newTestRoot()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"help"})

	require.NoError(t, rootCmd.Execute())
	assert.False(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"), "expected human output, got JSON")
	assert.Contains(t, buf.String(), "sample")
}

func TestHelpUnknownCommand(t *testing.T) {
	rootCmd := newTestRoot()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"help", "nope", "--json"})

	assert.Error(t, rootCmd.Execute())
}

func TestExtractCommandMetadata(t *testing.T) {
	cmd := &cobra.Command{
		Use:     "testcmd",
		Short:   "Test command",
		Long:    "This is a longer description",
		Example: "testcmd --flag value",
		Aliases: []string{"tc", "test"},
		Annotations: map[string]string{
			"group": "testing",
		},
	}
	cmd.Flags().String("flag", "default", "A test flag")
	cmd.Flags().Bool("bool-flag", false, "A boolean flag")

	metadata := extractCommandMetadata(cmd)

	assert.Equal(t, "testcmd", metadata.Name)
	assert.Equal(t, "Test command", metadata.Short)
	assert.Equal(t, "This is a longer description", metadata.Long)
	assert.Equal(t, "testing", metadata.Group)
	assert.Len(t, metadata.Aliases, 2)
	assert.Len(t, metadata.Flags, 2)
}

func TestExtractGlobalFlags(t *testing.T) {
	rootCmd := &cobra.Command{Use: "test"}
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file")

	flags := extractGlobalFlags(rootCmd)
	require.Len(t, flags, 2)

	byName := map[string]FlagMetadata{}
	for _, f := range flags {
		byName[f.Name] = f
	}
	assert.Equal(t, "Verbose output", byName["verbose"].Usage)
	assert.Contains(t, byName, "config")
}
