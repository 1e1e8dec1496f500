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

package guild

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/minecontrol/internal/commands/shared"
	"github.com/tombee/minecontrol/internal/controller"
	"github.com/tombee/minecontrol/internal/fake"
	"github.com/tombee/minecontrol/internal/log"
)

func setup(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DISCORD_BOT_TOKEN", "MINECRAFT_SERVER_PATH", "MINECRAFT_RCON_PASSWORD", "MINECONTROL_STATE_DIR"} {
		t.Setenv(key, "")
	}

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"minecraft:",
		"  server_path: " + t.TempDir(),
		"rcon:",
		"  password: secret",
		"state:",
		"  dir: " + t.TempDir(),
	}, "\n")
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0600))

	shared.SetConfigPathForTest(cfgPath)
	restore := shared.SetAdaptersForTest(controller.Options{
		Logger:    log.Discard(),
		Console:   fake.NewConsole(),
		Sessions:  fake.NewSessions(),
		Announcer: &fake.Announcer{},
	})
	t.Cleanup(func() {
		restore()
		shared.SetConfigPathForTest("")
	})
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestChannelSetAndShow(t *testing.T) {
	setup(t)

	out, err := execute(t, NewChannelCommand(), "set", "123456789", "987654321")
	require.NoError(t, err)
	assert.Contains(t, out, "Server announcements will now be sent to <#987654321>")

	shared.SetJSONForTest(true)
	defer shared.SetJSONForTest(false)

	out, err = execute(t, NewChannelCommand(), "show", "123456789")
	require.NoError(t, err)

	var info channelInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "123456789", info.GuildID)
	assert.Equal(t, "987654321", info.ChannelID)
	assert.Empty(t, info.AdminRole)
}

func TestChannelSetRejectsNonNumericIDs(t *testing.T) {
	setup(t)

	_, err := execute(t, NewChannelCommand(), "set", "general", "987654321")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guild-id")

	_, err = execute(t, NewChannelCommand(), "set", "123")
	assert.Error(t, err, "both arguments are required")
}

func TestImport(t *testing.T) {
	setup(t)

	legacy := filepath.Join(t.TempDir(), "guild_configs.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{
		"111": {"admin_role": "Minecraft Admin", "announcement_channel_id": 222},
		"333": {"admin_role": null}
	}`), 0600))

	out, err := execute(t, NewImportCommand(), legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 guild(s).")

	out, err = execute(t, NewChannelCommand(), "show", "111")
	require.NoError(t, err)
	assert.Contains(t, out, "222")
	assert.Contains(t, out, "Minecraft Admin")
}

func TestImportMissingFile(t *testing.T) {
	setup(t)

	_, err := execute(t, NewImportCommand(), filepath.Join(t.TempDir(), "missing.json"))
	var exitErr *shared.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, shared.ExitFailed, exitErr.Code)
}
