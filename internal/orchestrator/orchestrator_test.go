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

package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/minecontrol/internal/announce"
	"github.com/tombee/minecontrol/internal/config"
	"github.com/tombee/minecontrol/internal/fake"
	"github.com/tombee/minecontrol/internal/guildconfig"
	"github.com/tombee/minecontrol/internal/orchestrator"
	"github.com/tombee/minecontrol/internal/status"
)

const guild = "111"

type harness struct {
	orch      *orchestrator.Orchestrator
	console   *fake.Console
	sessions  *fake.Sessions
	announcer *fake.Announcer
	guilds    *guildconfig.Store
	cfg       *config.Config
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	serverPath := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(serverPath, "start.sh"), []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(serverPath, "world"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(serverPath, "world", "level.dat"), []byte("x"), 0644))

	cfg := config.Default()
	cfg.Minecraft.ServerPath = serverPath
	cfg.RCON.Password = "pw"
	cfg.State.Dir = t.TempDir()
	cfg.Discord.GuildID = guild

	guilds, err := guildconfig.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { guilds.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		console:   fake.NewConsole(),
		sessions:  fake.NewSessions(),
		announcer: &fake.Announcer{},
		guilds:    guilds,
		cfg:       cfg,
	}
	h.orch = orchestrator.New(ctx, cfg, orchestrator.Deps{
		Console:   h.console,
		Sessions:  h.sessions,
		Announcer: h.announcer,
		Guilds:    guilds,
	}, nil)
	fast := announce.Schedule{Attempts: 5, Interval: time.Millisecond}
	h.orch.Watcher().SetSchedules(fast, fast)
	return h
}

func admin() orchestrator.Caller {
	return orchestrator.Caller{
		GuildID:    guild,
		User:       "alex",
		RoleNames:  []string{"MineAdmin"},
		GuildRoles: []string{"@everyone", "MineAdmin"},
	}
}

func (h *harness) configureAdmin(t *testing.T) {
	t.Helper()
	require.NoError(t, h.guilds.SetAdminRole(context.Background(), guild, "MineAdmin"))
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	out := h.orch.Start(ctx, admin())
	assert.Equal(t, orchestrator.KindDenied, out.Kind)
	assert.Contains(t, out.Message, "/setup")

	h.configureAdmin(t)

	stranger := admin()
	stranger.RoleNames = nil
	out = h.orch.Start(ctx, stranger)
	assert.Equal(t, orchestrator.KindDenied, out.Kind)
	assert.Contains(t, out.Message, "MineAdmin")

	missingRole := admin()
	missingRole.GuildRoles = []string{"@everyone"}
	out = h.orch.Stop(ctx, missingRole)
	assert.Equal(t, orchestrator.KindDenied, out.Kind)
	assert.Contains(t, out.Message, "does not exist")

	assert.Empty(t, h.sessions.Created())
	assert.NotEmpty(t, out.RequestID)
}

func TestStart_LaunchesAndAnnounces(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	h.console.Queue("list", "", fake.Unreachable)

	out := h.orch.Start(context.Background(), admin())
	require.Equal(t, orchestrator.KindSuccess, out.Kind, out.Message)
	assert.Contains(t, out.Message, "Starting the server in session `minecraft`!")
	assert.Contains(t, out.Message, "/set_announcement_channel")

	h.orch.Watcher().Wait()
	posted := h.announcer.Posted()
	require.Len(t, posted, 1)
	assert.Equal(t, announce.ServerOnline().Title, posted[0].Announcement.Title)
	assert.Equal(t, guild, posted[0].GuildID)
}

func TestStart_NoteWhenChannelConfigured(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	require.NoError(t, h.guilds.SetAnnouncementChannel(context.Background(), guild, "999"))
	h.console.SetOffline(true)

	out := h.orch.Start(context.Background(), admin())
	require.Equal(t, orchestrator.KindSuccess, out.Kind)
	assert.Contains(t, out.Message, "It will be announced publicly")
}

func TestStart_AlreadyRunning(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	h.sessions.Add("minecraft")

	out := h.orch.Start(context.Background(), admin())
	assert.Equal(t, orchestrator.KindNoop, out.Kind)
	assert.Contains(t, out.Message, "already running")
}

func TestStart_MissingScript(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	require.NoError(t, os.Remove(h.cfg.Minecraft.StartScriptPath()))

	out := h.orch.Start(context.Background(), admin())
	assert.Equal(t, orchestrator.KindError, out.Kind)
	assert.Contains(t, out.Message, "start script not found")
}

func TestStart_SessionErrorIsRendered(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	h.console.SetOffline(true)
	h.sessions.CreateErr = errors.New("tmux exploded")

	out := h.orch.Start(context.Background(), admin())
	assert.Equal(t, orchestrator.KindError, out.Kind)
	assert.Contains(t, out.Message, "tmux exploded")
	assert.Equal(t, status.Offline, h.orch.ResolveStatus(context.Background()))
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)

	out := h.orch.Stop(context.Background(), admin())
	assert.Equal(t, orchestrator.KindNoop, out.Kind)
	assert.Contains(t, out.Message, "not running")

	h.sessions.Add("minecraft")
	h.console.Queue("list", "There are 0 of a max of 20 players online:", nil)
	h.console.SetOffline(true)

	out = h.orch.Stop(context.Background(), admin())
	assert.Equal(t, orchestrator.KindSuccess, out.Kind)
	assert.Equal(t, []fake.Line{{Name: "minecraft", Text: "stop"}}, h.sessions.Lines())

	h.orch.Watcher().Wait()
	posted := h.announcer.Posted()
	require.Len(t, posted, 1)
	assert.Equal(t, announce.ServerOffline().Title, posted[0].Announcement.Title)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)

	out := h.orch.Status(context.Background(), orchestrator.Caller{GuildID: guild})
	assert.Equal(t, orchestrator.KindSuccess, out.Kind)
	assert.Equal(t, "**The Minecraft server is Online.**", out.Message)

	h.console.SetOffline(true)
	out = h.orch.Status(context.Background(), orchestrator.Caller{GuildID: guild})
	assert.Equal(t, "**The Minecraft server is Offline.**", out.Message)
}

func TestStatusMessage(t *testing.T) {
	assert.Contains(t, orchestrator.StatusMessage(status.Starting), "starting")
	assert.Equal(t, orchestrator.StatusMessage(status.Offline), orchestrator.StatusMessage(status.Unknown))
}

func TestBackup(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	h.console.SetOffline(true)

	var progress []string
	out := h.orch.Backup(context.Background(), admin(), func(msg string) { progress = append(progress, msg) })
	require.Equal(t, orchestrator.KindSuccess, out.Kind, out.Message)
	assert.Contains(t, out.Message, "Backup completed: `world_backup_")
	assert.Contains(t, out.Message, "MB)")
	assert.NotEmpty(t, progress)
}

func TestBackup_MissingWorld(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)
	require.NoError(t, os.RemoveAll(filepath.Join(h.cfg.Minecraft.ServerPath, "world")))

	out := h.orch.Backup(context.Background(), admin(), nil)
	assert.Equal(t, orchestrator.KindError, out.Kind)
	assert.Contains(t, out.Message, "world")
}

func TestSetAnnouncementChannel(t *testing.T) {
	h := newHarness(t)
	h.configureAdmin(t)

	out := h.orch.SetAnnouncementChannel(context.Background(), admin(), "4242")
	require.Equal(t, orchestrator.KindSuccess, out.Kind)
	assert.Contains(t, out.Message, "<#4242>")

	channel, err := h.guilds.GetAnnouncementChannel(context.Background(), guild)
	require.NoError(t, err)
	assert.Equal(t, "4242", channel)
}

type stubRoles struct {
	mu      sync.Mutex
	created bool
	err     error
	calls   int
}

func (r *stubRoles) EnsureRole(context.Context, string, string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.created, r.err
}

func TestSetupAdminRole(t *testing.T) {
	ctx := context.Background()

	t.Run("requires manage roles", func(t *testing.T) {
		h := newHarness(t)
		roles := &stubRoles{}
		out := h.orch.SetupAdminRole(ctx, orchestrator.Caller{GuildID: guild}, "MineAdmin", roles)
		assert.Equal(t, orchestrator.KindDenied, out.Kind)
		assert.Zero(t, roles.calls)
	})

	t.Run("existing role", func(t *testing.T) {
		h := newHarness(t)
		out := h.orch.SetupAdminRole(ctx, orchestrator.Caller{GuildID: guild, CanManageRoles: true}, "MineAdmin", &stubRoles{})
		require.Equal(t, orchestrator.KindSuccess, out.Kind)
		assert.Contains(t, out.Message, "already exists")

		role, err := h.guilds.GetAdminRole(ctx, guild)
		require.NoError(t, err)
		assert.Equal(t, "MineAdmin", role)
	})

	t.Run("created role", func(t *testing.T) {
		h := newHarness(t)
		out := h.orch.SetupAdminRole(ctx, orchestrator.Caller{GuildID: guild, CanManageRoles: true}, "MineAdmin", &stubRoles{created: true})
		require.Equal(t, orchestrator.KindSuccess, out.Kind)
		assert.Contains(t, out.Message, "/set_announcement_channel")
	})

	t.Run("bot lacks permission", func(t *testing.T) {
		h := newHarness(t)
		out := h.orch.SetupAdminRole(ctx, orchestrator.Caller{GuildID: guild, CanManageRoles: true}, "MineAdmin", &stubRoles{err: orchestrator.ErrBotCannotManageRoles})
		assert.Equal(t, orchestrator.KindError, out.Kind)

		role, err := h.guilds.GetAdminRole(ctx, guild)
		require.NoError(t, err)
		assert.Empty(t, role)
	})
}

func TestPanicsBecomeOutcomes(t *testing.T) {
	h := newHarness(t)
	out := h.orch.SetupAdminRole(context.Background(), orchestrator.Caller{GuildID: guild, CanManageRoles: true}, "MineAdmin", nil)
	assert.Equal(t, orchestrator.KindError, out.Kind)
	assert.NotEmpty(t, out.RequestID)
}

func TestEcho(t *testing.T) {
	h := newHarness(t)
	out := h.orch.Echo(context.Background(), orchestrator.Caller{}, "hola")
	assert.Equal(t, "You said: hola", out.Message)
}

func TestTrustedCallerSkipsRoleCheck(t *testing.T) {
	h := newHarness(t)
	h.sessions.Add("minecraft")

	out := h.orch.Start(context.Background(), orchestrator.Caller{Trusted: true})
	assert.Equal(t, orchestrator.KindNoop, out.Kind)
}
