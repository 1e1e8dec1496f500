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

package process_test

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

	"github.com/tombee/minecontrol/internal/fake"
	"github.com/tombee/minecontrol/internal/process"
	"github.com/tombee/minecontrol/internal/state"
	"github.com/tombee/minecontrol/internal/status"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

type recordingWatcher struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (w *recordingWatcher) WatchOnline(guildID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.online = append(w.online, guildID)
}

func (w *recordingWatcher) WatchOffline(guildID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.offline = append(w.offline, guildID)
}

type harness struct {
	controller *process.Controller
	console    *fake.Console
	sessions   *fake.Sessions
	flags      *state.FlagStore
	watcher    *recordingWatcher
	script     string
}

func newHarness(t *testing.T, withScript bool) *harness {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "start.sh")
	if withScript {
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))
	}

	console := fake.NewConsole()
	console.SetOffline(true)
	sessions := fake.NewSessions()
	flags := state.NewFlagStore(filepath.Join(dir, ".server_state.json"))
	watcher := &recordingWatcher{}
	resolver := status.NewResolver(console, flags, time.Second, nil)

	c := process.NewController(sessions, resolver, flags, watcher, process.Options{
		SessionName: "minecraft",
		ServerPath:  dir,
		StartScript: script,
	}, nil)

	return &harness{controller: c, console: console, sessions: sessions, flags: flags, watcher: watcher, script: script}
}

func TestStart_AlreadyRunning(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Add("minecraft")

	res, err := h.controller.Start(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, process.StartAlreadyRunning, res)
	assert.Empty(t, h.sessions.Created())
	assert.False(t, h.flags.IsStarting())
	assert.Empty(t, h.console.Commands())
}

func TestStart_MissingScript(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.controller.Start(context.Background(), "1")
	var fsErr *mcerrors.FileSystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, h.script, fsErr.Path)
	assert.Empty(t, h.sessions.Created())
	assert.False(t, h.flags.IsStarting())
	assert.Empty(t, h.console.Commands())
}

func TestStart_AlreadyOnline(t *testing.T) {
	h := newHarness(t, true)
	h.console.SetOffline(false)

	res, err := h.controller.Start(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, process.StartNoAction, res)
	assert.Empty(t, h.sessions.Created())
}

func TestStart_Launches(t *testing.T) {
	h := newHarness(t, true)

	var flagDuringCreate bool
	h.sessions.OnCreate = func(string) { flagDuringCreate = h.flags.IsStarting() }

	res, err := h.controller.Start(context.Background(), "guild-1")
	require.NoError(t, err)
	assert.Equal(t, process.StartLaunched, res)
	assert.True(t, flagDuringCreate, "flag must be set before the session is created")
	assert.True(t, h.flags.IsStarting())

	created := h.sessions.Created()
	require.Len(t, created, 1)
	assert.Equal(t, "minecraft", created[0].Name)
	assert.Equal(t, h.script, created[0].Command)
	assert.Equal(t, []string{"guild-1"}, h.watcher.online)
}

func TestStart_SessionCreationFailureClearsFlag(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.CreateErr = errors.New("tmux: server exited unexpectedly")

	_, err := h.controller.Start(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, h.flags.IsStarting())
	assert.Empty(t, h.watcher.online)
}

func TestStart_IsIdempotent(t *testing.T) {
	h := newHarness(t, true)

	first, err := h.controller.Start(context.Background(), "1")
	require.NoError(t, err)
	second, err := h.controller.Start(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, process.StartLaunched, first)
	assert.Equal(t, process.StartAlreadyRunning, second)
	assert.Len(t, h.sessions.Created(), 1)
}

func TestStop_NotRunningClearsFlag(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.flags.MarkStarting())

	res, err := h.controller.Stop(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, process.StopNotRunning, res)
	assert.False(t, h.flags.IsStarting())
	assert.Empty(t, h.sessions.Lines())
}

func TestStop_AlreadyOffline(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Add("minecraft")

	res, err := h.controller.Stop(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, process.StopNoAction, res)
	assert.Empty(t, h.sessions.Lines())
}

func TestStop_SendsStop(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Add("minecraft")
	h.console.SetOffline(false)

	res, err := h.controller.Stop(context.Background(), "guild-9")
	require.NoError(t, err)
	assert.Equal(t, process.StopSent, res)
	assert.Equal(t, []fake.Line{{Name: "minecraft", Text: "stop"}}, h.sessions.Lines())
	assert.Equal(t, []string{"guild-9"}, h.watcher.offline)
}

func TestStop_WhileStartingSendsStop(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Add("minecraft")
	require.NoError(t, h.flags.MarkStarting())

	res, err := h.controller.Stop(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, process.StopSent, res)
}

func TestStop_SendFailure(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Add("minecraft")
	h.console.SetOffline(false)
	h.sessions.SendErr = errors.New("can't find pane")

	_, err := h.controller.Stop(context.Background(), "1")
	require.Error(t, err)
	assert.Empty(t, h.watcher.offline)
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "launched", process.StartLaunched.String())
	assert.Equal(t, "already_running", process.StartAlreadyRunning.String())
	assert.Equal(t, "sent", process.StopSent.String())
	assert.Equal(t, "not_running", process.StopNotRunning.String())
}
