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

// Package fake provides in-memory stand-ins for the remote console, the
// terminal multiplexer and the announcer.
package fake

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tombee/minecontrol/internal/announce"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

type reply struct {
	out string
	err error
}

// Console is a scriptable rcon.Console. Replies are matched by exact
// command first, then by the command's first word.
type Console struct {
	mu       sync.Mutex
	offline  bool
	replies  map[string]reply
	queued   map[string][]reply
	commands []string
}

// NewConsole returns an online console that answers every command with
// an empty string.
func NewConsole() *Console {
	return &Console{
		replies: make(map[string]reply),
		queued:  make(map[string][]reply),
	}
}

// SetOffline makes every command fail with a connectivity error.
func (c *Console) SetOffline(offline bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offline = offline
}

// Respond sets the reply for key.
func (c *Console) Respond(key, out string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[key] = reply{out: out}
}

// Fail makes key fail with err.
func (c *Console) Fail(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies[key] = reply{err: err}
}

// Queue appends one-shot replies for key, consumed before Respond/Fail
// replies. Pass Unreachable as err to simulate a down server.
func (c *Console) Queue(key string, out string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued[key] = append(c.queued[key], reply{out: out, err: err})
}

// Commands returns every command executed so far.
func (c *Console) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

// Unreachable is the error an offline console returns.
var Unreachable = &mcerrors.ConnectivityError{Target: "fake", Cause: errors.New("connection refused")}

// Execute implements rcon.Console.
func (c *Console) Execute(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command)

	verb, _, _ := strings.Cut(command, " ")
	for _, key := range []string{command, verb} {
		if q := c.queued[key]; len(q) > 0 {
			c.queued[key] = q[1:]
			return q[0].out, q[0].err
		}
	}

	if c.offline {
		return "", Unreachable
	}

	for _, key := range []string{command, verb} {
		if r, ok := c.replies[key]; ok {
			return r.out, r.err
		}
	}
	return "", nil
}

// Created records a NewDetachedSession call.
type Created struct {
	Name    string
	WorkDir string
	Command string
}

// Line records a SendLine call.
type Line struct {
	Name string
	Text string
}

// Sessions is an in-memory tmux.SessionController.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]bool
	created  []Created
	lines    []Line

	// HasErr, CreateErr and SendErr, when set, are returned by the
	// corresponding method.
	HasErr    error
	CreateErr error
	SendErr   error

	// OnCreate runs before a session is created.
	OnCreate func(name string)
}

// NewSessions returns a multiplexer with no sessions.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]bool)}
}

// Add registers an existing session.
func (s *Sessions) Add(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[name] = true
}

// Remove drops a session, as if the server process exited.
func (s *Sessions) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, name)
}

// HasSession implements tmux.SessionController.
func (s *Sessions) HasSession(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.HasErr != nil {
		return false, s.HasErr
	}
	return s.sessions[name], nil
}

// NewDetachedSession implements tmux.SessionController.
func (s *Sessions) NewDetachedSession(name, workDir, command string) error {
	s.mu.Lock()
	hook := s.OnCreate
	s.mu.Unlock()
	if hook != nil {
		hook(name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, Created{Name: name, WorkDir: workDir, Command: command})
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.sessions[name] = true
	return nil
}

// SendLine implements tmux.SessionController.
func (s *Sessions) SendLine(name, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, Line{Name: name, Text: text})
	return s.SendErr
}

// Created returns every session creation attempt.
func (s *Sessions) Created() []Created {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Created(nil), s.created...)
}

// Lines returns every line sent.
func (s *Sessions) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Posted records an announcement.
type Posted struct {
	GuildID      string
	Announcement announce.Announcement
}

// Announcer records announcements instead of sending them.
type Announcer struct {
	mu     sync.Mutex
	posted []Posted

	// Err, when set, is returned by Announce after recording.
	Err error
}

// Announce implements announce.Announcer.
func (a *Announcer) Announce(_ context.Context, guildID string, ann announce.Announcement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.posted = append(a.posted, Posted{GuildID: guildID, Announcement: ann})
	return a.Err
}

// Posted returns every announcement recorded.
func (a *Announcer) Posted() []Posted {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Posted(nil), a.posted...)
}
