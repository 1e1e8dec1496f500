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

// Package tmux controls the terminal-multiplexer session hosting the
// managed server process.
package tmux

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Sentinel errors derived from tmux's stderr.
var (
	ErrNoServer        = errors.New("no tmux server running")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// SessionController is the capability the process controller needs from
// the multiplexer.
type SessionController interface {
	// HasSession reports whether the named session exists.
	HasSession(name string) (bool, error)

	// NewDetachedSession creates a detached session running command in workDir.
	NewDetachedSession(name, workDir, command string) error

	// SendLine types text into the session followed by Enter.
	SendLine(name, text string) error
}

// Tmux is a SessionController backed by the tmux binary.
type Tmux struct {
	binary string
	run    func(args ...string) (string, error)
}

// New returns a Tmux that executes "tmux" from PATH.
func New() *Tmux {
	t := &Tmux{binary: "tmux"}
	t.run = t.exec
	return t
}

func (t *Tmux) exec(args ...string) (string, error) {
	cmd := exec.Command(t.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", wrapError(err, stderr.String(), args)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// wrapError maps tmux's stderr onto sentinel errors.
func wrapError(err error, stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	switch {
	case strings.Contains(stderr, "no server running"),
		strings.Contains(stderr, "error connecting to"):
		return ErrNoServer
	case strings.Contains(stderr, "duplicate session"):
		return ErrSessionExists
	case strings.Contains(stderr, "session not found"),
		strings.Contains(stderr, "can't find session"):
		return ErrSessionNotFound
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: %w", args[0], err)
}

// HasSession reports whether the named session exists. A missing tmux
// server means no session.
func (t *Tmux) HasSession(name string) (bool, error) {
	_, err := t.run("has-session", "-t", "="+name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNoServer):
		return false, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// has-session exits 1 with no stderr on some tmux versions.
		return false, nil
	}
	return false, err
}

// NewDetachedSession creates a detached session named name whose first
// window runs command in workDir.
func (t *Tmux) NewDetachedSession(name, workDir, command string) error {
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	args = append(args, command)
	_, err := t.run(args...)
	return err
}

// SendLine types text into the session and presses Enter. The text is sent
// literally so console commands are never interpreted as key names.
func (t *Tmux) SendLine(name, text string) error {
	if _, err := t.run("send-keys", "-t", name, "-l", text); err != nil {
		return err
	}
	_, err := t.run("send-keys", "-t", name, "Enter")
	return err
}
