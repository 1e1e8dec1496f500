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

package status

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

type stubConsole struct {
	err   error
	calls []string
}

func (c *stubConsole) Execute(_ context.Context, command string) (string, error) {
	c.calls = append(c.calls, command)
	if c.err != nil {
		return "", c.err
	}
	return "There are 0 of a max of 20 players online:", nil
}

type stubFlags struct {
	starting bool
	cleared  int
}

func (f *stubFlags) IsStarting() bool { return f.starting }
func (f *stubFlags) MarkStopped() error {
	f.cleared++
	f.starting = false
	return nil
}

func TestServerStatusString(t *testing.T) {
	assert.Equal(t, "Online", Online.String())
	assert.Equal(t, "Offline", Offline.String())
	assert.Equal(t, "Starting", Starting.String())
	assert.Equal(t, "Unknown", Unknown.String())
}

func TestResolve(t *testing.T) {
	unreachable := &mcerrors.ConnectivityError{Target: "127.0.0.1:25575", Cause: errors.New("connection refused")}
	auth := &mcerrors.AuthError{Target: "127.0.0.1:25575"}
	timeout := &mcerrors.TimeoutError{Operation: "rcon list", Duration: time.Second}
	weird := errors.New("malformed packet")

	tests := []struct {
		name     string
		err      error
		starting bool
		want     ServerStatus
		cleared  int
	}{
		{name: "probe ok", want: Online, cleared: 1},
		{name: "probe ok while starting", starting: true, want: Online, cleared: 1},
		{name: "unreachable", err: unreachable, want: Offline},
		{name: "unreachable while starting", err: unreachable, starting: true, want: Starting},
		{name: "auth failure", err: auth, want: Offline},
		{name: "timeout while starting", err: timeout, starting: true, want: Starting},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: Offline},
		{name: "other error", err: weird, want: Unknown},
		{name: "other error while starting", err: weird, starting: true, want: Starting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &stubConsole{err: tt.err}
			flags := &stubFlags{starting: tt.starting}
			r := NewResolver(console, flags, time.Second, nil)

			assert.Equal(t, tt.want, r.Resolve(context.Background()))
			assert.Equal(t, tt.cleared, flags.cleared)
			assert.Equal(t, []string{ProbeCommand}, console.calls)
		})
	}
}
