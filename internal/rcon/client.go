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

// Package rcon adapts github.com/gorcon/rcon to the orchestrator's console
// abstraction and classifies its failures.
package rcon

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/gorcon/rcon"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// Console executes remote-console commands on the managed server.
//
// Failures are reported as *errors.ConnectivityError, *errors.AuthError or
// *errors.TimeoutError when the console could not be used; any other error
// means the server answered in an unexpected way.
type Console interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Client is a Console that opens a fresh connection per command.
type Client struct {
	addr     string
	password string
	timeout  time.Duration
}

// NewClient creates a Client for addr. timeout bounds dialing and the
// command round-trip.
func NewClient(addr, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{addr: addr, password: password, timeout: timeout}
}

type result struct {
	out string
	err error
}

// Execute dials the console, runs command and closes the connection.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return "", &mcerrors.TimeoutError{Operation: "rcon " + command, Duration: c.timeout, Cause: context.DeadlineExceeded}
	}

	// gorcon has no context support; the deadline options bound the
	// goroutine even when ctx is cancelled first.
	done := make(chan result, 1)
	go func() {
		out, err := c.execute(command, timeout)
		done <- result{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) execute(command string, timeout time.Duration) (string, error) {
	conn, err := rcon.Dial(c.addr, c.password, rcon.SetDialTimeout(timeout), rcon.SetDeadline(timeout))
	if err != nil {
		return "", c.classify("rcon dial", timeout, err)
	}
	defer conn.Close()

	out, err := conn.Execute(command)
	if err != nil {
		return "", c.classify("rcon "+command, timeout, err)
	}
	return out, nil
}

// classify maps a gorcon or network error onto the typed errors the status
// resolver understands. Unrecognised errors are returned wrapped.
func (c *Client) classify(op string, timeout time.Duration, err error) error {
	if errors.Is(err, rcon.ErrAuthFailed) {
		return &mcerrors.AuthError{Target: c.addr, Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &mcerrors.TimeoutError{Operation: op, Duration: timeout, Cause: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return &mcerrors.ConnectivityError{Target: c.addr, Cause: err}
	}

	return mcerrors.Wrap(err, op)
}
