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

// Package status derives the managed server's lifecycle status from a
// console probe and the persisted starting flag.
package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/tombee/minecontrol/internal/log"
	"github.com/tombee/minecontrol/internal/metrics"
	"github.com/tombee/minecontrol/internal/rcon"
	mcerrors "github.com/tombee/minecontrol/pkg/errors"
)

// ServerStatus is the derived lifecycle status. It is never stored.
type ServerStatus int

const (
	Unknown ServerStatus = iota
	Offline
	Starting
	Online
)

// String returns the display name of the status.
func (s ServerStatus) String() string {
	switch s {
	case Online:
		return "Online"
	case Offline:
		return "Offline"
	case Starting:
		return "Starting"
	case Unknown:
		return "Unknown"
	}
	return "Unknown"
}

// ProbeCommand is the console command used to check liveness.
const ProbeCommand = "list"

// Flags is the part of the starting flag store the resolver needs.
type Flags interface {
	IsStarting() bool
	MarkStopped() error
}

// Resolver combines a console probe with the starting flag.
type Resolver struct {
	console rcon.Console
	flags   Flags
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver. timeout bounds each probe.
func NewResolver(console rcon.Console, flags Flags, timeout time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = log.Discard()
	}
	return &Resolver{
		console: console,
		flags:   flags,
		timeout: timeout,
		logger:  log.WithComponent(logger, "status"),
	}
}

// Resolve probes the server and returns its status.
//
// A successful probe clears the starting flag. An unreachable console
// means Starting while the flag is fresh and Offline otherwise. Any other
// probe failure means Starting while the flag is fresh and Unknown
// otherwise.
func (r *Resolver) Resolve(ctx context.Context) ServerStatus {
	s := r.resolve(ctx)
	metrics.RecordStatus(s.String())
	return s
}

func (r *Resolver) resolve(ctx context.Context) ServerStatus {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	_, err := r.console.Execute(ctx, ProbeCommand)
	if err == nil {
		if err := r.flags.MarkStopped(); err != nil {
			r.logger.Warn("cannot clear starting flag", log.Error(err))
		}
		return Online
	}

	starting := r.flags.IsStarting()
	if mcerrors.IsUnreachable(err) {
		log.Trace(r.logger, "console unreachable",
			slog.String("error_type", mcerrors.TypeOf(err)),
			slog.Bool("starting", starting))
		if starting {
			return Starting
		}
		return Offline
	}

	r.logger.Warn("unexpected probe failure", log.Error(err), slog.Bool("starting", starting))
	if starting {
		return Starting
	}
	return Unknown
}
