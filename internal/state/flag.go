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

// Package state persists the orchestrator's own crash-safe state: the
// starting flag and the single-owner lock.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tombee/minecontrol/internal/log"
)

// DefaultFlagTTL is how long a starting flag stays valid without being
// confirmed by an online observation.
const DefaultFlagTTL = 120 * time.Second

const statusStarting = "starting"

// StartingFlag is the on-disk record written when a start is requested.
type StartingFlag struct {
	Status string `json:"status"`

	// Timestamp is seconds since the Unix epoch, with sub-second precision.
	Timestamp *float64 `json:"timestamp"`
}

// FlagStore persists the starting flag as a small JSON file.
//
// Writes go through a temp file and rename, so a crash never leaves a
// half-written flag behind. Reads that find an expired flag delete it.
type FlagStore struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex
}

// FlagOption configures a FlagStore.
type FlagOption func(*FlagStore)

// WithTTL overrides DefaultFlagTTL.
func WithTTL(ttl time.Duration) FlagOption {
	return func(s *FlagStore) { s.ttl = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) FlagOption {
	return func(s *FlagStore) { s.now = now }
}

// WithLogger sets the logger used for I/O warnings.
func WithLogger(logger *slog.Logger) FlagOption {
	return func(s *FlagStore) { s.logger = logger }
}

// NewFlagStore returns a store backed by the file at path.
func NewFlagStore(path string, opts ...FlagOption) *FlagStore {
	s := &FlagStore{
		path:   path,
		ttl:    DefaultFlagTTL,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.WithComponent(s.logger, "flag-store")
	return s
}

// Path returns the flag file location.
func (s *FlagStore) Path() string {
	return s.path
}

// MarkStarting records that a start was just requested.
func (s *FlagStore) MarkStarting() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := float64(s.now().UnixNano()) / float64(time.Second)
	data, err := json.Marshal(StartingFlag{Status: statusStarting, Timestamp: &ts})
	if err != nil {
		return fmt.Errorf("encoding starting flag: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".server_state-*.tmp")
	if err != nil {
		return fmt.Errorf("writing starting flag: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing starting flag: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing starting flag: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("writing starting flag: %w", err)
	}
	return nil
}

// MarkStopped removes the flag. Removing an absent flag is not an error.
func (s *FlagStore) MarkStopped() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FlagStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing starting flag: %w", err)
	}
	return nil
}

// IsStarting reports whether an unexpired flag is present. An expired flag
// is deleted. A corrupt or unreadable flag reads as absent.
func (s *FlagStore) IsStarting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cannot read starting flag", log.Error(err))
		}
		return false
	}

	var flag StartingFlag
	if err := json.Unmarshal(data, &flag); err != nil {
		s.logger.Warn("ignoring corrupt starting flag", log.Error(err))
		return false
	}
	if flag.Timestamp == nil || math.IsNaN(*flag.Timestamp) {
		return false
	}

	age := s.now().Sub(epochSeconds(*flag.Timestamp))
	if age >= s.ttl {
		if err := s.remove(); err != nil {
			s.logger.Warn("cannot delete expired starting flag", log.Error(err))
		}
		return false
	}
	return true
}

func epochSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
