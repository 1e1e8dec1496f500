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

package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newStore(t *testing.T) (*FlagStore, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), ".server_state.json")
	return NewFlagStore(path, WithClock(c.now)), c
}

func TestFlagStore_AbsentIsNotStarting(t *testing.T) {
	s, _ := newStore(t)
	assert.False(t, s.IsStarting())
}

func TestFlagStore_MarkStartingWritesRecord(t *testing.T) {
	s, c := newStore(t)
	require.NoError(t, s.MarkStarting())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "starting", raw["status"])
	assert.InDelta(t, float64(c.t.Unix()), raw["timestamp"], 0.001)

	assert.True(t, s.IsStarting())
}

func TestFlagStore_ExpiresAndSelfHeals(t *testing.T) {
	s, c := newStore(t)
	require.NoError(t, s.MarkStarting())

	c.advance(119 * time.Second)
	assert.True(t, s.IsStarting())

	c.advance(2 * time.Second)
	assert.False(t, s.IsStarting())

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "expired flag should be deleted")
}

func TestFlagStore_ExactTTLIsExpired(t *testing.T) {
	s, c := newStore(t)
	require.NoError(t, s.MarkStarting())

	c.advance(DefaultFlagTTL)
	assert.False(t, s.IsStarting())
}

func TestFlagStore_MarkStoppedIsIdempotent(t *testing.T) {
	s, _ := newStore(t)
	require.NoError(t, s.MarkStopped())

	require.NoError(t, s.MarkStarting())
	require.NoError(t, s.MarkStopped())
	require.NoError(t, s.MarkStopped())
	assert.False(t, s.IsStarting())
}

func TestFlagStore_CorruptReadsAsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", "{not json"},
		{"missing timestamp", `{"status":"starting"}`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newStore(t)
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0644))
			assert.False(t, s.IsStarting())
		})
	}
}

func TestFlagStore_SurvivesNewInstance(t *testing.T) {
	s, c := newStore(t)
	require.NoError(t, s.MarkStarting())

	reopened := NewFlagStore(s.Path(), WithClock(c.now))
	assert.True(t, reopened.IsStarting())
}

func TestFlagStore_ReadsFractionalTimestamp(t *testing.T) {
	s, c := newStore(t)
	ts := float64(c.t.Unix()) - 30.5
	data, err := json.Marshal(map[string]any{"status": "starting", "timestamp": ts})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), data, 0644))

	assert.True(t, s.IsStarting())
	c.advance(90 * time.Second)
	assert.False(t, s.IsStarting())
}
