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

// Package guildconfig persists per-guild settings: the admin role and the
// announcement channel.
package guildconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

// GuildConfig is the stored configuration of one guild. Empty fields are
// unset.
type GuildConfig struct {
	GuildID               string
	AdminRole             string
	AnnouncementChannelID string
	UpdatedAt             time.Time
}

// Store handles persistence of guild configuration using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	connStr := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		connStr = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes
	// writers on disk.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		admin_role TEXT,
		announcement_channel_id TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the configuration of guildID. An unknown guild yields a
// GuildConfig with only GuildID set.
func (s *Store) Get(ctx context.Context, guildID string) (*GuildConfig, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT admin_role, announcement_channel_id, updated_at
	FROM guild_config
	WHERE guild_id = ?
	`, guildID)

	cfg := &GuildConfig{GuildID: guildID}
	var role, channel sql.NullString
	var updated sql.NullTime
	err := row.Scan(&role, &channel, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	cfg.AdminRole = role.String
	cfg.AnnouncementChannelID = channel.String
	cfg.UpdatedAt = updated.Time
	return cfg, nil
}

// GetAdminRole returns the admin role name, or "" if unset.
func (s *Store) GetAdminRole(ctx context.Context, guildID string) (string, error) {
	cfg, err := s.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	return cfg.AdminRole, nil
}

// SetAdminRole stores the admin role name.
func (s *Store) SetAdminRole(ctx context.Context, guildID, role string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO guild_config (guild_id, admin_role, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(guild_id) DO UPDATE SET
		admin_role = excluded.admin_role,
		updated_at = CURRENT_TIMESTAMP
	`, guildID, role)
	if err != nil {
		return fmt.Errorf("failed to set admin role: %w", err)
	}
	return nil
}

// GetAnnouncementChannel returns the announcement channel ID, or "" if
// unset.
func (s *Store) GetAnnouncementChannel(ctx context.Context, guildID string) (string, error) {
	cfg, err := s.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	return cfg.AnnouncementChannelID, nil
}

// SetAnnouncementChannel stores the announcement channel ID.
func (s *Store) SetAnnouncementChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO guild_config (guild_id, announcement_channel_id, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(guild_id) DO UPDATE SET
		announcement_channel_id = excluded.announcement_channel_id,
		updated_at = CURRENT_TIMESTAMP
	`, guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to set announcement channel: %w", err)
	}
	return nil
}

type legacyEntry struct {
	AdminRole             *string     `json:"admin_role"`
	AnnouncementChannelID json.Number `json:"announcement_channel_id"`
}

// ImportJSON loads a guild_configs.json file written by earlier releases
// ({"<guild>": {"admin_role": "...", "announcement_channel_id": 123}}).
// Existing rows are overwritten field by field. It returns the number of
// guilds imported.
func (s *Store) ImportJSON(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries map[string]legacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	n := 0
	for guildID, e := range entries {
		if _, err := strconv.ParseUint(guildID, 10, 64); err != nil {
			return n, fmt.Errorf("invalid guild id %q in %s", guildID, path)
		}
		if e.AdminRole != nil {
			if err := s.SetAdminRole(ctx, guildID, *e.AdminRole); err != nil {
				return n, err
			}
		}
		if e.AnnouncementChannelID != "" {
			if err := s.SetAnnouncementChannel(ctx, guildID, e.AnnouncementChannelID.String()); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, nil
}
