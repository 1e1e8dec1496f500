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

// Package announce publishes lifecycle announcements and watches for the
// transitions that trigger them.
package announce

import (
	"context"
	"fmt"
	"log/slog"
)

// Embed colors.
const (
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorOrange = 0xe67e22
	ColorBlue   = 0x3498db
)

// Announcement is a titled message posted to a guild's announcement
// channel.
type Announcement struct {
	Title       string
	Description string
	Color       int
	Footer      string
}

// Announcer delivers announcements to a guild. Implementations log and
// skip guilds with no announcement channel configured.
type Announcer interface {
	Announce(ctx context.Context, guildID string, a Announcement) error
}

// LogAnnouncer records announcements in the log. It stands in for the chat
// platform when no bot token is configured.
type LogAnnouncer struct {
	Logger *slog.Logger
}

// Announce implements Announcer.
func (l LogAnnouncer) Announce(ctx context.Context, guildID string, a Announcement) error {
	if l.Logger != nil {
		l.Logger.InfoContext(ctx, "announcement",
			slog.String("guild_id", guildID),
			slog.String("title", a.Title),
			slog.String("description", a.Description))
	}
	return nil
}

// ServerOnline is posted when a start is confirmed.
func ServerOnline() Announcement {
	return Announcement{
		Title:       "Minecraft Server Online",
		Description: "The Minecraft server is now available to play.",
		Color:       ColorGreen,
		Footer:      "See you inside!",
	}
}

// ServerOffline is posted when a stop is confirmed.
func ServerOffline() Announcement {
	return Announcement{
		Title:       "Minecraft Server Offline",
		Description: "The Minecraft server has shut down.",
		Color:       ColorRed,
		Footer:      "See you soon!",
	}
}

// IdleShutdown is posted after the auto-shutdown engine stops an empty
// server.
func IdleShutdown(idleMinutes int) Announcement {
	return Announcement{
		Title:       "Server Shut Down for Inactivity",
		Description: fmt.Sprintf("The server was shut down automatically after being empty for more than %d minutes.", idleMinutes),
		Color:       ColorOrange,
		Footer:      "It will start again when someone uses /server_start.",
	}
}
