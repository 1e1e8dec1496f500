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

package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/tombee/minecontrol/internal/announce"
	"github.com/tombee/minecontrol/internal/log"
)

// EmbedSender posts embeds to a channel. *discordgo.Session implements it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelLookup finds a guild's announcement channel.
type ChannelLookup interface {
	GetAnnouncementChannel(ctx context.Context, guildID string) (string, error)
}

// Announcer posts announcements to each guild's configured channel.
type Announcer struct {
	sender   EmbedSender
	channels ChannelLookup
	logger   *slog.Logger
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(sender EmbedSender, channels ChannelLookup, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Announcer{sender: sender, channels: channels, logger: log.WithComponent(logger, "announcer")}
}

// Announce implements announce.Announcer. A guild without an announcement
// channel is logged and skipped.
func (a *Announcer) Announce(ctx context.Context, guildID string, ann announce.Announcement) error {
	logger := a.logger.With(slog.String(log.GuildIDKey, guildID), slog.String("title", ann.Title))

	channelID, err := a.channels.GetAnnouncementChannel(ctx, guildID)
	if err != nil {
		return fmt.Errorf("looking up announcement channel: %w", err)
	}
	if channelID == "" {
		logger.Info("no announcement channel configured, skipping announcement")
		return nil
	}

	if _, err := a.sender.ChannelMessageSendEmbed(channelID, Embed(ann)); err != nil {
		return fmt.Errorf("sending announcement to channel %s: %w", channelID, err)
	}
	logger.Info("announcement sent", slog.String("channel_id", channelID))
	return nil
}

// Embed renders an announcement as a Discord embed.
func Embed(ann announce.Announcement) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       ann.Title,
		Description: ann.Description,
		Color:       ann.Color,
	}
	if ann.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: ann.Footer}
	}
	return embed
}
