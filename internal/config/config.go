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

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mcerrors "github.com/tombee/minecontrol/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the complete minecontrol configuration.
type Config struct {
	Minecraft    MinecraftConfig    `yaml:"minecraft"`
	RCON         RCONConfig         `yaml:"rcon"`
	AutoShutdown AutoShutdownConfig `yaml:"auto_shutdown"`
	Discord      DiscordConfig      `yaml:"discord"`
	State        StateConfig        `yaml:"state"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
}

// MinecraftConfig describes the managed server installation.
type MinecraftConfig struct {
	// ServerPath is the absolute path to the server root directory.
	// Environment: MINECRAFT_SERVER_PATH
	ServerPath string `yaml:"server_path"`

	// SessionName is the tmux session that runs the server.
	// Environment: MINECRAFT_TERMINAL_SESSION_NAME
	// Default: minecraft
	SessionName string `yaml:"session_name"`

	// StartScript is the launch script, relative to ServerPath.
	// Default: start.sh
	StartScript string `yaml:"start_script"`

	// PropertiesFile holds the server's level-name.
	// Default: server.properties
	PropertiesFile string `yaml:"properties_file"`

	// BackupPath is where archives are written. Relative paths are
	// resolved against ServerPath.
	// Environment: MINECRAFT_BACKUP_PATH
	// Default: backups
	BackupPath string `yaml:"backup_path"`

	// BackupFormat is the archive format: zip or tar.zst.
	// Default: zip
	BackupFormat string `yaml:"backup_format"`
}

// RCONConfig configures the remote console connection.
type RCONConfig struct {
	// Host is the RCON host.
	// Environment: MINECRAFT_RCON_HOST
	// Default: 127.0.0.1
	Host string `yaml:"host"`

	// Port is the RCON port.
	// Environment: MINECRAFT_RCON_PORT
	// Default: 25575
	Port int `yaml:"port"`

	// Password is the RCON password.
	// Environment: MINECRAFT_RCON_PASSWORD
	Password string `yaml:"password"`

	// Timeout bounds dialing and each command round-trip.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// AutoShutdownConfig configures the idle shutdown loop.
type AutoShutdownConfig struct {
	// Enabled turns the idle shutdown loop on.
	// Environment: MINECRAFT_AUTO_SHUTDOWN_ENABLED
	// Default: false
	Enabled bool `yaml:"enabled"`

	// IdleMinutes is how long the server must be empty before the
	// countdown starts.
	// Environment: MINECRAFT_AUTO_SHUTDOWN_IDLE_MINUTES
	// Default: 15
	IdleMinutes int `yaml:"idle_minutes"`

	// CountdownSeconds is the final countdown before stopping.
	// Environment: MINECRAFT_AUTO_SHUTDOWN_COUNTDOWN_SECONDS
	// Default: 60
	CountdownSeconds int `yaml:"countdown_seconds"`

	// Interval is the sampling period.
	// Default: 1m
	Interval time.Duration `yaml:"interval"`

	// GracePeriod is the wait between sending stop and announcing.
	// Default: 5s
	GracePeriod time.Duration `yaml:"grace_period"`
}

// DiscordConfig configures the chat bot.
type DiscordConfig struct {
	// BotToken authenticates the bot.
	// Environment: DISCORD_BOT_TOKEN
	BotToken string `yaml:"bot_token"`

	// GuildID scopes slash commands and the auto-shutdown announcements.
	// Environment: DISCORD_GUILD_ID
	GuildID string `yaml:"guild_id"`

	// AppID is the application ID used to register commands. Empty means
	// use the bot user's ID after login.
	// Environment: DISCORD_APP_ID
	AppID string `yaml:"app_id,omitempty"`

	// CommandsPerMinute limits commands per guild.
	// Default: 20
	CommandsPerMinute int `yaml:"commands_per_minute"`
}

// StateConfig configures where the orchestrator keeps its own state.
type StateConfig struct {
	// Dir holds the starting flag, the guild database and the owner lock.
	// Environment: MINECONTROL_STATE_DIR
	// Default: current directory
	Dir string `yaml:"dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	// Environment: MINECONTROL_METRICS_ADDR
	Addr string `yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Minecraft: MinecraftConfig{
			SessionName:    "minecraft",
			StartScript:    "start.sh",
			PropertiesFile: "server.properties",
			BackupPath:     "backups",
			BackupFormat:   "zip",
		},
		RCON: RCONConfig{
			Host:    "127.0.0.1",
			Port:    25575,
			Timeout: 5 * time.Second,
		},
		AutoShutdown: AutoShutdownConfig{
			Enabled:          false,
			IdleMinutes:      15,
			CountdownSeconds: 60,
			Interval:         time.Minute,
			GracePeriod:      5 * time.Second,
		},
		Discord: DiscordConfig{
			CommandsPerMinute: 20,
		},
		State: StateConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from an optional YAML file and environment
// variables. Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &mcerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &mcerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// applyDefaults fills in zero values so that minimal files work.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Minecraft.SessionName == "" {
		c.Minecraft.SessionName = defaults.Minecraft.SessionName
	}
	if c.Minecraft.StartScript == "" {
		c.Minecraft.StartScript = defaults.Minecraft.StartScript
	}
	if c.Minecraft.PropertiesFile == "" {
		c.Minecraft.PropertiesFile = defaults.Minecraft.PropertiesFile
	}
	if c.Minecraft.BackupPath == "" {
		c.Minecraft.BackupPath = defaults.Minecraft.BackupPath
	}
	if c.Minecraft.BackupFormat == "" {
		c.Minecraft.BackupFormat = defaults.Minecraft.BackupFormat
	}

	if c.RCON.Host == "" {
		c.RCON.Host = defaults.RCON.Host
	}
	if c.RCON.Port == 0 {
		c.RCON.Port = defaults.RCON.Port
	}
	if c.RCON.Timeout == 0 {
		c.RCON.Timeout = defaults.RCON.Timeout
	}

	if c.AutoShutdown.IdleMinutes == 0 {
		c.AutoShutdown.IdleMinutes = defaults.AutoShutdown.IdleMinutes
	}
	if c.AutoShutdown.CountdownSeconds == 0 {
		c.AutoShutdown.CountdownSeconds = defaults.AutoShutdown.CountdownSeconds
	}
	if c.AutoShutdown.Interval == 0 {
		c.AutoShutdown.Interval = defaults.AutoShutdown.Interval
	}
	if c.AutoShutdown.GracePeriod == 0 {
		c.AutoShutdown.GracePeriod = defaults.AutoShutdown.GracePeriod
	}

	if c.Discord.CommandsPerMinute == 0 {
		c.Discord.CommandsPerMinute = defaults.Discord.CommandsPerMinute
	}
	if c.State.Dir == "" {
		c.State.Dir = defaults.State.Dir
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables. The names
// match the .env keys used by earlier deployments.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("MINECRAFT_SERVER_PATH"); val != "" {
		c.Minecraft.ServerPath = val
	}
	if val := os.Getenv("MINECRAFT_TERMINAL_SESSION_NAME"); val != "" {
		c.Minecraft.SessionName = val
	}
	if val := os.Getenv("MINECRAFT_BACKUP_PATH"); val != "" {
		c.Minecraft.BackupPath = val
	}

	if val := os.Getenv("MINECRAFT_RCON_HOST"); val != "" {
		c.RCON.Host = val
	}
	if val := os.Getenv("MINECRAFT_RCON_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.RCON.Port = port
		}
	}
	if val := os.Getenv("MINECRAFT_RCON_PASSWORD"); val != "" {
		c.RCON.Password = val
	}

	if val := os.Getenv("MINECRAFT_AUTO_SHUTDOWN_ENABLED"); val != "" {
		c.AutoShutdown.Enabled = parseBool(val)
	}
	if val := os.Getenv("MINECRAFT_AUTO_SHUTDOWN_IDLE_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			c.AutoShutdown.IdleMinutes = minutes
		}
	}
	if val := os.Getenv("MINECRAFT_AUTO_SHUTDOWN_COUNTDOWN_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			c.AutoShutdown.CountdownSeconds = seconds
		}
	}

	if val := os.Getenv("DISCORD_BOT_TOKEN"); val != "" {
		c.Discord.BotToken = val
	}
	if val := os.Getenv("DISCORD_GUILD_ID"); val != "" {
		c.Discord.GuildID = val
	}
	if val := os.Getenv("DISCORD_APP_ID"); val != "" {
		c.Discord.AppID = val
	}

	if val := os.Getenv("MINECONTROL_STATE_DIR"); val != "" {
		c.State.Dir = val
	}
	if val := os.Getenv("MINECONTROL_METRICS_ADDR"); val != "" {
		c.Metrics.Addr = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Minecraft.ServerPath == "" {
		errs = append(errs, "minecraft.server_path is required")
	} else if !filepath.IsAbs(c.Minecraft.ServerPath) {
		errs = append(errs, fmt.Sprintf("minecraft.server_path must be absolute, got %q", c.Minecraft.ServerPath))
	}
	if c.Minecraft.SessionName == "" || strings.ContainsAny(c.Minecraft.SessionName, ".:") {
		errs = append(errs, fmt.Sprintf("minecraft.session_name must be non-empty and contain no '.' or ':', got %q", c.Minecraft.SessionName))
	}
	validFormats := map[string]bool{"zip": true, "tar.zst": true}
	if !validFormats[c.Minecraft.BackupFormat] {
		errs = append(errs, fmt.Sprintf("minecraft.backup_format must be one of [zip, tar.zst], got %q", c.Minecraft.BackupFormat))
	}

	if c.RCON.Password == "" {
		errs = append(errs, "rcon.password is required")
	}
	if c.RCON.Port < 1 || c.RCON.Port > 65535 {
		errs = append(errs, fmt.Sprintf("rcon.port must be between 1 and 65535, got %d", c.RCON.Port))
	}
	if c.RCON.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("rcon.timeout must be positive, got %v", c.RCON.Timeout))
	}

	if c.AutoShutdown.IdleMinutes < 1 {
		errs = append(errs, fmt.Sprintf("auto_shutdown.idle_minutes must be at least 1, got %d", c.AutoShutdown.IdleMinutes))
	}
	if c.AutoShutdown.CountdownSeconds < 0 {
		errs = append(errs, fmt.Sprintf("auto_shutdown.countdown_seconds must not be negative, got %d", c.AutoShutdown.CountdownSeconds))
	}
	if c.AutoShutdown.Interval < time.Second {
		errs = append(errs, fmt.Sprintf("auto_shutdown.interval must be at least 1s, got %v", c.AutoShutdown.Interval))
	}

	if c.Discord.GuildID != "" {
		if _, err := strconv.ParseUint(c.Discord.GuildID, 10, 64); err != nil {
			errs = append(errs, fmt.Sprintf("discord.guild_id must be a numeric snowflake, got %q", c.Discord.GuildID))
		}
	}
	if c.Discord.CommandsPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("discord.commands_per_minute must be at least 1, got %d", c.Discord.CommandsPerMinute))
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// StartScriptPath returns the absolute path of the launch script.
func (c *MinecraftConfig) StartScriptPath() string {
	if filepath.IsAbs(c.StartScript) {
		return c.StartScript
	}
	return filepath.Join(c.ServerPath, c.StartScript)
}

// PropertiesPath returns the absolute path of server.properties.
func (c *MinecraftConfig) PropertiesPath() string {
	if filepath.IsAbs(c.PropertiesFile) {
		return c.PropertiesFile
	}
	return filepath.Join(c.ServerPath, c.PropertiesFile)
}

// BackupDir returns the archive output directory. An absolute BackupPath
// is used verbatim; a relative one is resolved against ServerPath.
func (c *MinecraftConfig) BackupDir() string {
	if filepath.IsAbs(c.BackupPath) {
		return c.BackupPath
	}
	return filepath.Join(c.ServerPath, c.BackupPath)
}

// Address returns host:port for dialing.
func (c *RCONConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IdleTimeout returns IdleMinutes as a duration.
func (c *AutoShutdownConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// Countdown returns CountdownSeconds as a duration.
func (c *AutoShutdownConfig) Countdown() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// FlagPath is the persisted starting flag.
func (c *StateConfig) FlagPath() string {
	return filepath.Join(c.Dir, ".server_state.json")
}

// GuildDBPath is the SQLite database holding per-guild settings.
func (c *StateConfig) GuildDBPath() string {
	return filepath.Join(c.Dir, "guild_configs.db")
}

// LockPath is the single-owner lock file taken by serve mode.
func (c *StateConfig) LockPath() string {
	return filepath.Join(c.Dir, "minecontrol.lock")
}

func parseBool(s string) bool {
	lower := strings.ToLower(s)
	return lower == "true" || lower == "1" || lower == "yes"
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
